package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the booking calendar used when none is configured.
const DefaultTimezone = "Asia/Seoul"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Clock supplies the current instant; tests substitute a fixed one.
type Clock func() time.Time

// Calendar pins every calendar-day computation to a single location.
type Calendar struct {
	loc *time.Location
	now Clock
}

// IsValid reports whether tz names a loadable IANA location.
func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location resolves tz, falling back to DefaultTimezone and finally to a fixed +09:00 zone.
func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// NewCalendar builds a calendar for tz. A nil clock uses time.Now.
func NewCalendar(tz string, now Clock) *Calendar {
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: Location(tz), now: now}
}

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the calendar's location.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current calendar date.
func (c *Calendar) Today() string {
	return c.Now().Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD as midnight in the calendar's location.
func (c *Calendar) ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// At returns the instant of minuteOfDay on date.
func (c *Calendar) At(date string, minuteOfDay int) (time.Time, error) {
	day, err := c.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, c.loc), nil
}

// ValidDate reports whether raw is a real YYYY-MM-DD calendar date.
func ValidDate(raw string) bool {
	_, err := time.Parse(DateLayout, raw)
	return err == nil
}
