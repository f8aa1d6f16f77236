package timeslot

import (
	"fmt"
	"strings"
	"time"
)

// Weekday labels as stored and returned by the API.
const (
	Monday    = "월요일"
	Tuesday   = "화요일"
	Wednesday = "수요일"
	Thursday  = "목요일"
	Friday    = "금요일"
	Saturday  = "토요일"
	Sunday    = "일요일"
)

var week = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var byGoWeekday = map[time.Weekday]string{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

var aliases = map[string]string{
	"MONDAY": Monday, "MON": Monday,
	"TUESDAY": Tuesday, "TUE": Tuesday,
	"WEDNESDAY": Wednesday, "WED": Wednesday,
	"THURSDAY": Thursday, "THU": Thursday,
	"FRIDAY": Friday, "FRI": Friday,
	"SATURDAY": Saturday, "SAT": Saturday,
	"SUNDAY": Sunday, "SUN": Sunday,
}

// Week returns the seven day labels starting on Monday.
func Week() []string {
	out := make([]string, len(week))
	copy(out, week)
	return out
}

// DayOf returns the day label for t in t's own location.
func DayOf(t time.Time) string {
	return byGoWeekday[t.Weekday()]
}

// NormalizeDay maps a day label or English day name onto the canonical label.
func NormalizeDay(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	for _, day := range week {
		if trimmed == day {
			return day, nil
		}
	}
	if day, ok := aliases[strings.ToUpper(trimmed)]; ok {
		return day, nil
	}
	return "", fmt.Errorf("unknown day of week %q", raw)
}
