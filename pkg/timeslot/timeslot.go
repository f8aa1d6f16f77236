package timeslot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

var (
	// ErrInvalidTime is returned for clock values outside HH:MM.
	ErrInvalidTime = errors.New("invalid time of day")

	// ErrInvalidLabel is returned for slot labels outside HH:MM-HH:MM.
	ErrInvalidLabel = errors.New("invalid slot label")

	// ErrInvalidInterval is returned for non-positive generation intervals.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Slot is a half-open interval of minutes since midnight.
type Slot struct {
	Start int
	End   int
}

// Label renders the slot as HH:MM-HH:MM.
func (s Slot) Label() string {
	return FormatClock(s.Start) + "-" + FormatClock(s.End)
}

// Duration returns the slot length in minutes.
func (s Slot) Duration() int {
	return s.End - s.Start
}

// ParseClock converts HH:MM into minutes since midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 5 || raw[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	h, errH := strconv.Atoi(raw[:2])
	m, errM := strconv.Atoi(raw[3:])
	if errH != nil || errM != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Parse reads an HH:MM-HH:MM label.
func Parse(label string) (Slot, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	if end <= start {
		return Slot{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidLabel, label)
	}
	return Slot{Start: start, End: end}, nil
}

// Valid reports whether label is a well-formed slot.
func Valid(label string) bool {
	_, err := Parse(label)
	return err == nil
}

// Generate splits [start, end) into consecutive slots of intervalMinutes.
// Only complete intervals are emitted; start >= end yields an empty list.
func Generate(start, end string, intervalMinutes int) ([]string, error) {
	if intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	from, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0)
	for cursor := from; cursor+intervalMinutes <= to && cursor+intervalMinutes <= minutesPerDay; cursor += intervalMinutes {
		slots = append(slots, Slot{Start: cursor, End: cursor + intervalMinutes}.Label())
	}
	return slots, nil
}

// Normalize validates labels, rewrites them canonically, drops duplicates and sorts by start.
func Normalize(labels []string) ([]string, error) {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		slot, err := Parse(label)
		if err != nil {
			return nil, err
		}
		canonical := slot.Label()
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	Sort(out)
	return out, nil
}

// Sort orders labels by start time. Unparseable labels sink to the end in lexical order.
func Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := Parse(labels[i])
		b, errB := Parse(labels[j])
		switch {
		case errA != nil && errB != nil:
			return labels[i] < labels[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}

// Subtract returns the labels in template that are absent from taken, preserving template order.
func Subtract(template []string, taken []string) []string {
	blocked := make(map[string]struct{}, len(taken))
	for _, label := range taken {
		if slot, err := Parse(label); err == nil {
			blocked[slot.Label()] = struct{}{}
			continue
		}
		blocked[label] = struct{}{}
	}
	out := make([]string, 0, len(template))
	for _, label := range template {
		if _, ok := blocked[label]; ok {
			continue
		}
		out = append(out, label)
	}
	return out
}
