package models

import (
	"time"

	"github.com/lib/pq"
)

// DayAvailability is the set of bookable slot labels a tutor offers on one weekday.
type DayAvailability struct {
	TutorID   string         `db:"tutor_id" json:"tutor_id"`
	DayOfWeek string         `db:"day_of_week" json:"day_of_week"`
	Slots     pq.StringArray `db:"slots" json:"slots"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// WeeklyAvailability groups all seven days for a tutor.
type WeeklyAvailability struct {
	TutorID string              `json:"tutor_id"`
	Days    map[string][]string `json:"days"`
}

// GenerateSlotsRequest splits [Start, End) into IntervalMinutes slots.
type GenerateSlotsRequest struct {
	Start           string `json:"start" validate:"required,hhmm"`
	End             string `json:"end" validate:"required,hhmm"`
	IntervalMinutes int    `json:"interval_minutes" validate:"required,gt=0,lte=1440"`
}

// SetSlotsRequest replaces a day's slots. When Generate is set, the generated
// labels are used instead of Slots.
type SetSlotsRequest struct {
	Slots    []string              `json:"slots" validate:"omitempty,dive,slotlabel"`
	Generate *GenerateSlotsRequest `json:"generate,omitempty"`
}
