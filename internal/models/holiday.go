package models

import "time"

// Holiday blocks booking for a tutor over an inclusive date range.
type Holiday struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	StartDate string    `db:"start_date" json:"start_date"`
	EndDate   string    `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether date (YYYY-MM-DD) falls within the holiday.
func (h Holiday) Covers(date string) bool {
	return date >= h.StartDate && date <= h.EndDate
}

// HolidayRequest creates a holiday. An empty EndDate means a single day.
type HolidayRequest struct {
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"omitempty,date"`
	Reason    string `json:"reason" validate:"max=255"`
}

// ReplaceHolidaysRequest replaces every holiday of a tutor.
type ReplaceHolidaysRequest struct {
	Holidays []HolidayRequest `json:"holidays" validate:"dive"`
}
