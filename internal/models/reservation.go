package models

import "time"

// ReservationStatus tracks the lifecycle of a reservation.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCanceled  ReservationStatus = "canceled"
)

// Reservation is a booked session for a tutor on a date and slot.
type Reservation struct {
	ID           string            `db:"id" json:"id"`
	OwnerID      *string           `db:"owner_id" json:"owner_id,omitempty"`
	TutorID      string            `db:"tutor_id" json:"tutor_id"`
	TutorName    string            `db:"tutor_name" json:"tutor_name"`
	ClassDate    string            `db:"class_date" json:"class_date"`
	TimeSlot     string            `db:"time_slot" json:"time_slot"`
	TeamName     string            `db:"team_name" json:"team_name"`
	Question     string            `db:"question" json:"question"`
	ResourceLink string            `db:"resource_link" json:"resource_link"`
	Status       ReservationStatus `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationFilter narrows reservation listings and feed subscriptions.
type ReservationFilter struct {
	TutorID   string
	ClassDate string
	OwnerID   string
	Status    ReservationStatus
	Page      int
	PageSize  int
}

// Matches reports whether r satisfies the filter's field constraints. Pagination is ignored.
func (f ReservationFilter) Matches(r Reservation) bool {
	if f.TutorID != "" && r.TutorID != f.TutorID {
		return false
	}
	if f.ClassDate != "" && r.ClassDate != f.ClassDate {
		return false
	}
	if f.OwnerID != "" && (r.OwnerID == nil || *r.OwnerID != f.OwnerID) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// ReservationChange describes a ledger mutation for feed fan-out and event publishing.
type ReservationChange struct {
	Kind        string      `json:"kind"`
	Reservation Reservation `json:"reservation"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Reservation change kinds.
const (
	ChangeCreated   = "reservation.created"
	ChangeUpdated   = "reservation.updated"
	ChangeCanceled  = "reservation.canceled"
	ChangeCompleted = "reservation.completed"
)

// DaySchedule is the resolved view of one tutor's calendar day.
type DaySchedule struct {
	TutorID      string        `json:"tutor_id"`
	Date         string        `json:"date"`
	DayOfWeek    string        `json:"day_of_week"`
	Holiday      bool          `json:"holiday"`
	Template     []string      `json:"template"`
	Bookable     []string      `json:"bookable"`
	Reservations []Reservation `json:"reservations"`
}

// CreateReservationRequest books a slot. An empty ClassDate means today in the booking timezone.
type CreateReservationRequest struct {
	TutorID      string `json:"tutor_id" validate:"required"`
	ClassDate    string `json:"class_date" validate:"omitempty,date"`
	TimeSlot     string `json:"time_slot" validate:"required,slotlabel"`
	TeamName     string `json:"team_name" validate:"required,max=100"`
	Question     string `json:"question" validate:"max=2000"`
	ResourceLink string `json:"resource_link" validate:"omitempty,url"`
}

// UpdateReservationRequest carries a partial update; nil fields are left unchanged.
type UpdateReservationRequest struct {
	TimeSlot     *string `json:"time_slot" validate:"omitempty,slotlabel"`
	Question     *string `json:"question" validate:"omitempty,max=2000"`
	ResourceLink *string `json:"resource_link" validate:"omitempty,url"`
}

// ReservationReceipt is returned once on creation; the edit token is never stored.
type ReservationReceipt struct {
	Reservation        Reservation `json:"reservation"`
	EditToken          string      `json:"edit_token"`
	EditTokenExpiresAt time.Time   `json:"edit_token_expires_at"`
}
