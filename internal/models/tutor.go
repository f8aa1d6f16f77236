package models

import "time"

// Tutor is a person offering sessions. Tutors are deactivated, never deleted.
type Tutor struct {
	ID             string    `db:"id" json:"id"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	TrackID        *string   `db:"track_id" json:"track_id,omitempty"`
	BatchID        *string   `db:"batch_id" json:"batch_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TutorFilter narrows tutor listings.
type TutorFilter struct {
	Search         string
	Active         *bool
	OrganizationID string
	TrackID        string
	BatchID        string
	Page           int
	PageSize       int
}
