package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckinRecord is a PIN-confirmed campus check-in. Open while CheckedOutAt is nil.
type CheckinRecord struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	PinID        uuid.UUID  `json:"pin_id"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

// Open reports whether the record has not been checked out yet.
func (r *CheckinRecord) Open() bool {
	return r.CheckedOutAt == nil
}
