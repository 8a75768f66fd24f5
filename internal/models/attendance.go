package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one user's presence window at one event. There is at most one
// per (UserID, EventID).
type AttendanceRecord struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	EventID       uuid.UUID  `json:"event_id"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt  *time.Time `json:"checked_out_at,omitempty"`
	CheckInValid  bool       `json:"check_in_valid"`
	CheckOutValid bool       `json:"check_out_valid"`
}

// OwnedBy reports whether userID owns the record.
func (r *AttendanceRecord) OwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

// HasValidCheckIn reports whether the check-in half completed.
func (r *AttendanceRecord) HasValidCheckIn() bool {
	return r.CheckInValid && r.CheckedInAt != nil
}

// AttendanceCounts summarizes an event's attendance.
type AttendanceCounts struct {
	CheckedIn  int `json:"checked_in"`
	CheckedOut int `json:"checked_out"`
}

// SortByCheckIn orders records latest check-in first; records without a check-in go last.
func SortByCheckIn(list []AttendanceRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].CheckedInAt, list[j].CheckedInAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
}
