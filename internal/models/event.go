package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is an academic event with a fixed time window and a location.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Campus    string    `json:"campus,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// WindowState says where an instant falls relative to an event's time window.
type WindowState int

const (
	WindowNotStarted WindowState = iota
	WindowOpen
	WindowFinished
)

// Window reports whether now is before, inside (inclusive) or after the event.
func (e *Event) Window(now time.Time) WindowState {
	switch {
	case now.Before(e.StartsAt):
		return WindowNotStarted
	case now.After(e.EndsAt):
		return WindowFinished
	default:
		return WindowOpen
	}
}

// Modality is how a presentation is delivered.
type Modality string

const (
	ModalityPoster Modality = "poster"
	ModalityPitch  Modality = "pitch"
	ModalityOral   Modality = "oral"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityPoster, ModalityPitch, ModalityOral:
		return true
	}
	return false
}

// Presentation belongs to an Event.
type Presentation struct {
	ID        uuid.UUID  `json:"id"`
	EventID   uuid.UUID  `json:"event_id"`
	Title     string     `json:"title"`
	AuthorID  uuid.UUID  `json:"author_id"`
	AdvisorID *uuid.UUID `json:"advisor_id,omitempty"`
	Modality  Modality   `json:"modality"`
	CreatedAt time.Time  `json:"created_at"`
}

// ReportArchive is an event report snapshot stored in object storage.
type ReportArchive struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	S3Key       string    `json:"s3_key"`
	S3URL       string    `json:"-"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL string    `json:"download_url,omitempty"`
}
