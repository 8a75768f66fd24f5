package models

import (
	"time"

	"github.com/google/uuid"
)

// Pin is the shared six-digit presence secret. At most one is active at a time.
type Pin struct {
	ID          uuid.UUID `json:"id"`
	Value       string    `json:"value"`
	Active      bool      `json:"active"`
	GeneratedAt time.Time `json:"generated_at"`
}
