package models

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. The ledger only ever reads these; it never writes job state.
const (
	JobStatusQueued     = "queued"
	JobStatusGenerating = "generating"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
	JobStatusFailed     = "failed"
)

type Job struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Log       string    `json:"log"`
	VideoURL  *string   `json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
