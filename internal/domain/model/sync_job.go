package model

import (
	"time"
)

// Skipped marks a job whose profile was unlinked before the worker reached it.
const (
	SyncStatusQueued     = "Queued"
	SyncStatusProcessing = "Processing"
	SyncStatusCompleted  = "Completed"
	SyncStatusFailed     = "Failed"
	SyncStatusSkipped    = "Skipped"
)

// SyncJob is one queued refresh of a user's data on a single platform.
type SyncJob struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Platform  Platform  `json:"platform"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError *string   `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j SyncJob) IsTerminal() bool {
	return j.Status == SyncStatusCompleted || j.Status == SyncStatusFailed || j.Status == SyncStatusSkipped
}
