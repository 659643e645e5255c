package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldChange is one mirrored field that differed from the stored value.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

type ItemChanges struct {
	GameID     int64         `json:"game_id"`
	ExternalID int64         `json:"external_id"`
	Title      string        `json:"title"`
	Changes    []FieldChange `json:"changes"`
	Released   bool          `json:"released"`
}

type ItemError struct {
	GameID     int64  `json:"game_id"`
	ExternalID int64  `json:"external_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// SyncReport summarises one sync run. It is returned and logged, never stored.
type SyncReport struct {
	RunID        uuid.UUID     `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Examined     int           `json:"examined"`
	Updated      int           `json:"updated"`
	Released     int           `json:"released"`
	Failed       int           `json:"failed"`
	StoppedEarly bool          `json:"stopped_early"`
	StopReason   string        `json:"stop_reason,omitempty"`
	Items        []ItemChanges `json:"items"`
	Errors       []ItemError   `json:"errors"`
}

func NewSyncReport(startedAt time.Time) *SyncReport {
	return &SyncReport{
		RunID:     uuid.New(),
		StartedAt: startedAt,
		Items:     []ItemChanges{},
		Errors:    []ItemError{},
	}
}

// SweepReport summarises one auto-release sweep.
type SweepReport struct {
	Examined      int         `json:"examined"`
	Released      int         `json:"released"`
	Notifications int         `json:"notifications"`
	Errors        []ItemError `json:"errors"`
}

// ReminderReport summarises one imminent-release reminder sweep.
type ReminderReport struct {
	Examined      int         `json:"examined"`
	Skipped       int         `json:"skipped"`
	Notifications int         `json:"notifications"`
	Errors        []ItemError `json:"errors"`
}
