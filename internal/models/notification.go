package models

import (
	"encoding/json"
	"time"
)

// Notification event types emitted by the attendance workflows.
const (
	EventAttendanceRecorded    = "attendance.recorded"
	EventExcuseLetterSubmitted = "excuse_letter.submitted"
	EventExcuseLetterReviewed  = "excuse_letter.reviewed"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	EventType string          `db:"event_type" json:"event_type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	ReadAt    *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
