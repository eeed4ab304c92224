package models

import (
	"strings"
	"time"
)

// ExcuseLetterStatus is the review state of an excuse letter.
type ExcuseLetterStatus string

const (
	ExcuseLetterPending  ExcuseLetterStatus = "pending"
	ExcuseLetterApproved ExcuseLetterStatus = "approved"
	ExcuseLetterRejected ExcuseLetterStatus = "rejected"
)

// ParseExcuseLetterStatus normalises input; the second value is false for unknown statuses.
func ParseExcuseLetterStatus(raw string) (ExcuseLetterStatus, bool) {
	status := ExcuseLetterStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case ExcuseLetterPending, ExcuseLetterApproved, ExcuseLetterRejected:
		return status, true
	default:
		return status, false
	}
}

// ExcuseLetter is a student's justification for missing a class on a date.
type ExcuseLetter struct {
	ID            string             `db:"id" json:"id"`
	StudentID     string             `db:"student_id" json:"student_id"`
	ClassID       string             `db:"class_id" json:"class_id"`
	TeacherID     string             `db:"teacher_id" json:"teacher_id"`
	DateAbsent    time.Time          `db:"date_absent" json:"date_absent"`
	Reason        string             `db:"reason" json:"reason"`
	Status        ExcuseLetterStatus `db:"status" json:"status"`
	TeacherNotes  *string            `db:"teacher_notes" json:"teacher_notes,omitempty"`
	AttachmentRef *string            `db:"attachment_ref" json:"attachment_ref,omitempty"`
	ReviewedAt    *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// ExcuseLetterFilter scopes listing queries.
type ExcuseLetterFilter struct {
	ClassID   string
	StudentID string
	TeacherID string
	Status    *ExcuseLetterStatus
	Date      *time.Time
	Page      int
	PageSize  int
}
