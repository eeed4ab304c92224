package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

const (
	// PresentGraceMinutes is the last minute after session start that still counts as present.
	PresentGraceMinutes = 15
	// LateCutoffMinutes is the last minute after session start that still counts as late.
	LateCutoffMinutes = 120

	timeOfDayLayout = "15:04:05"
)

var (
	sessionLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
	scanLayouts = []string{"15:04:05", "15:04"}
)

// StatusInput carries what a caller knows about one attendance event.
type StatusInput struct {
	Status           string
	SessionStartedAt string
	ScanTime         string
	Date             time.Time
}

// RawStatus is the status derived before excuse letters are considered.
type RawStatus struct {
	Status models.AttendanceStatus
	TimeIn *string
}

// Resolution is the final status and note to persist.
type Resolution struct {
	Status models.AttendanceStatus
	Notes  *string
}

// StatusResolver derives statuses in a fixed timezone with an injectable clock.
type StatusResolver struct {
	loc *time.Location
	now func() time.Time
}

// NewStatusResolver constructs a resolver; nil location means UTC.
func NewStatusResolver(loc *time.Location, now func() time.Time) *StatusResolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &StatusResolver{loc: loc, now: now}
}

// ComputeRawStatus classifies a scan against the session start.
func (r *StatusResolver) ComputeRawStatus(sessionStartedAt, scanTime string, scanDate time.Time) (models.AttendanceStatus, error) {
	start, err := r.parseSessionStart(sessionStartedAt)
	if err != nil {
		return "", err
	}
	scanAt, err := r.scanInstant(scanTime, scanDate)
	if err != nil {
		return "", err
	}
	return StatusForDelay(int(math.Floor(scanAt.Sub(start).Minutes()))), nil
}

// StatusForDelay maps whole minutes after session start to a status.
func StatusForDelay(diffMinutes int) models.AttendanceStatus {
	switch {
	case diffMinutes <= PresentGraceMinutes:
		return models.AttendanceStatusPresent
	case diffMinutes <= LateCutoffMinutes:
		return models.AttendanceStatusLate
	default:
		return models.AttendanceStatusAbsent
	}
}

// ResolveRawStatus applies the caller's status or, for "auto"/empty with a session start, computes it.
func (r *StatusResolver) ResolveRawStatus(in StatusInput) (RawStatus, error) {
	requested := strings.ToLower(strings.TrimSpace(in.Status))

	var status models.AttendanceStatus
	switch {
	case requested == "" || requested == string(models.AttendanceStatusAuto):
		if strings.TrimSpace(in.SessionStartedAt) == "" {
			status = models.AttendanceStatusPresent
			break
		}
		computed, err := r.ComputeRawStatus(in.SessionStartedAt, in.ScanTime, in.Date)
		if err != nil {
			return RawStatus{}, err
		}
		status = computed
	default:
		parsed, ok := models.ParseAttendanceStatus(requested)
		if !ok {
			return RawStatus{}, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unsupported attendance status %q", in.Status))
		}
		status = parsed
	}

	timeIn, err := r.timeIn(in.ScanTime, status)
	if err != nil {
		return RawStatus{}, err
	}
	return RawStatus{Status: status, TimeIn: timeIn}, nil
}

// Now returns the resolver's current time in its location.
func (r *StatusResolver) Now() time.Time {
	return r.now().In(r.loc)
}

// Today is the current calendar date in the resolver's location, as UTC midnight.
func (r *StatusResolver) Today() time.Time {
	y, m, d := r.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight; empty means today.
func (r *StatusResolver) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.Today(), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}

// ParseSessionStart exposes session timestamp parsing to the workflow.
func (r *StatusResolver) ParseSessionStart(raw string) (time.Time, error) {
	return r.parseSessionStart(raw)
}

func (r *StatusResolver) parseSessionStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range sessionLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrUnparseableTimestamp, fmt.Sprintf("session_started_at %q could not be parsed", raw))
}

func (r *StatusResolver) scanInstant(scanTime string, scanDate time.Time) (time.Time, error) {
	clock, err := r.clock(scanTime)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := scanDate.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, r.loc), nil
}

// clock returns the scan time-of-day, or the current server time when omitted.
func (r *StatusResolver) clock(scanTime string) (time.Time, error) {
	scanTime = strings.TrimSpace(scanTime)
	if scanTime == "" {
		return r.Now(), nil
	}
	for _, layout := range scanLayouts {
		if t, err := time.Parse(layout, scanTime); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrUnparseableTimestamp, fmt.Sprintf("scan_time %q could not be parsed", scanTime))
}

func (r *StatusResolver) timeIn(scanTime string, status models.AttendanceStatus) (*string, error) {
	if strings.TrimSpace(scanTime) == "" && !status.Attended() {
		return nil, nil
	}
	clock, err := r.clock(scanTime)
	if err != nil {
		return nil, err
	}
	formatted := clock.Format(timeOfDayLayout)
	return &formatted, nil
}

// ResolveFinalStatus reconciles a raw status with the excuse letter on file, if any.
// It is pure: the same inputs always produce the same status and note.
func ResolveFinalStatus(raw models.AttendanceStatus, letter *models.ExcuseLetter, notes *string) Resolution {
	if letter == nil {
		return Resolution{Status: raw, Notes: notes}
	}
	switch letter.Status {
	case models.ExcuseLetterApproved:
		if raw == models.AttendanceStatusAbsent {
			return Resolution{Status: models.AttendanceStatusExcused, Notes: strPtr("Auto-excused: " + letter.Reason)}
		}
		return Resolution{Status: raw, Notes: notes}
	case models.ExcuseLetterRejected:
		return Resolution{Status: models.AttendanceStatusAbsent, Notes: strPtr(rejectionNote(letter))}
	case models.ExcuseLetterPending:
		return Resolution{Status: models.AttendanceStatusAbsent, Notes: strPtr("Excuse letter pending review")}
	default:
		return Resolution{Status: raw, Notes: notes}
	}
}

// ReconciledStatus is the status forced onto attendance once a letter is reviewed.
// Pending letters do not force anything.
func ReconciledStatus(letter models.ExcuseLetter) (Resolution, bool) {
	switch letter.Status {
	case models.ExcuseLetterApproved:
		return Resolution{Status: models.AttendanceStatusExcused, Notes: strPtr(approvedExcuseNote(letter))}, true
	case models.ExcuseLetterRejected:
		return Resolution{Status: models.AttendanceStatusAbsent, Notes: strPtr(rejectionNote(&letter))}, true
	default:
		return Resolution{}, false
	}
}

func approvedExcuseNote(letter models.ExcuseLetter) string {
	return fmt.Sprintf("Automatically marked as excused: approved excuse letter (%s)", letter.Reason)
}

func sweepAbsentNote(cutoffMinutes int) string {
	return fmt.Sprintf("Automatically marked absent: no attendance recorded within %d minutes of session start", cutoffMinutes)
}

func rejectionNote(letter *models.ExcuseLetter) string {
	if letter.TeacherNotes != nil && strings.TrimSpace(*letter.TeacherNotes) != "" {
		return "Excuse letter rejected: " + strings.TrimSpace(*letter.TeacherNotes)
	}
	return "Excuse letter rejected: " + letter.Reason
}

func strPtr(v string) *string {
	return &v
}
