package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type excuseLetterStore interface {
	Create(ctx context.Context, letter *models.ExcuseLetter) error
	FindByID(ctx context.Context, id string) (*models.ExcuseLetter, error)
	FindByKey(ctx context.Context, studentID, classID string, date time.Time) (*models.ExcuseLetter, error)
	List(ctx context.Context, filter models.ExcuseLetterFilter) ([]models.ExcuseLetter, int, error)
	Review(ctx context.Context, id string, status models.ExcuseLetterStatus, teacherNotes *string) (*models.ExcuseLetter, error)
	Delete(ctx context.Context, id string) error
}

type attendanceReconciler interface {
	OnExcuseLetterStatusChange(ctx context.Context, letter models.ExcuseLetter) (*models.AttendanceRecord, error)
}

type attachmentSigner interface {
	Sign(ownerID, ref string) (string, time.Time, error)
}

// Actor identifies the authenticated caller of a workflow.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// ExcuseLetterOptions carries optional collaborators of ExcuseLetterService.
type ExcuseLetterOptions struct {
	Notifier notifier
	Signer   attachmentSigner
	Metrics  *MetricsService
}

// ExcuseLetterService handles submission and review of excuse letters.
type ExcuseLetterService struct {
	letters     excuseLetterStore
	classes     classReader
	enrollments enrollmentChecker
	reconciler  attendanceReconciler
	resolver    *StatusResolver
	validator   *validator.Validate
	logger      *zap.Logger
	opts        ExcuseLetterOptions
}

// NewExcuseLetterService constructs the service.
func NewExcuseLetterService(letters excuseLetterStore, classes classReader, enrollments enrollmentChecker, reconciler attendanceReconciler, resolver *StatusResolver, validate *validator.Validate, logger *zap.Logger, opts ExcuseLetterOptions) *ExcuseLetterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewStatusResolver(time.UTC, nil)
	}
	return &ExcuseLetterService{
		letters:     letters,
		classes:     classes,
		enrollments: enrollments,
		reconciler:  reconciler,
		resolver:    resolver,
		validator:   validate,
		logger:      logger,
		opts:        opts,
	}
}

// SubmitExcuseLetterRequest is filed by a student.
type SubmitExcuseLetterRequest struct {
	ClassID       string  `json:"class_id" validate:"required"`
	DateAbsent    string  `json:"date_absent" validate:"required"`
	Reason        string  `json:"reason" validate:"required,max=300"`
	AttachmentRef *string `json:"attachment_ref" validate:"omitempty,max=255"`
}

// ReviewExcuseLetterRequest is the teacher's decision.
type ReviewExcuseLetterRequest struct {
	Status       string  `json:"status" validate:"required"`
	TeacherNotes *string `json:"teacher_notes" validate:"omitempty,max=500"`
}

// ListExcuseLettersRequest filters letter listings.
type ListExcuseLettersRequest struct {
	ClassID   string `form:"classId"`
	StudentID string `form:"studentId"`
	Status    string `form:"status"`
	Date      string `form:"date"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// ExcuseLetterView is a letter with a short-lived attachment link.
type ExcuseLetterView struct {
	models.ExcuseLetter
	AttachmentURL       *string    `json:"attachment_url,omitempty"`
	AttachmentExpiresAt *time.Time `json:"attachment_expires_at,omitempty"`
	// AttendanceSyncPending is set when the review was saved but attendance was
	// not updated. POST /attendance/sync-excuses applies it later.
	AttendanceSyncPending bool `json:"attendance_sync_pending,omitempty"`
}

// Submit files a pending excuse letter for a class session.
func (s *ExcuseLetterService) Submit(ctx context.Context, studentID string, req SubmitExcuseLetterRequest) (*ExcuseLetterView, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid excuse letter payload")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storageFailure(err, "failed to load class")
	}
	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, studentID, class.ID)
	if err != nil {
		return nil, storageFailure(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "you are not actively enrolled in this class")
	}
	date, err := s.resolver.ParseDate(req.DateAbsent)
	if err != nil {
		return nil, err
	}

	if _, err := s.letters.FindByKey(ctx, studentID, class.ID, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, fmt.Sprintf("an excuse letter for %s already exists", date.Format("2006-01-02")))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, storageFailure(err, "failed to check existing excuse letters")
	}

	letter := &models.ExcuseLetter{
		StudentID:     studentID,
		ClassID:       class.ID,
		TeacherID:     class.TeacherID,
		DateAbsent:    date,
		Reason:        req.Reason,
		Status:        models.ExcuseLetterPending,
		AttachmentRef: req.AttachmentRef,
	}
	if err := s.letters.Create(ctx, letter); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, fmt.Sprintf("an excuse letter for %s already exists", date.Format("2006-01-02")))
		}
		return nil, storageFailure(err, "failed to save excuse letter")
	}

	s.notify(ctx, class.TeacherID, models.EventExcuseLetterSubmitted, letter)
	return s.view(*letter), nil
}

// Review approves or rejects a pending letter and reconciles the student's attendance.
func (s *ExcuseLetterService) Review(ctx context.Context, teacherID, letterID string, req ReviewExcuseLetterRequest) (*ExcuseLetterView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	status, ok := models.ParseExcuseLetterStatus(req.Status)
	if !ok || status == models.ExcuseLetterPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "status must be approved or rejected")
	}

	letter, err := s.find(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedClass(ctx, s.classes, teacherID, letter.ClassID); err != nil {
		return nil, err
	}
	if letter.Status != models.ExcuseLetterPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "excuse letter has already been reviewed")
	}

	reviewed, err := s.letters.Review(ctx, letter.ID, status, req.TeacherNotes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "excuse letter has already been reviewed")
		}
		return nil, storageFailure(err, "failed to review excuse letter")
	}
	s.opts.Metrics.RecordExcuseLetterReview(reviewed.Status)

	syncPending := false
	if s.reconciler != nil {
		if _, err := s.reconciler.OnExcuseLetterStatusChange(ctx, *reviewed); err != nil {
			syncPending = true
			s.opts.Metrics.RecordReconcileFailure()
			s.logger.Error("reconcile attendance after review",
				zap.String("letter_id", reviewed.ID),
				zap.String("class_id", reviewed.ClassID),
				zap.Time("date", reviewed.DateAbsent),
				zap.String("status", string(reviewed.Status)),
				zap.Error(err),
			)
		}
	}

	s.notify(ctx, reviewed.StudentID, models.EventExcuseLetterReviewed, reviewed)
	view := s.view(*reviewed)
	view.AttendanceSyncPending = syncPending
	return view, nil
}

// Delete withdraws a pending letter owned by the student.
func (s *ExcuseLetterService) Delete(ctx context.Context, studentID, letterID string) error {
	letter, err := s.find(ctx, letterID)
	if err != nil {
		return err
	}
	if letter.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own excuse letters")
	}
	if letter.Status != models.ExcuseLetterPending {
		return appErrors.Clone(appErrors.ErrConflict, "only pending excuse letters can be deleted")
	}
	if err := s.letters.Delete(ctx, letter.ID); err != nil {
		return storageFailure(err, "failed to delete excuse letter")
	}
	return nil
}

// Get returns a letter visible to the actor.
func (s *ExcuseLetterService) Get(ctx context.Context, actor Actor, letterID string) (*ExcuseLetterView, error) {
	letter, err := s.find(ctx, letterID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleStudent:
		if letter.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "excuse letter belongs to another student")
		}
	case models.RoleTeacher:
		if _, err := loadOwnedClass(ctx, s.classes, actor.UserID, letter.ClassID); err != nil {
			return nil, err
		}
	}
	return s.view(*letter), nil
}

// List returns letters visible to the actor. Students only see their own, teachers only their classes.
func (s *ExcuseLetterService) List(ctx context.Context, actor Actor, req ListExcuseLettersRequest) ([]ExcuseLetterView, *models.Pagination, error) {
	filter := models.ExcuseLetterFilter{
		ClassID:   req.ClassID,
		StudentID: req.StudentID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleTeacher:
		filter.TeacherID = actor.UserID
	}
	if req.Status != "" {
		status, ok := models.ParseExcuseLetterStatus(req.Status)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unsupported excuse letter status %q", req.Status))
		}
		filter.Status = &status
	}
	if req.Date != "" {
		date, err := s.resolver.ParseDate(req.Date)
		if err != nil {
			return nil, nil, err
		}
		filter.Date = &date
	}

	letters, total, err := s.letters.List(ctx, filter)
	if err != nil {
		return nil, nil, storageFailure(err, "failed to list excuse letters")
	}
	views := make([]ExcuseLetterView, 0, len(letters))
	for _, letter := range letters {
		views = append(views, *s.view(letter))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ExcuseLetterService) find(ctx context.Context, id string) (*models.ExcuseLetter, error) {
	letter, err := s.letters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "excuse letter not found")
		}
		return nil, storageFailure(err, "failed to load excuse letter")
	}
	return letter, nil
}

func (s *ExcuseLetterService) view(letter models.ExcuseLetter) *ExcuseLetterView {
	view := &ExcuseLetterView{ExcuseLetter: letter}
	if letter.AttachmentRef == nil || *letter.AttachmentRef == "" || s.opts.Signer == nil {
		return view
	}
	url, expiresAt, err := s.opts.Signer.Sign(letter.StudentID, *letter.AttachmentRef)
	if err != nil {
		s.logger.Warn("sign attachment url", zap.String("letter_id", letter.ID), zap.Error(err))
		return view
	}
	view.AttachmentURL = &url
	view.AttachmentExpiresAt = &expiresAt
	return view
}

func (s *ExcuseLetterService) notify(ctx context.Context, userID, event string, letter *models.ExcuseLetter) {
	if s.opts.Notifier == nil {
		return
	}
	s.opts.Notifier.Notify(ctx, userID, event, map[string]interface{}{
		"excuse_letter_id": letter.ID,
		"class_id":         letter.ClassID,
		"student_id":       letter.StudentID,
		"date_absent":      letter.DateAbsent.Format("2006-01-02"),
		"status":           letter.Status,
	})
}
