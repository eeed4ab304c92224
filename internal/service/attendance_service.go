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
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

// DefaultSweepCutoffMinutes is used when neither the request nor the config sets a cutoff.
const DefaultSweepCutoffMinutes = 120

type attendanceStore interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.UpsertOutcome, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.UpsertOutcome, error)
	InsertMissing(ctx context.Context, records []models.AttendanceRecord) (int, error)
	Delete(ctx context.Context, id string) error
	StatusCounts(ctx context.Context, studentID, classID string) (map[models.AttendanceStatus]int, error)
}

type excuseLetterReader interface {
	FindByKey(ctx context.Context, studentID, classID string, date time.Time) (*models.ExcuseLetter, error)
	ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.ExcuseLetter, error)
}

type enrollmentChecker interface {
	IsActivelyEnrolled(ctx context.Context, studentID, classID string) (bool, error)
	ListActiveStudents(ctx context.Context, classID string) ([]models.EnrolledStudent, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type notifier interface {
	Notify(ctx context.Context, userID, eventType string, payload interface{})
}

type gradeCacheInvalidator interface {
	InvalidateClass(ctx context.Context, classID string)
}

// AttendanceOptions carries optional collaborators of AttendanceService.
type AttendanceOptions struct {
	Notifier           notifier
	GradeCache         gradeCacheInvalidator
	Metrics            *MetricsService
	SweepCutoffMinutes int
}

// AttendanceService records attendance and keeps it consistent with excuse letters.
type AttendanceService struct {
	records     attendanceStore
	letters     excuseLetterReader
	enrollments enrollmentChecker
	classes     classReader
	resolver    *StatusResolver
	validator   *validator.Validate
	logger      *zap.Logger
	opts        AttendanceOptions
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(records attendanceStore, letters excuseLetterReader, enrollments enrollmentChecker, classes classReader, resolver *StatusResolver, validate *validator.Validate, logger *zap.Logger, opts AttendanceOptions) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewStatusResolver(time.UTC, nil)
	}
	if opts.SweepCutoffMinutes <= 0 {
		opts.SweepCutoffMinutes = DefaultSweepCutoffMinutes
	}
	svc := &AttendanceService{
		records:     records,
		letters:     letters,
		enrollments: enrollments,
		classes:     classes,
		resolver:    resolver,
		validator:   validate,
		logger:      logger,
		opts:        opts,
	}
	_ = svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseAttendanceStatus(fl.Field().String())
		return ok
	})
	return svc
}

// RecordAttendanceRequest records one scan or manual entry.
type RecordAttendanceRequest struct {
	StudentID        string  `json:"student_id" validate:"required"`
	ClassID          string  `json:"class_id" validate:"required"`
	Date             string  `json:"date"`
	Status           string  `json:"status"`
	SessionStartedAt string  `json:"session_started_at"`
	ScanTime         string  `json:"scan_time"`
	Notes            *string `json:"notes" validate:"omitempty,max=500"`
}

// BulkAttendanceEntry is one student within a bulk request.
type BulkAttendanceEntry struct {
	StudentID string  `json:"student_id"`
	Status    string  `json:"status"`
	ScanTime  string  `json:"scan_time"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

// BulkRecordAttendanceRequest records a whole class session at once.
type BulkRecordAttendanceRequest struct {
	ClassID          string                `json:"class_id" validate:"required"`
	Date             string                `json:"date"`
	SessionStartedAt string                `json:"session_started_at"`
	Records          []BulkAttendanceEntry `json:"records" validate:"required,min=1,max=500"`
}

// BulkRecordError describes why one entry of a bulk request was skipped.
type BulkRecordError struct {
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BulkAttendanceResult summarises a bulk write.
type BulkAttendanceResult struct {
	SuccessCount int               `json:"success_count"`
	ErrorCount   int               `json:"error_count"`
	CreatedCount int               `json:"created_count"`
	UpdatedCount int               `json:"updated_count"`
	Errors       []BulkRecordError `json:"errors"`
}

// AutoAbsentSweepRequest marks students without a record once the cutoff has passed.
type AutoAbsentSweepRequest struct {
	ClassID          string `json:"class_id" validate:"required"`
	Date             string `json:"date"`
	SessionStartedAt string `json:"session_started_at"`
	CutoffMinutes    *int   `json:"cutoff_minutes" validate:"omitempty,min=1,max=1440"`
}

// SweepResult reports how many records a sweep created.
type SweepResult struct {
	ClassID       string    `json:"class_id"`
	Date          time.Time `json:"date"`
	CutoffMinutes int       `json:"cutoff_minutes"`
	CreatedCount  int       `json:"created_count"`
}

// SyncExcuseLettersRequest scopes a reconciliation run to one class session.
type SyncExcuseLettersRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Date    string `json:"date"`
}

// SyncResult reports the outcome of a reconciliation run.
type SyncResult struct {
	UpdatedCount int `json:"updated_count"`
	CreatedCount int `json:"created_count"`
	SkippedCount int `json:"skipped_count"`
}

// ListAttendanceRequest filters attendance listings.
type ListAttendanceRequest struct {
	ClassID   string `form:"classId" validate:"required"`
	StudentID string `form:"studentId"`
	Status    string `form:"status" validate:"omitempty,attendance_status"`
	DateFrom  string `form:"dateFrom"`
	DateTo    string `form:"dateTo"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// Record stores one attendance event after resolving it against any excuse letter.
func (s *AttendanceService) Record(ctx context.Context, teacherID string, req RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	class, err := s.ownedClass(ctx, teacherID, req.ClassID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, req.StudentID, class.ID)
	if err != nil {
		return nil, storageFailure(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student %s is not actively enrolled in class %s", req.StudentID, class.ID))
	}
	date, err := s.resolver.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	raw, err := s.resolver.ResolveRawStatus(StatusInput{
		Status:           req.Status,
		SessionStartedAt: req.SessionStartedAt,
		ScanTime:         req.ScanTime,
		Date:             date,
	})
	if err != nil {
		return nil, err
	}

	letter, err := s.letters.FindByKey(ctx, req.StudentID, class.ID, date)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, storageFailure(err, "failed to load excuse letter")
		}
	}

	final := ResolveFinalStatus(raw.Status, letter, req.Notes)
	outcome, err := s.records.Upsert(ctx, &models.AttendanceRecord{
		StudentID: req.StudentID,
		ClassID:   class.ID,
		TeacherID: teacherID,
		Date:      date,
		Status:    final.Status,
		TimeIn:    raw.TimeIn,
		Notes:     final.Notes,
	})
	if err != nil {
		return nil, storageFailure(err, "failed to save attendance")
	}

	s.afterWrite(ctx, class.ID, []models.AttendanceRecord{outcome.Record})
	return &outcome.Record, nil
}

// BulkRecord resolves every entry, skips invalid ones and writes the rest in one transaction.
func (s *AttendanceService) BulkRecord(ctx context.Context, teacherID string, req BulkRecordAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}
	class, err := s.ownedClass(ctx, teacherID, req.ClassID)
	if err != nil {
		return nil, err
	}
	date, err := s.resolver.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	active, err := s.activeStudentSet(ctx, class.ID)
	if err != nil {
		return nil, err
	}
	letters, err := s.lettersByStudent(ctx, class.ID, date)
	if err != nil {
		return nil, err
	}

	result := &BulkAttendanceResult{Errors: []BulkRecordError{}}
	reject := func(studentID string, err *appErrors.Error) {
		result.Errors = append(result.Errors, BulkRecordError{StudentID: studentID, Code: err.Code, Message: err.Message})
	}

	seen := make(map[string]struct{}, len(req.Records))
	records := make([]models.AttendanceRecord, 0, len(req.Records))
	for _, entry := range req.Records {
		studentID := strings.TrimSpace(entry.StudentID)
		if studentID == "" {
			reject(studentID, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
			continue
		}
		if _, dup := seen[studentID]; dup {
			reject(studentID, appErrors.Clone(appErrors.ErrValidation, "student appears more than once in the batch"))
			continue
		}
		seen[studentID] = struct{}{}
		if err := s.validator.Struct(entry); err != nil {
			reject(studentID, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance entry: %v", err)))
			continue
		}
		if _, ok := active[studentID]; !ok {
			reject(studentID, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student %s is not actively enrolled in class %s", studentID, class.ID)))
			continue
		}
		raw, err := s.resolver.ResolveRawStatus(StatusInput{
			Status:           entry.Status,
			SessionStartedAt: req.SessionStartedAt,
			ScanTime:         entry.ScanTime,
			Date:             date,
		})
		if err != nil {
			reject(studentID, appErrors.FromError(err))
			continue
		}
		final := ResolveFinalStatus(raw.Status, letters[studentID], entry.Notes)
		records = append(records, models.AttendanceRecord{
			StudentID: studentID,
			ClassID:   class.ID,
			TeacherID: teacherID,
			Date:      date,
			Status:    final.Status,
			TimeIn:    raw.TimeIn,
			Notes:     final.Notes,
		})
	}
	result.ErrorCount = len(result.Errors)

	if len(records) == 0 {
		return result, nil
	}

	outcomes, err := s.records.BulkUpsert(ctx, records)
	if err != nil {
		return nil, storageFailure(err, "failed to save attendance batch")
	}

	stored := make([]models.AttendanceRecord, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Created {
			result.CreatedCount++
		} else {
			result.UpdatedCount++
		}
		stored = append(stored, outcome.Record)
	}
	result.SuccessCount = len(outcomes)

	s.afterWrite(ctx, class.ID, stored)
	return result, nil
}

// AutoAbsentSweep creates a record for every actively enrolled student who has none for the session.
// Students with an approved letter are excused, everyone else is absent. Re-running creates nothing new.
func (s *AttendanceService) AutoAbsentSweep(ctx context.Context, teacherID string, req AutoAbsentSweepRequest) (*SweepResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sweep payload")
	}
	class, err := s.ownedClass(ctx, teacherID, req.ClassID)
	if err != nil {
		return nil, err
	}
	date, err := s.resolver.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	cutoff := s.opts.SweepCutoffMinutes
	if req.CutoffMinutes != nil {
		cutoff = *req.CutoffMinutes
	}
	if strings.TrimSpace(req.SessionStartedAt) != "" {
		start, err := s.resolver.ParseSessionStart(req.SessionStartedAt)
		if err != nil {
			return nil, err
		}
		if deadline := start.Add(time.Duration(cutoff) * time.Minute); s.resolver.Now().Before(deadline) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sweep is only allowed after %s", deadline.Format(time.RFC3339)))
		}
	}

	students, err := s.enrollments.ListActiveStudents(ctx, class.ID)
	if err != nil {
		return nil, storageFailure(err, "failed to load enrolled students")
	}
	existing, err := s.records.ListByClassAndDate(ctx, class.ID, date)
	if err != nil {
		return nil, storageFailure(err, "failed to load session attendance")
	}
	recorded := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		recorded[rec.StudentID] = struct{}{}
	}
	letters, err := s.lettersByStudent(ctx, class.ID, date)
	if err != nil {
		return nil, err
	}

	missing := make([]models.AttendanceRecord, 0)
	for _, student := range students {
		if _, ok := recorded[student.StudentID]; ok {
			continue
		}
		record := models.AttendanceRecord{
			StudentID: student.StudentID,
			ClassID:   class.ID,
			TeacherID: teacherID,
			Date:      date,
			Status:    models.AttendanceStatusAbsent,
			Notes:     strPtr(sweepAbsentNote(cutoff)),
		}
		if letter := letters[student.StudentID]; letter != nil && letter.Status == models.ExcuseLetterApproved {
			record.Status = models.AttendanceStatusExcused
			record.Notes = strPtr(approvedExcuseNote(*letter))
		}
		missing = append(missing, record)
	}

	created, err := s.records.InsertMissing(ctx, missing)
	if err != nil {
		return nil, storageFailure(err, "failed to save sweep results")
	}

	s.logger.Info("attendance sweep completed",
		zap.String("class_id", class.ID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("cutoff_minutes", cutoff),
		zap.Int("candidates", len(missing)),
		zap.Int("created", created),
	)
	s.opts.Metrics.RecordSweep(created)
	if created > 0 {
		s.invalidateGrades(ctx, class.ID)
	}

	return &SweepResult{ClassID: class.ID, Date: date, CutoffMinutes: cutoff, CreatedCount: created}, nil
}

// SyncExcuseLetterStatuses pushes every reviewed letter of a session onto attendance in one transaction.
func (s *AttendanceService) SyncExcuseLetterStatuses(ctx context.Context, teacherID string, req SyncExcuseLettersRequest) (*SyncResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sync payload")
	}
	class, err := s.ownedClass(ctx, teacherID, req.ClassID)
	if err != nil {
		return nil, err
	}
	date, err := s.resolver.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	letters, err := s.letters.ListByClassAndDate(ctx, class.ID, date)
	if err != nil {
		return nil, storageFailure(err, "failed to load excuse letters")
	}

	result := &SyncResult{}
	records := make([]models.AttendanceRecord, 0, len(letters))
	for _, letter := range letters {
		resolution, ok := ReconciledStatus(letter)
		if !ok {
			result.SkippedCount++
			continue
		}
		records = append(records, models.AttendanceRecord{
			StudentID: letter.StudentID,
			ClassID:   class.ID,
			TeacherID: teacherID,
			Date:      date,
			Status:    resolution.Status,
			Notes:     resolution.Notes,
		})
	}
	if len(records) == 0 {
		return result, nil
	}

	outcomes, err := s.records.BulkUpsert(ctx, records)
	if err != nil {
		return nil, storageFailure(err, "failed to sync excuse letters")
	}
	stored := make([]models.AttendanceRecord, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Created {
			result.CreatedCount++
		} else {
			result.UpdatedCount++
		}
		stored = append(stored, outcome.Record)
	}

	s.logger.Info("excuse letters synced",
		zap.String("class_id", class.ID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("created", result.CreatedCount),
		zap.Int("skipped", result.SkippedCount),
	)
	s.afterWrite(ctx, class.ID, stored)
	return result, nil
}

// OnExcuseLetterStatusChange forces the attendance of a freshly reviewed letter.
// It returns nil for letters that are still pending.
func (s *AttendanceService) OnExcuseLetterStatusChange(ctx context.Context, letter models.ExcuseLetter) (*models.AttendanceRecord, error) {
	resolution, ok := ReconciledStatus(letter)
	if !ok {
		return nil, nil
	}
	outcome, err := s.records.Upsert(ctx, &models.AttendanceRecord{
		StudentID: letter.StudentID,
		ClassID:   letter.ClassID,
		TeacherID: letter.TeacherID,
		Date:      letter.DateAbsent,
		Status:    resolution.Status,
		Notes:     resolution.Notes,
	})
	if err != nil {
		return nil, storageFailure(err, "failed to reconcile attendance")
	}
	s.opts.Metrics.RecordAttendance(outcome.Record.Status)
	s.invalidateGrades(ctx, letter.ClassID)
	return &outcome.Record, nil
}

// List returns attendance rows of a class owned by the teacher.
func (s *AttendanceService) List(ctx context.Context, teacherID string, req ListAttendanceRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance filter")
	}
	if _, err := s.ownedClass(ctx, teacherID, req.ClassID); err != nil {
		return nil, nil, err
	}
	filter := models.AttendanceFilter{
		ClassID:   req.ClassID,
		StudentID: req.StudentID,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != "" {
		status, _ := models.ParseAttendanceStatus(req.Status)
		filter.Status = &status
	}
	if req.DateFrom != "" {
		from, err := s.resolver.ParseDate(req.DateFrom)
		if err != nil {
			return nil, nil, err
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := s.resolver.ParseDate(req.DateTo)
		if err != nil {
			return nil, nil, err
		}
		filter.DateTo = &to
	}

	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, storageFailure(err, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one record of a class owned by the teacher.
func (s *AttendanceService) Get(ctx context.Context, teacherID, id string) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, storageFailure(err, "failed to load attendance")
	}
	if _, err := s.ownedClass(ctx, teacherID, record.ClassID); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record of a class owned by the teacher.
func (s *AttendanceService) Delete(ctx context.Context, teacherID, id string) error {
	record, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, record.ID); err != nil {
		return storageFailure(err, "failed to delete attendance")
	}
	s.invalidateGrades(ctx, record.ClassID)
	return nil
}

// StudentSummary counts statuses of a student in a class and scores them on the attendance scale.
func (s *AttendanceService) StudentSummary(ctx context.Context, teacherID, studentID, classID string) (*models.AttendanceSummary, error) {
	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(classID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and classId are required")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	counts, err := s.records.StatusCounts(ctx, studentID, classID)
	if err != nil {
		return nil, storageFailure(err, "failed to summarise attendance")
	}
	summary := &models.AttendanceSummary{
		StudentID: studentID,
		ClassID:   classID,
		Present:   counts[models.AttendanceStatusPresent],
		Late:      counts[models.AttendanceStatusLate],
		Absent:    counts[models.AttendanceStatusAbsent],
		Excused:   counts[models.AttendanceStatusExcused],
	}
	summary.Total = summary.Present + summary.Late + summary.Absent + summary.Excused
	if summary.Total > 0 {
		points := summary.Present*AttendancePoints(models.AttendanceStatusPresent) +
			summary.Late*AttendancePoints(models.AttendanceStatusLate) +
			summary.Excused*AttendancePoints(models.AttendanceStatusExcused)
		summary.Percent = roundGrade(float64(points) / float64(MaxAttendancePoints*summary.Total) * 100)
	}
	return summary, nil
}

func (s *AttendanceService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	return loadOwnedClass(ctx, s.classes, teacherID, classID)
}

func loadOwnedClass(ctx context.Context, classes classReader, teacherID, classID string) (*models.Class, error) {
	class, err := classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storageFailure(err, "failed to load class")
	}
	if class.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return class, nil
}

func (s *AttendanceService) activeStudentSet(ctx context.Context, classID string) (map[string]struct{}, error) {
	students, err := s.enrollments.ListActiveStudents(ctx, classID)
	if err != nil {
		return nil, storageFailure(err, "failed to load enrolled students")
	}
	set := make(map[string]struct{}, len(students))
	for _, st := range students {
		set[st.StudentID] = struct{}{}
	}
	return set, nil
}

func (s *AttendanceService) lettersByStudent(ctx context.Context, classID string, date time.Time) (map[string]*models.ExcuseLetter, error) {
	letters, err := s.letters.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, storageFailure(err, "failed to load excuse letters")
	}
	byStudent := make(map[string]*models.ExcuseLetter, len(letters))
	for i := range letters {
		byStudent[letters[i].StudentID] = &letters[i]
	}
	return byStudent, nil
}

func (s *AttendanceService) afterWrite(ctx context.Context, classID string, records []models.AttendanceRecord) {
	for _, rec := range records {
		s.opts.Metrics.RecordAttendance(rec.Status)
		if s.opts.Notifier != nil {
			s.opts.Notifier.Notify(ctx, rec.StudentID, models.EventAttendanceRecorded, map[string]interface{}{
				"attendance_id": rec.ID,
				"class_id":      rec.ClassID,
				"date":          rec.Date.Format("2006-01-02"),
				"status":        rec.Status,
			})
		}
	}
	s.invalidateGrades(ctx, classID)
}

func (s *AttendanceService) invalidateGrades(ctx context.Context, classID string) {
	if s.opts.GradeCache != nil {
		s.opts.GradeCache.InvalidateClass(ctx, classID)
	}
}

func storageFailure(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, message)
}
