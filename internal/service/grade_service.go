package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type attendanceHistoryReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.AttendanceRecord, error)
}

type taskGradeReader interface {
	ListForStudents(ctx context.Context, classID string, studentIDs []string) ([]models.TaskGrade, error)
}

type gradeCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// GradeWeightsRequest carries the four category weights in percent.
type GradeWeightsRequest struct {
	Attendance     float64 `json:"attendance"`
	Activity       float64 `json:"activity"`
	AssignmentQuiz float64 `json:"assignment_quiz"`
	MajorExam      float64 `json:"major_exam"`
}

// GradeService aggregates attendance and task grades into weighted final grades.
type GradeService struct {
	attendance  attendanceHistoryReader
	tasks       taskGradeReader
	enrollments enrollmentChecker
	classes     classReader
	cache       gradeCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewGradeService constructs GradeService. reportCache may be nil.
func NewGradeService(attendance attendanceHistoryReader, tasks taskGradeReader, enrollments enrollmentChecker, classes classReader, reportCache gradeCache, cacheTTL time.Duration, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		attendance:  attendance,
		tasks:       tasks,
		enrollments: enrollments,
		classes:     classes,
		cache:       reportCache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// ClassGrades computes the breakdown of every actively enrolled student of a class.
func (s *GradeService) ClassGrades(ctx context.Context, teacherID, classID string, req GradeWeightsRequest) (*models.ClassGradeReport, error) {
	weights, err := buildWeights(req)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedClass(ctx, s.classes, teacherID, classID); err != nil {
		return nil, err
	}

	key := classGradesKey(classID, weights)
	if s.cache != nil {
		var cached models.ClassGradeReport
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	students, err := s.enrollments.ListActiveStudents(ctx, classID)
	if err != nil {
		return nil, storageFailure(err, "failed to load enrolled students")
	}
	statuses, err := s.statusesByStudent(ctx, classID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.StudentID)
	}
	grades, err := s.gradesByStudent(ctx, classID, ids)
	if err != nil {
		return nil, err
	}

	report := &models.ClassGradeReport{
		ClassID:  classID,
		Weights:  weightsMap(weights),
		Students: make([]models.StudentGrade, 0, len(students)),
	}
	for _, st := range students {
		breakdown := StudentBreakdown(st.StudentID, statuses[st.StudentID], grades[st.StudentID], weights)
		breakdown.StudentName = st.StudentName
		report.Students = append(report.Students, breakdown)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, report, s.cacheTTL)
	}
	return report, nil
}

// StudentGrade computes the breakdown of one student in a class.
func (s *GradeService) StudentGrade(ctx context.Context, teacherID, classID, studentID string, req GradeWeightsRequest) (*models.StudentGrade, error) {
	weights, err := buildWeights(req)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedClass(ctx, s.classes, teacherID, classID); err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, studentID, classID)
	if err != nil {
		return nil, storageFailure(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not actively enrolled in this class")
	}

	statuses, err := s.statusesByStudent(ctx, classID)
	if err != nil {
		return nil, err
	}
	grades, err := s.gradesByStudent(ctx, classID, []string{studentID})
	if err != nil {
		return nil, err
	}
	breakdown := StudentBreakdown(studentID, statuses[studentID], grades[studentID], weights)
	return &breakdown, nil
}

// InvalidateClass drops every cached report of a class.
func (s *GradeService) InvalidateClass(ctx context.Context, classID string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.Key("grades", "class", classID, "*")); err != nil {
		s.logger.Warn("invalidate class grades", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *GradeService) statusesByStudent(ctx context.Context, classID string) (map[string][]models.AttendanceStatus, error) {
	records, err := s.attendance.ListByClass(ctx, classID)
	if err != nil {
		return nil, storageFailure(err, "failed to load attendance")
	}
	out := make(map[string][]models.AttendanceStatus)
	for _, rec := range records {
		out[rec.StudentID] = append(out[rec.StudentID], rec.Status)
	}
	return out, nil
}

func (s *GradeService) gradesByStudent(ctx context.Context, classID string, studentIDs []string) (map[string][]models.TaskGrade, error) {
	grades, err := s.tasks.ListForStudents(ctx, classID, studentIDs)
	if err != nil {
		return nil, storageFailure(err, "failed to load task grades")
	}
	out := make(map[string][]models.TaskGrade)
	for _, g := range grades {
		out[g.StudentID] = append(out[g.StudentID], g)
	}
	return out, nil
}

func buildWeights(req GradeWeightsRequest) (models.GradeWeights, error) {
	weights, err := models.NewGradeWeights(req.Attendance, req.Activity, req.AssignmentQuiz, req.MajorExam)
	if err != nil {
		return models.GradeWeights{}, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error())
	}
	return weights, nil
}

func classGradesKey(classID string, weights models.GradeWeights) string {
	return cache.Key("grades", "class", classID, weights.String())
}

func weightsMap(w models.GradeWeights) map[string]float64 {
	return map[string]float64{
		"attendance":      w.Attendance(),
		"activity":        w.Activity(),
		"assignment_quiz": w.AssignmentQuiz(),
		"major_exam":      w.MajorExam(),
	}
}
