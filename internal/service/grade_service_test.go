package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type stubTaskGrades struct {
	grades []models.TaskGrade
	calls  int
}

func (s *stubTaskGrades) ListForStudents(ctx context.Context, classID string, studentIDs []string) ([]models.TaskGrade, error) {
	s.calls++
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	var out []models.TaskGrade
	for _, g := range s.grades {
		if wanted[g.StudentID] {
			out = append(out, g)
		}
	}
	return out, nil
}

type memoryGradeCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryGradeCache() *memoryGradeCache {
	return &memoryGradeCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryGradeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryGradeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memoryGradeCache) Invalidate(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

type gradeFixture struct {
	svc   *GradeService
	att   *attendanceFixture
	tasks *stubTaskGrades
	cache *memoryGradeCache
}

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	att := newAttendanceFixture(fixtureNow)
	ctx := context.Background()
	for _, rec := range []RecordAttendanceRequest{
		{StudentID: "stu-1", ClassID: "class-1", Date: "2024-03-04", Status: "present"},
		{StudentID: "stu-1", ClassID: "class-1", Date: "2024-03-05", Status: "late"},
		{StudentID: "stu-2", ClassID: "class-1", Date: "2024-03-04", Status: "absent"},
		{StudentID: "stu-2", ClassID: "class-1", Date: "2024-03-05", Status: "excused"},
	} {
		_, err := att.svc.Record(ctx, "teacher-1", rec)
		require.NoError(t, err)
	}

	tasks := &stubTaskGrades{grades: []models.TaskGrade{
		{TaskID: "t1", StudentID: "stu-1", Category: models.TaskCategoryActivity, Points: 10, Grade: gradePtr(8)},
		{TaskID: "t2", StudentID: "stu-1", Category: models.TaskCategoryQuiz, Points: 20, Grade: gradePtr(20)},
		{TaskID: "t3", StudentID: "stu-1", Category: models.TaskCategoryMajorExam, Points: 100, Grade: gradePtr(90)},
		{TaskID: "t3", StudentID: "stu-2", Category: models.TaskCategoryMajorExam, Points: 100, Grade: gradePtr(60)},
		{TaskID: "t2", StudentID: "stu-2", Category: models.TaskCategoryQuiz, Points: 20},
	}}
	cache := newMemoryGradeCache()
	svc := NewGradeService(att.store, tasks, att.enrollments, fakeClasses{"class-1": {ID: "class-1", TeacherID: "teacher-1"}}, cache, 5*time.Minute, zap.NewNop())
	return &gradeFixture{svc: svc, att: att, tasks: tasks, cache: cache}
}

var equalWeights = GradeWeightsRequest{Attendance: 25, Activity: 25, AssignmentQuiz: 25, MajorExam: 25}

func TestGradeServiceClassGrades(t *testing.T) {
	f := newGradeFixture(t)

	report, err := f.svc.ClassGrades(context.Background(), "teacher-1", "class-1", equalWeights)
	require.NoError(t, err)
	require.Len(t, report.Students, 3)
	assert.Equal(t, 25.0, report.Weights["major_exam"])

	byID := map[string]models.StudentGrade{}
	for _, st := range report.Students {
		byID[st.StudentID] = st
	}

	ana := byID["stu-1"]
	assert.Equal(t, "Ana", ana.StudentName)
	assert.Equal(t, 2, ana.AttendanceSessions)
	assert.Equal(t, 83.33, ana.AttendancePercentage)
	assert.Equal(t, 80.0, ana.ActivityAverage)
	assert.Equal(t, 100.0, ana.AssignmentQuizAvg)
	assert.Equal(t, 90.0, ana.MajorExamAverage)
	assert.InDelta(t, (83.3333+80+100+90)/4, ana.FinalGrade, 0.01)

	budi := byID["stu-2"]
	assert.InDelta(t, 41.67, budi.AttendancePercentage, 0.001)
	assert.Zero(t, budi.AssignmentQuizAvg)
	assert.Equal(t, 60.0, budi.MajorExamAverage)

	citra := byID["stu-3"]
	assert.Zero(t, citra.AttendanceSessions)
	assert.Zero(t, citra.FinalGrade)
}

func TestGradeServiceCachesReports(t *testing.T) {
	f := newGradeFixture(t)
	ctx := context.Background()

	first, err := f.svc.ClassGrades(ctx, "teacher-1", "class-1", equalWeights)
	require.NoError(t, err)
	assert.Len(t, f.cache.entries, 1)
	for _, ttl := range f.cache.ttls {
		assert.Equal(t, 5*time.Minute, ttl)
	}

	second, err := f.svc.ClassGrades(ctx, "teacher-1", "class-1", equalWeights)
	require.NoError(t, err)
	assert.Equal(t, 1, f.tasks.calls)
	assert.Equal(t, first.Students, second.Students)

	f.svc.InvalidateClass(ctx, "class-1")
	assert.Empty(t, f.cache.entries)

	_, err = f.svc.ClassGrades(ctx, "teacher-1", "class-1", equalWeights)
	require.NoError(t, err)
	assert.Equal(t, 2, f.tasks.calls)
}

func TestGradeServiceCacheKeyKeepsWeightPrecision(t *testing.T) {
	f := newGradeFixture(t)
	ctx := context.Background()

	_, err := f.svc.ClassGrades(ctx, "teacher-1", "class-1", GradeWeightsRequest{Attendance: 33.334, Activity: 33.333, AssignmentQuiz: 33.333})
	require.NoError(t, err)
	_, err = f.svc.ClassGrades(ctx, "teacher-1", "class-1", GradeWeightsRequest{Attendance: 33.333, Activity: 33.334, AssignmentQuiz: 33.333})
	require.NoError(t, err)

	assert.Equal(t, 2, f.tasks.calls)
	assert.Len(t, f.cache.entries, 2)
}

func TestGradeServiceRejectsInvalidWeights(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.svc.ClassGrades(context.Background(), "teacher-1", "class-1", GradeWeightsRequest{Attendance: 10, Activity: 30, AssignmentQuiz: 30, MajorExam: 31})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))

	_, err = f.svc.StudentGrade(context.Background(), "teacher-1", "class-1", "stu-1", GradeWeightsRequest{Attendance: -10, Activity: 50, AssignmentQuiz: 30, MajorExam: 30})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))
	assert.Zero(t, f.tasks.calls)
}

func TestGradeServiceStudentGrade(t *testing.T) {
	f := newGradeFixture(t)
	ctx := context.Background()
	weights := GradeWeightsRequest{Attendance: 10, Activity: 20, AssignmentQuiz: 30, MajorExam: 40}

	grade, err := f.svc.StudentGrade(ctx, "teacher-1", "class-1", "stu-1", weights)
	require.NoError(t, err)
	assert.InDelta(t, 83.3333*0.1+80*0.2+100*0.3+90*0.4, grade.FinalGrade, 0.01)

	_, err = f.svc.StudentGrade(ctx, "teacher-1", "class-1", "stu-9", weights)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEnrolled))

	_, err = f.svc.StudentGrade(ctx, "teacher-2", "class-1", "stu-1", weights)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAttendanceWritesInvalidateGradeReports(t *testing.T) {
	att := newAttendanceFixture(fixtureNow)
	cache := newMemoryGradeCache()
	grades := NewGradeService(att.store, &stubTaskGrades{}, att.enrollments, fakeClasses{"class-1": {ID: "class-1", TeacherID: "teacher-1"}}, cache, time.Minute, nil)
	att.svc.opts.GradeCache = grades
	ctx := context.Background()

	_, err := grades.ClassGrades(ctx, "teacher-1", "class-1", equalWeights)
	require.NoError(t, err)
	require.Len(t, cache.entries, 1)

	_, err = att.svc.Record(ctx, "teacher-1", RecordAttendanceRequest{StudentID: "stu-1", ClassID: "class-1", Status: "present"})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}
