package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type gradeServiceMock struct {
	classID string
	weights service.GradeWeightsRequest
	err     error
}

func (m *gradeServiceMock) ClassGrades(ctx context.Context, teacherID, classID string, req service.GradeWeightsRequest) (*models.ClassGradeReport, error) {
	m.classID = classID
	m.weights = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ClassGradeReport{ClassID: classID, Students: []models.StudentGrade{{StudentID: "stu-1", FinalGrade: 79.58}}}, nil
}

func (m *gradeServiceMock) StudentGrade(ctx context.Context, teacherID, classID, studentID string, req service.GradeWeightsRequest) (*models.StudentGrade, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.StudentGrade{StudentID: studentID, FinalGrade: 88}, nil
}

func TestGradeHandlerClassGrades(t *testing.T) {
	mockSvc := &gradeServiceMock{}
	h := NewGradeHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/classes/class-1/grades", `{"attendance":10,"activity":20,"assignment_quiz":30,"major_exam":40}`, teacherClaims)
	c.Params = gin.Params{{Key: "classId", Value: "class-1"}}
	h.ClassGrades(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mockSvc.classID)
	assert.Equal(t, service.GradeWeightsRequest{Attendance: 10, Activity: 20, AssignmentQuiz: 30, MajorExam: 40}, mockSvc.weights)
	students := decodeEnvelope(t, w)["data"].(map[string]interface{})["students"].([]interface{})
	assert.Equal(t, 79.58, students[0].(map[string]interface{})["final_grade"])
}

func TestGradeHandlerInvalidWeights(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{err: appErrors.Clone(appErrors.ErrInvalidWeights, "weights sum to 101.00, expected 100")})

	c, w := newTestContext(http.MethodPost, "/classes/class-1/grades/stu-1", `{"attendance":10,"activity":30,"assignment_quiz":30,"major_exam":31}`, teacherClaims)
	c.Params = gin.Params{{Key: "classId", Value: "class-1"}, {Key: "studentId", Value: "stu-1"}}
	h.StudentGrade(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_WEIGHTS", decodeEnvelope(t, w)["error"].(map[string]interface{})["code"])
}

type notificationListerMock struct {
	userID string
	limit  int
	err    error
}

func (m *notificationListerMock) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	m.userID = userID
	m.limit = limit
	return []models.Notification{{ID: "n-1", UserID: userID, EventType: models.EventExcuseLetterReviewed}}, m.err
}

func TestNotificationHandlerList(t *testing.T) {
	mockSvc := &notificationListerMock{}
	h := NewNotificationHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/notifications?limit=5", "", studentClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", mockSvc.userID)
	assert.Equal(t, 5, mockSvc.limit)

	mockSvc.err = errors.New("db down")
	c, w = newTestContext(http.MethodGet, "/notifications", "", studentClaims)
	h.List(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordAttendance(models.AttendanceStatusLate)

	healthy := NewMetricsHandler(metrics, map[string]Pinger{"postgres": pingerFunc(func(context.Context) error { return nil })})
	router := gin.New()
	router.GET("/metrics", healthy.Prometheus)
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `attendance_records_total{status="late"} 1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := NewMetricsHandler(nil, map[string]Pinger{"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") })})
	c, w := newTestContext(http.MethodGet, "/ready", "", nil)
	degraded.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newTestContext(http.MethodGet, "/metrics", "", nil)
	degraded.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
