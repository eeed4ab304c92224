package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := t[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Attendance:    NewAttendanceHandler(&attendanceServiceMock{recordResp: &models.AttendanceRecord{ID: "att-1"}}),
		ExcuseLetters: NewExcuseLetterHandler(&excuseLetterServiceMock{}),
		Grades:        NewGradeHandler(&gradeServiceMock{}),
		Notifications: NewNotificationHandler(&notificationListerMock{}),
	}, tokenTable{
		"teacher": teacherClaims,
		"student": studentClaims,
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
	})
	return router
}

func TestRoutesEnforceRoles(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"anonymous", http.MethodGet, "/api/v1/attendance?classId=c", "", "", http.StatusUnauthorized},
		{"teacher records", http.MethodPost, "/api/v1/attendance", `{"student_id":"s","class_id":"c"}`, "teacher", http.StatusCreated},
		{"student cannot record", http.MethodPost, "/api/v1/attendance", `{"student_id":"s","class_id":"c"}`, "student", http.StatusForbidden},
		{"teacher reads record", http.MethodGet, "/api/v1/attendance/att-1", "", "teacher", http.StatusOK},
		{"student submits letter", http.MethodPost, "/api/v1/excuse-letters", `{"class_id":"c","date_absent":"2024-03-04","reason":"Flu"}`, "student", http.StatusCreated},
		{"teacher cannot submit letter", http.MethodPost, "/api/v1/excuse-letters", `{}`, "teacher", http.StatusForbidden},
		{"student lists letters", http.MethodGet, "/api/v1/excuse-letters", "", "student", http.StatusOK},
		{"admin cannot list letters", http.MethodGet, "/api/v1/excuse-letters", "", "admin", http.StatusForbidden},
		{"student cannot review", http.MethodPatch, "/api/v1/excuse-letters/l-1/review", `{"status":"approved"}`, "student", http.StatusForbidden},
		{"teacher reviews", http.MethodPatch, "/api/v1/excuse-letters/l-1/review", `{"status":"approved"}`, "teacher", http.StatusOK},
		{"teacher grades", http.MethodPost, "/api/v1/classes/c/grades", `{"attendance":25,"activity":25,"assignment_quiz":25,"major_exam":25}`, "teacher", http.StatusOK},
		{"student cannot grade", http.MethodPost, "/api/v1/classes/c/grades/s", `{}`, "student", http.StatusForbidden},
		{"anyone lists notifications", http.MethodGet, "/api/v1/notifications", "", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
