package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/middleware"
	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Attendance    *AttendanceHandler
	ExcuseLetters *ExcuseLetterHandler
	Grades        *GradeHandler
	Notifications *NotificationHandler
}

// RegisterRoutes mounts every authenticated endpoint on group.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	secured := group.Group("")
	secured.Use(middleware.JWT(tokens))

	teacher := middleware.RequireRoles(models.RoleTeacher)
	student := middleware.RequireRoles(models.RoleStudent)
	teacherOrStudent := middleware.RequireRoles(models.RoleTeacher, models.RoleStudent)

	attendance := secured.Group("/attendance", teacher)
	attendance.POST("", h.Attendance.Record)
	attendance.GET("", h.Attendance.List)
	attendance.POST("/bulk", h.Attendance.BulkRecord)
	attendance.POST("/sweep", h.Attendance.Sweep)
	attendance.POST("/sync-excuses", h.Attendance.SyncExcuses)
	attendance.GET("/students/:studentId/summary", h.Attendance.Summary)
	attendance.GET("/:id", h.Attendance.Get)
	attendance.DELETE("/:id", h.Attendance.Delete)

	letters := secured.Group("/excuse-letters")
	letters.POST("", student, h.ExcuseLetters.Submit)
	letters.GET("", teacherOrStudent, h.ExcuseLetters.List)
	letters.GET("/:id", teacherOrStudent, h.ExcuseLetters.Get)
	letters.PATCH("/:id/review", teacher, h.ExcuseLetters.Review)
	letters.DELETE("/:id", student, h.ExcuseLetters.Delete)

	grades := secured.Group("/classes/:classId/grades", teacher)
	grades.POST("", h.Grades.ClassGrades)
	grades.POST("/:studentId", h.Grades.StudentGrade)

	secured.GET("/notifications", h.Notifications.List)
}
