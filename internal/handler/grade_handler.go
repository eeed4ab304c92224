package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type gradeService interface {
	ClassGrades(ctx context.Context, teacherID, classID string, req service.GradeWeightsRequest) (*models.ClassGradeReport, error)
	StudentGrade(ctx context.Context, teacherID, classID, studentID string, req service.GradeWeightsRequest) (*models.StudentGrade, error)
}

// GradeHandler exposes weighted grade reports.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ClassGrades godoc
// @Summary Compute final grades for a class
// @Tags Grades
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body service.GradeWeightsRequest true "Category weights in percent"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{classId}/grades [post]
func (h *GradeHandler) ClassGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.GradeWeightsRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.grades.ClassGrades(c.Request.Context(), claims.UserID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentGrade godoc
// @Summary Compute the final grade of one student
// @Tags Grades
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.GradeWeightsRequest true "Category weights in percent"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/grades/{studentId} [post]
func (h *GradeHandler) StudentGrade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.GradeWeightsRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.grades.StudentGrade(c.Request.Context(), claims.UserID, c.Param("classId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}
