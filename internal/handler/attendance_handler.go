package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, teacherID string, req service.RecordAttendanceRequest) (*models.AttendanceRecord, error)
	BulkRecord(ctx context.Context, teacherID string, req service.BulkRecordAttendanceRequest) (*service.BulkAttendanceResult, error)
	AutoAbsentSweep(ctx context.Context, teacherID string, req service.AutoAbsentSweepRequest) (*service.SweepResult, error)
	SyncExcuseLetterStatuses(ctx context.Context, teacherID string, req service.SyncExcuseLettersRequest) (*service.SyncResult, error)
	List(ctx context.Context, teacherID string, req service.ListAttendanceRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error)
	Get(ctx context.Context, teacherID, id string) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, teacherID, id string) error
	StudentSummary(ctx context.Context, teacherID, studentID, classID string) (*models.AttendanceSummary, error)
}

// AttendanceHandler exposes attendance endpoints to teachers.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record attendance for one student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.RecordAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// BulkRecord godoc
// @Summary Record attendance for a class session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkRecordAttendanceRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.BulkRecordAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.attendance.BulkRecord(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Sweep godoc
// @Summary Mark students without attendance as absent
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.AutoAbsentSweepRequest true "Sweep payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/sweep [post]
func (h *AttendanceHandler) Sweep(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.AutoAbsentSweepRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.attendance.AutoAbsentSweep(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SyncExcuses godoc
// @Summary Apply reviewed excuse letters to a class session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SyncExcuseLettersRequest true "Sync payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/sync-excuses [post]
func (h *AttendanceHandler) SyncExcuses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.SyncExcuseLettersRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.attendance.SyncExcuseLetterStatuses(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance of a class
// @Tags Attendance
// @Produce json
// @Param classId query string true "Class ID"
// @Param studentId query string false "Student ID"
// @Param status query string false "present, late, absent or excused"
// @Param dateFrom query string false "YYYY-MM-DD"
// @Param dateTo query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.ListAttendanceRequest
	if !bindQuery(c, &req) {
		return
	}
	rows, pagination, err := h.attendance.List(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	record, err := h.attendance.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Attendance summary of a student in a class
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{studentId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	summary, err := h.attendance.StudentSummary(c.Request.Context(), claims.UserID, c.Param("studentId"), c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
