package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type excuseLetterService interface {
	Submit(ctx context.Context, studentID string, req service.SubmitExcuseLetterRequest) (*service.ExcuseLetterView, error)
	Review(ctx context.Context, teacherID, letterID string, req service.ReviewExcuseLetterRequest) (*service.ExcuseLetterView, error)
	Delete(ctx context.Context, studentID, letterID string) error
	Get(ctx context.Context, actor service.Actor, letterID string) (*service.ExcuseLetterView, error)
	List(ctx context.Context, actor service.Actor, req service.ListExcuseLettersRequest) ([]service.ExcuseLetterView, *models.Pagination, error)
}

// ExcuseLetterHandler exposes the excuse letter workflow.
type ExcuseLetterHandler struct {
	letters excuseLetterService
}

// NewExcuseLetterHandler constructs the handler.
func NewExcuseLetterHandler(letters excuseLetterService) *ExcuseLetterHandler {
	return &ExcuseLetterHandler{letters: letters}
}

// Submit godoc
// @Summary Submit an excuse letter
// @Tags ExcuseLetters
// @Accept json
// @Produce json
// @Param payload body service.SubmitExcuseLetterRequest true "Letter payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /excuse-letters [post]
func (h *ExcuseLetterHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.SubmitExcuseLetterRequest
	if !bindJSON(c, &req) {
		return
	}
	letter, err := h.letters.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, letter)
}

// List godoc
// @Summary List excuse letters
// @Tags ExcuseLetters
// @Produce json
// @Param classId query string false "Class ID"
// @Param studentId query string false "Student ID (ignored for students)"
// @Param status query string false "pending, approved or rejected"
// @Param date query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /excuse-letters [get]
func (h *ExcuseLetterHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.ListExcuseLettersRequest
	if !bindQuery(c, &req) {
		return
	}
	letters, pagination, err := h.letters.List(c.Request.Context(), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letters, pagination)
}

// Get godoc
// @Summary Get an excuse letter
// @Tags ExcuseLetters
// @Produce json
// @Param id path string true "Letter ID"
// @Success 200 {object} response.Envelope
// @Router /excuse-letters/{id} [get]
func (h *ExcuseLetterHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	letter, err := h.letters.Get(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letter, nil)
}

// Review godoc
// @Summary Approve or reject an excuse letter
// @Tags ExcuseLetters
// @Accept json
// @Produce json
// @Param id path string true "Letter ID"
// @Param payload body service.ReviewExcuseLetterRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /excuse-letters/{id}/review [patch]
func (h *ExcuseLetterHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req service.ReviewExcuseLetterRequest
	if !bindJSON(c, &req) {
		return
	}
	letter, err := h.letters.Review(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letter, nil)
}

// Delete godoc
// @Summary Withdraw a pending excuse letter
// @Tags ExcuseLetters
// @Param id path string true "Letter ID"
// @Success 204
// @Router /excuse-letters/{id} [delete]
func (h *ExcuseLetterHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	if err := h.letters.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func actorFromClaims(claims *models.JWTClaims) service.Actor {
	return service.Actor{UserID: claims.UserID, Role: claims.Role}
}
