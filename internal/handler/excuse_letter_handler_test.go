package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type excuseLetterServiceMock struct {
	submitErr  error
	reviewErr  error
	reviewID   string
	reviewReq  service.ReviewExcuseLetterRequest
	listActor  service.Actor
	getActor   service.Actor
	deleteArgs []string
}

func (m *excuseLetterServiceMock) Submit(ctx context.Context, studentID string, req service.SubmitExcuseLetterRequest) (*service.ExcuseLetterView, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &service.ExcuseLetterView{ExcuseLetter: models.ExcuseLetter{ID: "letter-1", StudentID: studentID, Reason: req.Reason, Status: models.ExcuseLetterPending}}, nil
}

func (m *excuseLetterServiceMock) Review(ctx context.Context, teacherID, letterID string, req service.ReviewExcuseLetterRequest) (*service.ExcuseLetterView, error) {
	m.reviewID = letterID
	m.reviewReq = req
	if m.reviewErr != nil {
		return nil, m.reviewErr
	}
	return &service.ExcuseLetterView{ExcuseLetter: models.ExcuseLetter{ID: letterID, Status: models.ExcuseLetterApproved}}, nil
}

func (m *excuseLetterServiceMock) Delete(ctx context.Context, studentID, letterID string) error {
	m.deleteArgs = []string{studentID, letterID}
	return nil
}

func (m *excuseLetterServiceMock) Get(ctx context.Context, actor service.Actor, letterID string) (*service.ExcuseLetterView, error) {
	m.getActor = actor
	return &service.ExcuseLetterView{ExcuseLetter: models.ExcuseLetter{ID: letterID}}, nil
}

func (m *excuseLetterServiceMock) List(ctx context.Context, actor service.Actor, req service.ListExcuseLettersRequest) ([]service.ExcuseLetterView, *models.Pagination, error) {
	m.listActor = actor
	return []service.ExcuseLetterView{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

var studentClaims = &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

func TestExcuseLetterHandlerSubmit(t *testing.T) {
	h := NewExcuseLetterHandler(&excuseLetterServiceMock{})

	c, w := newTestContext(http.MethodPost, "/excuse-letters", `{"class_id":"class-1","date_absent":"2024-03-04","reason":"Flu"}`, studentClaims)
	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "stu-1", data["student_id"])

	h = NewExcuseLetterHandler(&excuseLetterServiceMock{submitErr: appErrors.Clone(appErrors.ErrDuplicateSubmission, "an excuse letter for 2024-03-04 already exists")})
	c, w = newTestContext(http.MethodPost, "/excuse-letters", `{"class_id":"class-1","date_absent":"2024-03-04","reason":"Flu"}`, studentClaims)
	h.Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_SUBMISSION", decodeEnvelope(t, w)["error"].(map[string]interface{})["code"])
}

func TestExcuseLetterHandlerReview(t *testing.T) {
	mockSvc := &excuseLetterServiceMock{}
	h := NewExcuseLetterHandler(mockSvc)

	c, w := newTestContext(http.MethodPatch, "/excuse-letters/letter-1/review", `{"status":"approved","teacher_notes":"ok"}`, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "letter-1"}}
	h.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "letter-1", mockSvc.reviewID)
	assert.Equal(t, "approved", mockSvc.reviewReq.Status)
	require.NotNil(t, mockSvc.reviewReq.TeacherNotes)
	assert.Equal(t, "ok", *mockSvc.reviewReq.TeacherNotes)

	mockSvc.reviewErr = appErrors.Clone(appErrors.ErrConflict, "excuse letter has already been reviewed")
	c, w = newTestContext(http.MethodPatch, "/excuse-letters/letter-1/review", `{"status":"rejected"}`, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "letter-1"}}
	h.Review(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	mockSvc.reviewErr = errors.New("boom")
	c, w = newTestContext(http.MethodPatch, "/excuse-letters/letter-1/review", `{"status":"rejected"}`, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "letter-1"}}
	h.Review(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestExcuseLetterHandlerPassesActor(t *testing.T) {
	mockSvc := &excuseLetterServiceMock{}
	h := NewExcuseLetterHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/excuse-letters?status=pending", "", studentClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Actor{UserID: "stu-1", Role: models.RoleStudent}, mockSvc.listActor)

	c, w = newTestContext(http.MethodGet, "/excuse-letters/letter-7", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "letter-7"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Actor{UserID: "teacher-1", Role: models.RoleTeacher}, mockSvc.getActor)

	c, w = newTestContext(http.MethodDelete, "/excuse-letters/letter-7", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "letter-7"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"stu-1", "letter-7"}, mockSvc.deleteArgs)
}
