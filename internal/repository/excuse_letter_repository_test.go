package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
)

var excuseLetterRowColumns = []string{"id", "student_id", "class_id", "teacher_id", "date_absent", "reason", "status", "teacher_notes", "attachment_ref", "reviewed_at", "created_at", "updated_at"}

func TestExcuseLetterRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExcuseLetterRepository(db)

	mock.ExpectExec("INSERT INTO excuse_letters").
		WithArgs(anyArgs(12)...).
		WillReturnResult(sqlmock.NewResult(1, 1))

	letter := &models.ExcuseLetter{StudentID: "stu-1", ClassID: "class-1", TeacherID: "teacher-1", DateAbsent: time.Now(), Reason: "Flu"}
	require.NoError(t, repo.Create(context.Background(), letter))
	assert.NotEmpty(t, letter.ID)
	assert.Equal(t, models.ExcuseLetterPending, letter.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExcuseLetterRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExcuseLetterRepository(db)

	mock.ExpectExec("INSERT INTO excuse_letters").
		WithArgs(anyArgs(12)...).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.ExcuseLetter{StudentID: "stu-1", ClassID: "class-1", DateAbsent: time.Now(), Reason: "Flu"})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestExcuseLetterRepositoryReviewOnlyTouchesPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExcuseLetterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $4 AND status = $5")).
		WithArgs(models.ExcuseLetterApproved, sqlmock.AnyArg(), sqlmock.AnyArg(), "letter-1", models.ExcuseLetterPending).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Review(context.Background(), "letter-1", models.ExcuseLetterApproved, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExcuseLetterRepositoryListByClassAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExcuseLetterRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE class_id = $1 AND date_absent = $2")).
		WithArgs("class-1", date).
		WillReturnRows(sqlmock.NewRows(excuseLetterRowColumns).
			AddRow("letter-1", "stu-1", "class-1", "teacher-1", date, "Flu", "approved", nil, nil, now, now, now).
			AddRow("letter-2", "stu-2", "class-1", "teacher-1", date, "Trip", "pending", nil, nil, nil, now, now))

	letters, err := repo.ListByClassAndDate(context.Background(), "class-1", date)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, models.ExcuseLetterApproved, letters[0].Status)
	assert.NotNil(t, letters[0].ReviewedAt)
	assert.Nil(t, letters[1].ReviewedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExcuseLetterRepositoryListFiltersByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExcuseLetterRepository(db)

	pending := models.ExcuseLetterPending
	mock.ExpectQuery(regexp.QuoteMeta("FROM excuse_letters WHERE student_id = $1 AND status = $2 ORDER BY created_at DESC")).
		WithArgs("stu-1", pending).
		WillReturnRows(sqlmock.NewRows(excuseLetterRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM excuse_letters WHERE student_id = $1 AND status = $2")).
		WithArgs("stu-1", pending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	letters, total, err := repo.List(context.Background(), models.ExcuseLetterFilter{StudentID: "stu-1", Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, letters)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
