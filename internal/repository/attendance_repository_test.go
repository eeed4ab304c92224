package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var upsertedColumns = []string{"id", "student_id", "class_id", "teacher_id", "date", "status", "time_in", "notes", "created_at", "updated_at", "inserted"}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestAttendanceRepositoryUpsertReportsCreated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO attendance_records .* ON CONFLICT \\(student_id, class_id, date\\)").
		WithArgs(anyArgs(10)...).
		WillReturnRows(sqlmock.NewRows(upsertedColumns).
			AddRow("att-1", "stu-1", "class-1", "teacher-1", date, "late", "08:20:00", nil, now, now, true))

	outcome, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		StudentID: "stu-1",
		ClassID:   "class-1",
		TeacherID: "teacher-1",
		Date:      date,
		Status:    models.AttendanceStatusLate,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.Equal(t, models.AttendanceStatusLate, outcome.Record.Status)
	require.NotNil(t, outcome.Record.TimeIn)
	assert.Equal(t, "08:20:00", *outcome.Record.TimeIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(anyArgs(10)...).
		WillReturnRows(sqlmock.NewRows(upsertedColumns).
			AddRow("att-1", "stu-1", "class-1", "teacher-1", date, "present", nil, nil, now, now, true))
	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(anyArgs(10)...).
		WillReturnRows(sqlmock.NewRows(upsertedColumns).
			AddRow("att-2", "stu-2", "class-1", "teacher-1", date, "absent", nil, nil, now, now, false))
	mock.ExpectCommit()

	outcomes, err := repo.BulkUpsert(context.Background(), []models.AttendanceRecord{
		{StudentID: "stu-1", ClassID: "class-1", TeacherID: "teacher-1", Date: date, Status: models.AttendanceStatusPresent},
		{StudentID: "stu-2", ClassID: "class-1", TeacherID: "teacher-1", Date: date, Status: models.AttendanceStatusAbsent},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Created)
	assert.False(t, outcomes[1].Created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(anyArgs(10)...).
		WillReturnRows(sqlmock.NewRows(upsertedColumns).
			AddRow("att-1", "stu-1", "class-1", "teacher-1", date, "present", nil, nil, now, now, true))
	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(anyArgs(10)...).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.BulkUpsert(context.Background(), []models.AttendanceRecord{
		{StudentID: "stu-1", ClassID: "class-1", Date: date, Status: models.AttendanceStatusPresent},
		{StudentID: "stu-2", ClassID: "class-1", Date: date, Status: models.AttendanceStatusPresent},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stu-2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertMissingCountsInsertedRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records .* DO NOTHING").
		WithArgs(anyArgs(10)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance_records .* DO NOTHING").
		WithArgs(anyArgs(10)...).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.InsertMissing(context.Background(), []models.AttendanceRecord{
		{StudentID: "stu-1", ClassID: "class-1", Date: date, Status: models.AttendanceStatusAbsent},
		{StudentID: "stu-2", ClassID: "class-1", Date: date, Status: models.AttendanceStatusExcused},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	status := models.AttendanceStatusAbsent
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND ar.class_id = $1 AND ar.status = $2")).
		WithArgs("class-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "class_id", "teacher_id", "date", "status", "time_in", "notes", "created_at", "updated_at", "student_name"}).
			AddRow("att-1", "stu-1", "class-1", "teacher-1", date, "absent", nil, nil, now, now, "Ana"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("class-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), models.AttendanceFilter{ClassID: "class-1", Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ana", rows[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WithArgs("stu-1", "class-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "cnt"}).
			AddRow("present", 3).
			AddRow("late", 1))

	counts, err := repo.StatusCounts(context.Background(), "stu-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.AttendanceStatusPresent])
	assert.Equal(t, 1, counts[models.AttendanceStatusLate])
	assert.Zero(t, counts[models.AttendanceStatusAbsent])
	require.NoError(t, mock.ExpectationsWereMet())
}
