package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const attendanceColumns = `id, student_id, class_id, teacher_id, date, status, time_in, notes, created_at, updated_at`

const upsertAttendanceQuery = `INSERT INTO attendance_records (id, student_id, class_id, teacher_id, date, status, time_in, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (student_id, class_id, date)
DO UPDATE SET status = EXCLUDED.status,
    time_in = COALESCE(EXCLUDED.time_in, attendance_records.time_in),
    notes = EXCLUDED.notes,
    teacher_id = EXCLUDED.teacher_id,
    updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns + `, (xmax = 0) AS inserted`

const insertMissingAttendanceQuery = `INSERT INTO attendance_records (id, student_id, class_id, teacher_id, date, status, time_in, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (student_id, class_id, date) DO NOTHING`

type upsertedAttendance struct {
	models.AttendanceRecord
	Inserted bool `db:"inserted"`
}

// AttendanceRepository persists attendance records keyed by student, class and date.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByID returns a record by id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns records matching the filter along with the total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
LEFT JOIN students s ON s.id = ar.student_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("ar.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":         "ar.date",
		"status":       "ar.status",
		"student_name": "s.full_name",
		"created_at":   "ar.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "ar.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.student_id, ar.class_id, ar.teacher_id, ar.date, ar.status, ar.time_in, ar.notes,
        ar.created_at, ar.updated_at, COALESCE(s.full_name, '') AS student_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// ListByClassAndDate returns every record of a class session.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE class_id = $1 AND date = $2`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, classID, date); err != nil {
		return nil, fmt.Errorf("list class session attendance: %w", err)
	}
	return rows, nil
}

// ListByClass returns all records of a class, oldest first.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID string) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE class_id = $1 ORDER BY date ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	return rows, nil
}

// Upsert inserts or updates the record for (student, class, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.UpsertOutcome, error) {
	prepareAttendance(record, time.Now().UTC())
	var stored upsertedAttendance
	if err := r.db.GetContext(ctx, &stored, upsertAttendanceQuery, attendanceArgs(record)...); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &models.UpsertOutcome{Record: stored.AttendanceRecord, Created: stored.Inserted}, nil
}

// BulkUpsert writes all records in one transaction. Any failure rolls back the whole batch.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.UpsertOutcome, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	outcomes := make([]models.UpsertOutcome, 0, len(records))
	for i := range records {
		rec := &records[i]
		prepareAttendance(rec, now)
		var stored upsertedAttendance
		if err := tx.GetContext(ctx, &stored, upsertAttendanceQuery, attendanceArgs(rec)...); err != nil {
			return nil, fmt.Errorf("bulk upsert attendance for student %s: %w", rec.StudentID, err)
		}
		outcomes = append(outcomes, models.UpsertOutcome{Record: stored.AttendanceRecord, Created: stored.Inserted})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	commit = true
	return outcomes, nil
}

// InsertMissing inserts records in one transaction, skipping keys that already exist.
// It returns the number of rows actually inserted.
func (r *AttendanceRepository) InsertMissing(ctx context.Context, records []models.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attendance sweep: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	inserted := 0
	for i := range records {
		rec := &records[i]
		prepareAttendance(rec, now)
		res, err := tx.ExecContext(ctx, insertMissingAttendanceQuery, attendanceArgs(rec)...)
		if err != nil {
			return 0, fmt.Errorf("sweep insert attendance for student %s: %w", rec.StudentID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sweep rows affected: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attendance sweep: %w", err)
	}
	commit = true
	return inserted, nil
}

// Delete removes a record by id.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// StatusCounts aggregates record counts per status for a student in a class.
func (r *AttendanceRepository) StatusCounts(ctx context.Context, studentID, classID string) (map[models.AttendanceStatus]int, error) {
	query := `SELECT status, COUNT(*) AS cnt
FROM attendance_records
WHERE student_id = $1 AND class_id = $2
GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID); err != nil {
		return nil, fmt.Errorf("student attendance counts: %w", err)
	}
	counts := make(map[models.AttendanceStatus]int, len(rows))
	for _, row := range rows {
		counts[models.AttendanceStatus(row.Status)] += row.Count
	}
	return counts, nil
}

func prepareAttendance(record *models.AttendanceRecord, now time.Time) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

func attendanceArgs(record *models.AttendanceRecord) []interface{} {
	return []interface{}{
		record.ID,
		record.StudentID,
		record.ClassID,
		record.TeacherID,
		record.Date,
		record.Status,
		record.TimeIn,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	}
}
