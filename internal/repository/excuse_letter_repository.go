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

const excuseLetterColumns = `id, student_id, class_id, teacher_id, date_absent, reason, status, teacher_notes, attachment_ref, reviewed_at, created_at, updated_at`

// ExcuseLetterRepository persists excuse letters.
type ExcuseLetterRepository struct {
	db *sqlx.DB
}

// NewExcuseLetterRepository constructs the repository.
func NewExcuseLetterRepository(db *sqlx.DB) *ExcuseLetterRepository {
	return &ExcuseLetterRepository{db: db}
}

// Create inserts a new letter. Unique violations on (student, class, date) surface as *pq.Error.
func (r *ExcuseLetterRepository) Create(ctx context.Context, letter *models.ExcuseLetter) error {
	if letter.ID == "" {
		letter.ID = uuid.NewString()
	}
	if letter.Status == "" {
		letter.Status = models.ExcuseLetterPending
	}
	now := time.Now().UTC()
	letter.CreatedAt = now
	letter.UpdatedAt = now

	const query = `INSERT INTO excuse_letters (id, student_id, class_id, teacher_id, date_absent, reason, status, teacher_notes, attachment_ref, reviewed_at, created_at, updated_at)
VALUES (:id, :student_id, :class_id, :teacher_id, :date_absent, :reason, :status, :teacher_notes, :attachment_ref, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, letter); err != nil {
		return fmt.Errorf("create excuse letter: %w", err)
	}
	return nil
}

// FindByID returns a letter by id.
func (r *ExcuseLetterRepository) FindByID(ctx context.Context, id string) (*models.ExcuseLetter, error) {
	query := `SELECT ` + excuseLetterColumns + ` FROM excuse_letters WHERE id = $1`
	var letter models.ExcuseLetter
	if err := r.db.GetContext(ctx, &letter, query, id); err != nil {
		return nil, err
	}
	return &letter, nil
}

// FindByKey returns the letter filed by a student for a class on a date.
func (r *ExcuseLetterRepository) FindByKey(ctx context.Context, studentID, classID string, date time.Time) (*models.ExcuseLetter, error) {
	query := `SELECT ` + excuseLetterColumns + ` FROM excuse_letters WHERE student_id = $1 AND class_id = $2 AND date_absent = $3`
	var letter models.ExcuseLetter
	if err := r.db.GetContext(ctx, &letter, query, studentID, classID, date); err != nil {
		return nil, err
	}
	return &letter, nil
}

// List returns letters matching the filter, newest first.
func (r *ExcuseLetterRepository) List(ctx context.Context, filter models.ExcuseLetterFilter) ([]models.ExcuseLetter, int, error) {
	var conditions []string
	var args []interface{}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date_absent = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM excuse_letters%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, excuseLetterColumns, clause, size, offset)
	var letters []models.ExcuseLetter
	if err := r.db.SelectContext(ctx, &letters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list excuse letters: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM excuse_letters"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count excuse letters: %w", err)
	}
	return letters, total, nil
}

// ListByClassAndDate returns every letter filed for a class session.
func (r *ExcuseLetterRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.ExcuseLetter, error) {
	query := `SELECT ` + excuseLetterColumns + ` FROM excuse_letters WHERE class_id = $1 AND date_absent = $2`
	var letters []models.ExcuseLetter
	if err := r.db.SelectContext(ctx, &letters, query, classID, date); err != nil {
		return nil, fmt.Errorf("list class session excuse letters: %w", err)
	}
	return letters, nil
}

// Review moves a pending letter to its reviewed status.
// It returns sql.ErrNoRows when the letter is missing or no longer pending.
func (r *ExcuseLetterRepository) Review(ctx context.Context, id string, status models.ExcuseLetterStatus, teacherNotes *string) (*models.ExcuseLetter, error) {
	now := time.Now().UTC()
	query := `UPDATE excuse_letters
SET status = $1, teacher_notes = $2, reviewed_at = $3, updated_at = $3
WHERE id = $4 AND status = $5
RETURNING ` + excuseLetterColumns
	var letter models.ExcuseLetter
	if err := r.db.GetContext(ctx, &letter, query, status, teacherNotes, now, id, models.ExcuseLetterPending); err != nil {
		return nil, err
	}
	return &letter, nil
}

// Delete removes a letter by id.
func (r *ExcuseLetterRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM excuse_letters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete excuse letter: %w", err)
	}
	return nil
}
