package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// EnrollmentRepository reads class memberships.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// IsActivelyEnrolled reports whether the student has an active enrollment in the class.
func (r *EnrollmentRepository) IsActivelyEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// ListActiveStudents returns actively enrolled students of a class ordered by name.
func (r *EnrollmentRepository) ListActiveStudents(ctx context.Context, classID string) ([]models.EnrolledStudent, error) {
	const query = `SELECT e.student_id, COALESCE(s.full_name, '') AS student_name
FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
WHERE e.class_id = $1 AND e.status = $2
ORDER BY s.full_name ASC`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}
