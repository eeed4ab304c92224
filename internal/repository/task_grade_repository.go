package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// TaskGradeRepository reads task submissions for grade aggregation.
type TaskGradeRepository struct {
	db *sqlx.DB
}

// NewTaskGradeRepository constructs the repository.
func NewTaskGradeRepository(db *sqlx.DB) *TaskGradeRepository {
	return &TaskGradeRepository{db: db}
}

// ListForStudents returns submissions of the given students for every task assigned to the class.
func (r *TaskGradeRepository) ListForStudents(ctx context.Context, classID string, studentIDs []string) ([]models.TaskGrade, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT t.id AS task_id, ts.student_id, t.category, t.points, ts.grade
FROM tasks t
JOIN task_classes tc ON tc.task_id = t.id
JOIN task_submissions ts ON ts.task_id = t.id
WHERE tc.class_id = $1 AND ts.student_id = ANY($2)`
	var grades []models.TaskGrade
	if err := r.db.SelectContext(ctx, &grades, query, classID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list task grades: %w", err)
	}
	return grades, nil
}
