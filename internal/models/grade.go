package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// weightTolerance is the allowed drift from 100 when summing weights.
const weightTolerance = 0.01

// TaskCategory groups graded work for weighting.
type TaskCategory string

const (
	TaskCategoryActivity   TaskCategory = "activity"
	TaskCategoryAssignment TaskCategory = "assignment"
	TaskCategoryQuiz       TaskCategory = "quiz"
	TaskCategoryMajorExam  TaskCategory = "major_exam"
)

// GradeWeights holds the four validated percentages used to blend a final grade.
type GradeWeights struct {
	attendance     float64
	activity       float64
	assignmentQuiz float64
	majorExam      float64
}

// NewGradeWeights validates that every weight is non-negative and that they sum to 100.
func NewGradeWeights(attendance, activity, assignmentQuiz, majorExam float64) (GradeWeights, error) {
	for _, w := range []float64{attendance, activity, assignmentQuiz, majorExam} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return GradeWeights{}, fmt.Errorf("weights must be non-negative numbers")
		}
	}
	total := attendance + activity + assignmentQuiz + majorExam
	if math.Abs(total-100) > weightTolerance {
		return GradeWeights{}, fmt.Errorf("weights sum to %.2f, expected 100", total)
	}
	return GradeWeights{
		attendance:     attendance,
		activity:       activity,
		assignmentQuiz: assignmentQuiz,
		majorExam:      majorExam,
	}, nil
}

func (w GradeWeights) Attendance() float64     { return w.attendance }
func (w GradeWeights) Activity() float64       { return w.activity }
func (w GradeWeights) AssignmentQuiz() float64 { return w.assignmentQuiz }
func (w GradeWeights) MajorExam() float64      { return w.majorExam }

// String is used to build cache keys. It keeps full precision so distinct
// weights never share a key.
func (w GradeWeights) String() string {
	parts := make([]string, 0, 4)
	for _, v := range []float64{w.attendance, w.activity, w.assignmentQuiz, w.majorExam} {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, "-")
}

// TaskGrade is one student's submission for a task. Grade is nil until graded.
type TaskGrade struct {
	TaskID    string       `db:"task_id" json:"task_id"`
	StudentID string       `db:"student_id" json:"student_id"`
	Category  TaskCategory `db:"category" json:"category"`
	Points    float64      `db:"points" json:"points"`
	Grade     *float64     `db:"grade" json:"grade,omitempty"`
}

// StudentGrade is the per-student breakdown of a computed grade.
type StudentGrade struct {
	StudentID            string  `json:"student_id"`
	StudentName          string  `json:"student_name,omitempty"`
	AttendanceSessions   int     `json:"attendance_sessions"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	ActivityAverage      float64 `json:"activity_average"`
	AssignmentQuizAvg    float64 `json:"assignment_quiz_average"`
	MajorExamAverage     float64 `json:"major_exam_average"`
	FinalGrade           float64 `json:"final_grade"`
}

// ClassGradeReport lists grades for every actively enrolled student of a class.
type ClassGradeReport struct {
	ClassID  string             `json:"class_id"`
	Weights  map[string]float64 `json:"weights"`
	Students []StudentGrade     `json:"students"`
}
