package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

func gradePtr(v float64) *float64 { return &v }

func TestAttendancePoints(t *testing.T) {
	assert.Equal(t, 6, AttendancePoints(models.AttendanceStatusPresent))
	assert.Equal(t, 5, AttendancePoints(models.AttendanceStatusExcused))
	assert.Equal(t, 4, AttendancePoints(models.AttendanceStatusLate))
	assert.Equal(t, 0, AttendancePoints(models.AttendanceStatusAbsent))
	assert.Equal(t, 0, AttendancePoints(models.AttendanceStatus("sick")))
}

func TestAttendancePercentage(t *testing.T) {
	assert.Zero(t, AttendancePercentage(nil))
	assert.InDelta(t, 100, AttendancePercentage([]models.AttendanceStatus{models.AttendanceStatusPresent}), 1e-9)
	pct := AttendancePercentage([]models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusExcused,
		models.AttendanceStatusLate,
	})
	assert.InDelta(t, 83.333, pct, 0.001)
	assert.Equal(t, 83.33, roundGrade(pct))
}

func TestCategoryAverageIgnoresUngraded(t *testing.T) {
	grades := []models.TaskGrade{
		{TaskID: "a", Points: 20, Grade: gradePtr(15)},
		{TaskID: "b", Points: 10, Grade: gradePtr(10)},
		{TaskID: "c", Points: 50, Grade: nil},
		{TaskID: "d", Points: 0, Grade: gradePtr(5)},
	}
	assert.InDelta(t, 87.5, CategoryAverage(grades), 1e-9)
	assert.Zero(t, CategoryAverage([]models.TaskGrade{{Points: 10}}))
}

func TestFinalGrade(t *testing.T) {
	weights, err := models.NewGradeWeights(10, 20, 30, 40)
	require.NoError(t, err)
	got := FinalGrade(100, 80, 70, 60, weights)
	assert.InDelta(t, 10+16+21+24, got, 1e-9)
}

func TestStudentBreakdownGroupsCategories(t *testing.T) {
	weights, err := models.NewGradeWeights(25, 25, 25, 25)
	require.NoError(t, err)

	breakdown := StudentBreakdown("stu-1",
		[]models.AttendanceStatus{models.AttendanceStatusPresent, models.AttendanceStatusExcused, models.AttendanceStatusLate},
		[]models.TaskGrade{
			{Category: models.TaskCategoryActivity, Points: 10, Grade: gradePtr(9)},
			{Category: models.TaskCategoryAssignment, Points: 10, Grade: gradePtr(8)},
			{Category: models.TaskCategoryQuiz, Points: 20, Grade: gradePtr(12)},
			{Category: models.TaskCategoryMajorExam, Points: 100, Grade: gradePtr(75)},
		},
		weights,
	)

	assert.Equal(t, 3, breakdown.AttendanceSessions)
	assert.Equal(t, 83.33, breakdown.AttendancePercentage)
	assert.Equal(t, 90.0, breakdown.ActivityAverage)
	assert.Equal(t, 70.0, breakdown.AssignmentQuizAvg)
	assert.Equal(t, 75.0, breakdown.MajorExamAverage)
	assert.InDelta(t, (83.3333+90+70+75)/4, breakdown.FinalGrade, 0.01)
}
