package service

import (
	"math"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// MaxAttendancePoints is the score of a present session.
const MaxAttendancePoints = 6

var attendancePoints = map[models.AttendanceStatus]int{
	models.AttendanceStatusPresent: 6,
	models.AttendanceStatusExcused: 5,
	models.AttendanceStatusLate:    4,
	models.AttendanceStatusAbsent:  0,
}

// AttendancePoints scores one session. Unknown statuses score zero.
func AttendancePoints(status models.AttendanceStatus) int {
	return attendancePoints[status]
}

// AttendancePercentage is the share of maximum attendance points earned, 0 for no sessions.
func AttendancePercentage(statuses []models.AttendanceStatus) float64 {
	if len(statuses) == 0 {
		return 0
	}
	total := 0
	for _, status := range statuses {
		total += AttendancePoints(status)
	}
	return float64(total) / float64(MaxAttendancePoints*len(statuses)) * 100
}

// CategoryAverage averages grade/points over graded submissions only.
func CategoryAverage(grades []models.TaskGrade) float64 {
	sum := 0.0
	count := 0
	for _, g := range grades {
		if g.Grade == nil || g.Points <= 0 {
			continue
		}
		sum += *g.Grade / g.Points * 100
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// FinalGrade blends the four components with already validated weights.
func FinalGrade(attendancePct, activityAvg, assignmentQuizAvg, majorExamAvg float64, weights models.GradeWeights) float64 {
	return attendancePct*weights.Attendance()/100 +
		activityAvg*weights.Activity()/100 +
		assignmentQuizAvg*weights.AssignmentQuiz()/100 +
		majorExamAvg*weights.MajorExam()/100
}

// roundGrade rounds to two decimals, half to even.
func roundGrade(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// StudentBreakdown computes the rounded grade breakdown for one student.
func StudentBreakdown(studentID string, statuses []models.AttendanceStatus, grades []models.TaskGrade, weights models.GradeWeights) models.StudentGrade {
	var activity, assignmentQuiz, majorExam []models.TaskGrade
	for _, g := range grades {
		switch g.Category {
		case models.TaskCategoryActivity:
			activity = append(activity, g)
		case models.TaskCategoryAssignment, models.TaskCategoryQuiz:
			assignmentQuiz = append(assignmentQuiz, g)
		case models.TaskCategoryMajorExam:
			majorExam = append(majorExam, g)
		}
	}

	attendancePct := AttendancePercentage(statuses)
	activityAvg := CategoryAverage(activity)
	aqAvg := CategoryAverage(assignmentQuiz)
	examAvg := CategoryAverage(majorExam)

	return models.StudentGrade{
		StudentID:            studentID,
		AttendanceSessions:   len(statuses),
		AttendancePercentage: roundGrade(attendancePct),
		ActivityAverage:      roundGrade(activityAvg),
		AssignmentQuizAvg:    roundGrade(aqAvg),
		MajorExamAverage:     roundGrade(examAvg),
		FinalGrade:           roundGrade(FinalGrade(attendancePct, activityAvg, aqAvg, examAvg, weights)),
	}
}
