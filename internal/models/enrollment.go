package models

// EnrollmentStatus is the lifecycle state of a student's class membership.
// Only ACTIVE enrollments take part in attendance and grading.
type EnrollmentStatus string

const (
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// EnrolledStudent is an active enrollment joined with the student's name.
type EnrolledStudent struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
}
