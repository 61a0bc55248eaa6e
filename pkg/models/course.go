package models

import "time"

// Section groups videos inside a course.
type Section struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Course is owned by exactly one instructor.
type Course struct {
	ID           string    `json:"id" db:"id"`
	InstructorID string    `json:"instructor_id" db:"instructor_id"`
	Title        string    `json:"title" db:"title"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// User is the acting principal. Only instructors may mutate video
// assets, and only on their own courses.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User roles
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Ownership is the resolved chain from a video up to the instructor
// who is allowed to mutate it. Every link is non-nil by construction;
// a broken chain never produces an Ownership value.
type Ownership struct {
	Video      *Video
	Section    *Section
	Course     *Course
	Instructor *User
}
