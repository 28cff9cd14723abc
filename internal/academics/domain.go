package academics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/thvgger/igs-portal/internal/shared"
)

// Session is an academic year such as "2024/2025".
type Session struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Terms     []Term    `json:"terms,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Term is a subdivision of a Session.
type Term struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

// Class groups students, e.g. "JSS1".
type Class struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student is an enrolled learner. Profile fields come from the linked user.
type Student struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AdmissionNo string    `json:"admission_no"`
	ClassID     *int64    `json:"class_id,omitempty"`
	ClassName   string    `json:"class_name,omitempty"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	MiddleName  string    `json:"middle_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName renders the student's display name.
func (s Student) FullName() string {
	if s.MiddleName == "" {
		return s.FirstName + " " + s.LastName
	}
	return s.FirstName + " " + s.MiddleName + " " + s.LastName
}

// Teacher is a staff member who may own courses.
type Teacher struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Course is a subject, optionally taught by a teacher.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TeacherID   *int64    `json:"teacher_id,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	CourseName string    `json:"course_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Result is a student's score for a course in a term.
type Result struct {
	ID          int64           `json:"id"`
	StudentID   int64           `json:"student_id"`
	CourseID    int64           `json:"course_id"`
	CourseName  string          `json:"course_name,omitempty"`
	SessionID   int64           `json:"session_id"`
	SessionName string          `json:"session_name,omitempty"`
	TermID      int64           `json:"term_id"`
	TermName    string          `json:"term_name,omitempty"`
	Score       decimal.Decimal `json:"score"`
	Grade       string          `json:"grade"`
	Remark      string          `json:"remark"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TermInput describes one term created alongside its session.
type TermInput struct {
	Name      string      `json:"name" validate:"required,max=64"`
	StartDate shared.Date `json:"start_date"`
	EndDate   shared.Date `json:"end_date"`
}

// CreateSessionInput carries a new session and its terms in sequence order.
type CreateSessionInput struct {
	Name      string      `json:"name" validate:"required,max=32"`
	StartDate shared.Date `json:"start_date"`
	EndDate   shared.Date `json:"end_date"`
	Terms     []TermInput `json:"terms" validate:"dive"`
}

// CreateStudentInput creates a user with role STUDENT and its student row.
type CreateStudentInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	MiddleName  string `json:"middle_name" validate:"max=100"`
	AdmissionNo string `json:"admission_no" validate:"required,max=32"`
	ClassID     *int64 `json:"class_id"`
}

// UpdateStudentInput edits a student's profile; nil fields are left unchanged.
// An explicit "class_id": null removes the student from their class.
type UpdateStudentInput struct {
	FirstName   *string           `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string           `json:"last_name" validate:"omitempty,max=100"`
	MiddleName  *string           `json:"middle_name" validate:"omitempty,max=100"`
	AdmissionNo *string           `json:"admission_no" validate:"omitempty,max=32"`
	ClassID     shared.OptionalID `json:"class_id"`
}

// CreateTeacherInput creates a user with role TEACHER and its teacher row.
type CreateTeacherInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// UpdateTeacherInput edits a teacher's profile; nil fields are left unchanged.
type UpdateTeacherInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
}

// CourseInput creates or updates a course.
type CourseInput struct {
	Name      string `json:"name" validate:"required,max=120"`
	TeacherID *int64 `json:"teacher_id"`
}

// ResultInput records a score.
type ResultInput struct {
	StudentID int64           `json:"student_id" validate:"required"`
	CourseID  int64           `json:"course_id" validate:"required"`
	SessionID int64           `json:"session_id" validate:"required"`
	TermID    int64           `json:"term_id" validate:"required"`
	Score     decimal.Decimal `json:"score"`
	Grade     string          `json:"grade" validate:"max=4"`
	Remark    string          `json:"remark" validate:"max=255"`
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	StudentID int64
	CourseID  int64
	SessionID int64
	TermID    int64
}

// StudentFilter narrows ListStudents.
type StudentFilter struct {
	ClassID int64
	Search  string
	shared.PageRequest
}
