package academics

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thvgger/igs-portal/internal/auth"
	"github.com/thvgger/igs-portal/internal/shared"
)

// RepositoryPort defines data access methods for academic records.
type RepositoryPort interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateSession(ctx context.Context, id int64, in CreateSessionInput) (Session, error)
	DeleteSession(ctx context.Context, id int64) error
	GetTerm(ctx context.Context, id int64) (Term, error)
	SetCurrentTerm(ctx context.Context, termID int64) (Term, error)
	CurrentTerm(ctx context.Context) (Term, error)

	CreateClass(ctx context.Context, name string) (Class, error)
	GetClass(ctx context.Context, id int64) (Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
	UpdateClass(ctx context.Context, id int64, name string) (Class, error)
	DeleteClass(ctx context.Context, id int64) error

	CreateStudent(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error)
	GetStudent(ctx context.Context, id int64) (Student, error)
	ListStudents(ctx context.Context, f StudentFilter) ([]Student, int, error)
	ListStudentIDs(ctx context.Context, classID int64) ([]int64, error)
	UpdateStudent(ctx context.Context, id int64, in UpdateStudentInput) (Student, error)
	SetStudentClass(ctx context.Context, studentID, classID int64) (Student, error)
	DeleteStudent(ctx context.Context, id int64) error

	CreateTeacher(ctx context.Context, in CreateTeacherInput, passwordHash string) (Teacher, error)
	GetTeacher(ctx context.Context, id int64) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	UpdateTeacher(ctx context.Context, id int64, in UpdateTeacherInput) (Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) error

	CreateCourse(ctx context.Context, in CourseInput) (Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	UpdateCourse(ctx context.Context, id int64, in CourseInput) (Course, error)
	AssignTeacher(ctx context.Context, courseID, teacherID int64) (Course, error)
	DeleteCourse(ctx context.Context, id int64) error

	Enroll(ctx context.Context, studentID, courseID int64) (Enrollment, error)
	Unenroll(ctx context.Context, studentID, courseID int64) error
	EnrollClass(ctx context.Context, courseID, classID int64) (int, error)
	ListEnrollments(ctx context.Context, studentID int64) ([]Enrollment, error)

	CreateResult(ctx context.Context, in ResultInput) (Result, error)
	GetResult(ctx context.Context, id int64) (Result, error)
	UpdateResult(ctx context.Context, id int64, in ResultInput) (Result, error)
	DeleteResult(ctx context.Context, id int64) error
	ListResults(ctx context.Context, f ResultFilter) ([]Result, error)
}

var maxScore = decimal.NewFromInt(100)

// Service handles academic record business rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// --- Sessions and terms ---

// CreateSession validates and stores a session together with its terms.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateSession(in, true); err != nil {
		return Session{}, err
	}
	return s.repo.CreateSession(ctx, in)
}

func validateSession(in CreateSessionInput, withTerms bool) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	ve := &shared.ValidationError{}
	if in.StartDate.IsZero() {
		ve.Add("start_date", "this field is required")
	}
	if in.EndDate.IsZero() {
		ve.Add("end_date", "this field is required")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate.Time) {
		ve.Add("end_date", "must not be before start_date")
	}
	if !withTerms {
		return ve.OrNil()
	}
	for i, t := range in.Terms {
		field := "terms[" + strconv.Itoa(i) + "]"
		switch {
		case t.StartDate.IsZero() || t.EndDate.IsZero():
			ve.Add(field, "start_date and end_date are required")
		case t.EndDate.Before(t.StartDate.Time):
			ve.Add(field+".end_date", "must not be before start_date")
		case t.StartDate.Before(in.StartDate.Time) || t.EndDate.After(in.EndDate.Time):
			ve.Add(field, "must fall within the session dates")
		case i > 0 && !t.StartDate.After(in.Terms[i-1].EndDate.Time):
			ve.Add(field+".start_date", "must start after the previous term ends")
		}
	}
	return ve.OrNil()
}

// GetSession returns a session with its terms.
func (s *Service) GetSession(ctx context.Context, id int64) (Session, error) {
	return s.repo.GetSession(ctx, id)
}

// ListSessions returns every session, most recent first.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	return s.repo.ListSessions(ctx)
}

// UpdateSession changes a session's name and dates. Terms are left untouched.
func (s *Service) UpdateSession(ctx context.Context, id int64, in CreateSessionInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Terms = nil
	if err := validateSession(in, false); err != nil {
		return Session{}, err
	}
	return s.repo.UpdateSession(ctx, id, in)
}

// DeleteSession removes a session and its terms.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	return s.repo.DeleteSession(ctx, id)
}

// GetTerm returns a term.
func (s *Service) GetTerm(ctx context.Context, id int64) (Term, error) {
	return s.repo.GetTerm(ctx, id)
}

// TermOfSession loads termID and checks that it belongs to sessionID.
func (s *Service) TermOfSession(ctx context.Context, sessionID, termID int64) (Term, error) {
	term, err := s.repo.GetTerm(ctx, termID)
	if err != nil {
		return Term{}, err
	}
	if term.SessionID != sessionID {
		return Term{}, shared.NewValidationError("term_id", "term does not belong to the given session")
	}
	return term, nil
}

// SetCurrentTerm marks a term as current, clearing the flag on its siblings.
func (s *Service) SetCurrentTerm(ctx context.Context, termID int64) (Term, error) {
	return s.repo.SetCurrentTerm(ctx, termID)
}

// CurrentTerm returns the term flagged current in the latest session.
func (s *Service) CurrentTerm(ctx context.Context) (Term, error) {
	return s.repo.CurrentTerm(ctx)
}

// --- Classes ---

// CreateClass stores a class with a unique name.
func (s *Service) CreateClass(ctx context.Context, name string) (Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Class{}, shared.NewValidationError("name", "this field is required")
	}
	return s.repo.CreateClass(ctx, name)
}

// GetClass returns a class.
func (s *Service) GetClass(ctx context.Context, id int64) (Class, error) {
	return s.repo.GetClass(ctx, id)
}

// ListClasses returns all classes.
func (s *Service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.repo.ListClasses(ctx)
}

// RenameClass changes a class's name.
func (s *Service) RenameClass(ctx context.Context, id int64, name string) (Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Class{}, shared.NewValidationError("name", "this field is required")
	}
	return s.repo.UpdateClass(ctx, id, name)
}

// DeleteClass removes a class.
func (s *Service) DeleteClass(ctx context.Context, id int64) error {
	return s.repo.DeleteClass(ctx, id)
}

// --- Students ---

// CreateStudent creates the student's login and record together.
func (s *Service) CreateStudent(ctx context.Context, in CreateStudentInput) (Student, error) {
	in.AdmissionNo = strings.TrimSpace(in.AdmissionNo)
	if err := shared.ValidateStruct(in); err != nil {
		return Student{}, err
	}
	if in.ClassID != nil {
		if _, err := s.repo.GetClass(ctx, *in.ClassID); err != nil {
			return Student{}, err
		}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Student{}, err
	}
	return s.repo.CreateStudent(ctx, in, hash)
}

// GetStudent returns a student.
func (s *Service) GetStudent(ctx context.Context, id int64) (Student, error) {
	return s.repo.GetStudent(ctx, id)
}

// ListStudents returns a page of students.
func (s *Service) ListStudents(ctx context.Context, f StudentFilter) ([]Student, shared.Pagination, error) {
	f.Search = strings.TrimSpace(f.Search)
	students, total, err := s.repo.ListStudents(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return students, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// ListStudentIDs returns the ids of a class's students, or all students when classID is 0.
// A non-zero class must exist.
func (s *Service) ListStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	if classID != 0 {
		if _, err := s.repo.GetClass(ctx, classID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListStudentIDs(ctx, classID)
}

// UpdateStudent edits a student's profile.
func (s *Service) UpdateStudent(ctx context.Context, id int64, in UpdateStudentInput) (Student, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Student{}, err
	}
	if in.ClassID.Value != nil {
		if _, err := s.repo.GetClass(ctx, *in.ClassID.Value); err != nil {
			return Student{}, err
		}
	}
	return s.repo.UpdateStudent(ctx, id, in)
}

// PromoteStudent moves a student into nextClassID.
func (s *Service) PromoteStudent(ctx context.Context, studentID, nextClassID int64) (Student, error) {
	if nextClassID <= 0 {
		return Student{}, shared.NewValidationError("class_id", "this field is required")
	}
	if _, err := s.repo.GetClass(ctx, nextClassID); err != nil {
		return Student{}, err
	}
	return s.repo.SetStudentClass(ctx, studentID, nextClassID)
}

// DeleteStudent removes a student and their login.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	return s.repo.DeleteStudent(ctx, id)
}

// --- Teachers ---

// CreateTeacher creates the teacher's login and record together.
func (s *Service) CreateTeacher(ctx context.Context, in CreateTeacherInput) (Teacher, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Teacher{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Teacher{}, err
	}
	return s.repo.CreateTeacher(ctx, in, hash)
}

// GetTeacher returns a teacher.
func (s *Service) GetTeacher(ctx context.Context, id int64) (Teacher, error) {
	return s.repo.GetTeacher(ctx, id)
}

// ListTeachers returns all teachers.
func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return s.repo.ListTeachers(ctx)
}

// UpdateTeacher edits the teacher's profile on their user row.
func (s *Service) UpdateTeacher(ctx context.Context, id int64, in UpdateTeacherInput) (Teacher, error) {
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &email
	}
	if err := shared.ValidateStruct(in); err != nil {
		return Teacher{}, err
	}
	return s.repo.UpdateTeacher(ctx, id, in)
}

// DeleteTeacher removes a teacher and their login.
func (s *Service) DeleteTeacher(ctx context.Context, id int64) error {
	return s.repo.DeleteTeacher(ctx, id)
}

// --- Courses ---

// CreateCourse stores a course.
func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return Course{}, err
	}
	return s.repo.CreateCourse(ctx, in)
}

// GetCourse returns a course.
func (s *Service) GetCourse(ctx context.Context, id int64) (Course, error) {
	return s.repo.GetCourse(ctx, id)
}

// ListCourses returns all courses.
func (s *Service) ListCourses(ctx context.Context) ([]Course, error) {
	return s.repo.ListCourses(ctx)
}

// UpdateCourse replaces a course's name and teacher.
func (s *Service) UpdateCourse(ctx context.Context, id int64, in CourseInput) (Course, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return Course{}, err
	}
	return s.repo.UpdateCourse(ctx, id, in)
}

// AssignTeacherToCourse sets the teacher of a course.
func (s *Service) AssignTeacherToCourse(ctx context.Context, courseID, teacherID int64) (Course, error) {
	if _, err := s.repo.GetTeacher(ctx, teacherID); err != nil {
		return Course{}, err
	}
	return s.repo.AssignTeacher(ctx, courseID, teacherID)
}

// DeleteCourse removes a course.
func (s *Service) DeleteCourse(ctx context.Context, id int64) error {
	return s.repo.DeleteCourse(ctx, id)
}

// --- Enrollments ---

// EnrollStudent enrolls a student in a course.
func (s *Service) EnrollStudent(ctx context.Context, studentID, courseID int64) (Enrollment, error) {
	return s.repo.Enroll(ctx, studentID, courseID)
}

// RemoveStudentFromCourse deletes an enrollment.
func (s *Service) RemoveStudentFromCourse(ctx context.Context, studentID, courseID int64) error {
	return s.repo.Unenroll(ctx, studentID, courseID)
}

// AssignCourseToClass enrolls every student of a class in a course.
// Students already enrolled are skipped; the count of new enrollments is returned.
func (s *Service) AssignCourseToClass(ctx context.Context, courseID, classID int64) (int, error) {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return 0, err
	}
	if _, err := s.repo.GetClass(ctx, classID); err != nil {
		return 0, err
	}
	return s.repo.EnrollClass(ctx, courseID, classID)
}

// ListEnrollments returns a student's courses.
func (s *Service) ListEnrollments(ctx context.Context, studentID int64) ([]Enrollment, error) {
	return s.repo.ListEnrollments(ctx, studentID)
}

// --- Results ---

func (s *Service) validateResult(ctx context.Context, in ResultInput) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.Score.IsNegative() || in.Score.GreaterThan(maxScore) {
		return shared.NewValidationError("score", "must be between 0 and 100")
	}
	_, err := s.TermOfSession(ctx, in.SessionID, in.TermID)
	return err
}

// CreateResult records a student's score for a course in a term.
func (s *Service) CreateResult(ctx context.Context, in ResultInput) (Result, error) {
	in.Grade = strings.ToUpper(strings.TrimSpace(in.Grade))
	if err := s.validateResult(ctx, in); err != nil {
		return Result{}, err
	}
	return s.repo.CreateResult(ctx, in)
}

// UpdateResult changes the score, grade and remark of a result.
func (s *Service) UpdateResult(ctx context.Context, id int64, in ResultInput) (Result, error) {
	existing, err := s.repo.GetResult(ctx, id)
	if err != nil {
		return Result{}, err
	}
	in.StudentID, in.CourseID = existing.StudentID, existing.CourseID
	in.SessionID, in.TermID = existing.SessionID, existing.TermID
	in.Grade = strings.ToUpper(strings.TrimSpace(in.Grade))
	if err := s.validateResult(ctx, in); err != nil {
		return Result{}, err
	}
	return s.repo.UpdateResult(ctx, id, in)
}

// DeleteResult removes a result.
func (s *Service) DeleteResult(ctx context.Context, id int64) error {
	return s.repo.DeleteResult(ctx, id)
}

// ListResultsForTerm returns a student's results for one term.
func (s *Service) ListResultsForTerm(ctx context.Context, studentID, sessionID, termID int64) ([]Result, error) {
	return s.repo.ListResults(ctx, ResultFilter{StudentID: studentID, SessionID: sessionID, TermID: termID})
}

// AcademicHistory returns every result of a student ordered by session then term start date.
func (s *Service) AcademicHistory(ctx context.Context, studentID int64) ([]Result, error) {
	if _, err := s.repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListResults(ctx, ResultFilter{StudentID: studentID})
}
