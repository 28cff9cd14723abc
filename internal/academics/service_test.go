package academics

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thvgger/igs-portal/internal/shared"
)

type memoryRepo struct {
	nextID      int64
	sessions    map[int64]Session
	terms       map[int64]Term
	classes     map[int64]Class
	students    map[int64]Student
	hashes      map[int64]string
	teachers    map[int64]Teacher
	courses     map[int64]Course
	enrollments map[[2]int64]Enrollment
	results     map[int64]Result
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions:    make(map[int64]Session),
		terms:       make(map[int64]Term),
		classes:     make(map[int64]Class),
		students:    make(map[int64]Student),
		hashes:      make(map[int64]string),
		teachers:    make(map[int64]Teacher),
		courses:     make(map[int64]Course),
		enrollments: make(map[[2]int64]Enrollment),
		results:     make(map[int64]Result),
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	s := Session{ID: m.id(), Name: in.Name, StartDate: in.StartDate.Time, EndDate: in.EndDate.Time}
	for _, t := range in.Terms {
		term := Term{ID: m.id(), SessionID: s.ID, Name: t.Name, StartDate: t.StartDate.Time, EndDate: t.EndDate.Time}
		m.terms[term.ID] = term
		s.Terms = append(s.Terms, term)
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryRepo) GetSession(ctx context.Context, id int64) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListSessions(ctx context.Context) ([]Session, error) {
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memoryRepo) UpdateSession(ctx context.Context, id int64, in CreateSessionInput) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	s.Name, s.StartDate, s.EndDate = in.Name, in.StartDate.Time, in.EndDate.Time
	m.sessions[id] = s
	return s, nil
}

func (m *memoryRepo) DeleteSession(ctx context.Context, id int64) error {
	if _, ok := m.sessions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memoryRepo) GetTerm(ctx context.Context, id int64) (Term, error) {
	t, ok := m.terms[id]
	if !ok {
		return Term{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) SetCurrentTerm(ctx context.Context, termID int64) (Term, error) {
	target, ok := m.terms[termID]
	if !ok {
		return Term{}, shared.ErrNotFound
	}
	for id, t := range m.terms {
		if t.SessionID == target.SessionID {
			t.IsCurrent = id == termID
			m.terms[id] = t
		}
	}
	return m.terms[termID], nil
}

func (m *memoryRepo) CurrentTerm(ctx context.Context) (Term, error) {
	for _, t := range m.terms {
		if t.IsCurrent {
			return t, nil
		}
	}
	return Term{}, shared.ErrNotFound
}

func (m *memoryRepo) CreateClass(ctx context.Context, name string) (Class, error) {
	for _, c := range m.classes {
		if c.Name == name {
			return Class{}, shared.ErrDuplicate
		}
	}
	c := Class{ID: m.id(), Name: name}
	m.classes[c.ID] = c
	return c, nil
}

func (m *memoryRepo) GetClass(ctx context.Context, id int64) (Class, error) {
	c, ok := m.classes[id]
	if !ok {
		return Class{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListClasses(ctx context.Context) ([]Class, error) {
	out := make([]Class, 0, len(m.classes))
	for _, c := range m.classes {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) UpdateClass(ctx context.Context, id int64, name string) (Class, error) {
	c, ok := m.classes[id]
	if !ok {
		return Class{}, shared.ErrNotFound
	}
	c.Name = name
	m.classes[id] = c
	return c, nil
}

func (m *memoryRepo) DeleteClass(ctx context.Context, id int64) error {
	delete(m.classes, id)
	return nil
}

func (m *memoryRepo) CreateStudent(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error) {
	for _, s := range m.students {
		if s.AdmissionNo == in.AdmissionNo {
			return Student{}, shared.ErrDuplicate
		}
	}
	s := Student{
		ID: m.id(), UserID: m.id(), AdmissionNo: in.AdmissionNo, ClassID: in.ClassID,
		Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, MiddleName: in.MiddleName,
	}
	m.students[s.ID] = s
	m.hashes[s.ID] = passwordHash
	return s, nil
}

func (m *memoryRepo) GetStudent(ctx context.Context, id int64) (Student, error) {
	s, ok := m.students[id]
	if !ok {
		return Student{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListStudents(ctx context.Context, f StudentFilter) ([]Student, int, error) {
	var matched []Student
	for _, s := range m.students {
		if f.ClassID != 0 && (s.ClassID == nil || *s.ClassID != f.ClassID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(s.FullName()+" "+s.AdmissionNo), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit(), total)
	return matched[start:end], total, nil
}

func (m *memoryRepo) ListStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	var ids []int64
	for id, s := range m.students {
		if classID == 0 || (s.ClassID != nil && *s.ClassID == classID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryRepo) UpdateStudent(ctx context.Context, id int64, in UpdateStudentInput) (Student, error) {
	s, ok := m.students[id]
	if !ok {
		return Student{}, shared.ErrNotFound
	}
	if in.FirstName != nil {
		s.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		s.LastName = *in.LastName
	}
	if in.ClassID.Set {
		s.ClassID = in.ClassID.Value
		s.ClassName = ""
		if in.ClassID.Value != nil {
			s.ClassName = m.classes[*in.ClassID.Value].Name
		}
	}
	m.students[id] = s
	return s, nil
}

func (m *memoryRepo) SetStudentClass(ctx context.Context, studentID, classID int64) (Student, error) {
	s, ok := m.students[studentID]
	if !ok {
		return Student{}, shared.ErrNotFound
	}
	s.ClassID = &classID
	s.ClassName = m.classes[classID].Name
	m.students[studentID] = s
	return s, nil
}

func (m *memoryRepo) DeleteStudent(ctx context.Context, id int64) error {
	if _, ok := m.students[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.students, id)
	return nil
}

func (m *memoryRepo) CreateTeacher(ctx context.Context, in CreateTeacherInput, passwordHash string) (Teacher, error) {
	t := Teacher{ID: m.id(), UserID: m.id(), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}
	m.teachers[t.ID] = t
	return t, nil
}

func (m *memoryRepo) GetTeacher(ctx context.Context, id int64) (Teacher, error) {
	t, ok := m.teachers[id]
	if !ok {
		return Teacher{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) ListTeachers(ctx context.Context) ([]Teacher, error) {
	out := make([]Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryRepo) UpdateTeacher(ctx context.Context, id int64, in UpdateTeacherInput) (Teacher, error) {
	t, ok := m.teachers[id]
	if !ok {
		return Teacher{}, shared.ErrNotFound
	}
	if in.Email != nil {
		t.Email = *in.Email
	}
	if in.FirstName != nil {
		t.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		t.LastName = *in.LastName
	}
	m.teachers[id] = t
	return t, nil
}

func (m *memoryRepo) DeleteTeacher(ctx context.Context, id int64) error {
	delete(m.teachers, id)
	return nil
}

func (m *memoryRepo) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	c := Course{ID: m.id(), Name: in.Name, TeacherID: in.TeacherID}
	m.courses[c.ID] = c
	return c, nil
}

func (m *memoryRepo) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return Course{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListCourses(ctx context.Context) ([]Course, error) {
	out := make([]Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) UpdateCourse(ctx context.Context, id int64, in CourseInput) (Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return Course{}, shared.ErrNotFound
	}
	c.Name, c.TeacherID = in.Name, in.TeacherID
	m.courses[id] = c
	return c, nil
}

func (m *memoryRepo) AssignTeacher(ctx context.Context, courseID, teacherID int64) (Course, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return Course{}, shared.ErrNotFound
	}
	c.TeacherID = &teacherID
	m.courses[courseID] = c
	return c, nil
}

func (m *memoryRepo) DeleteCourse(ctx context.Context, id int64) error {
	delete(m.courses, id)
	return nil
}

func (m *memoryRepo) Enroll(ctx context.Context, studentID, courseID int64) (Enrollment, error) {
	key := [2]int64{studentID, courseID}
	if _, ok := m.enrollments[key]; ok {
		return Enrollment{}, shared.ErrDuplicate
	}
	e := Enrollment{StudentID: studentID, CourseID: courseID}
	m.enrollments[key] = e
	return e, nil
}

func (m *memoryRepo) Unenroll(ctx context.Context, studentID, courseID int64) error {
	key := [2]int64{studentID, courseID}
	if _, ok := m.enrollments[key]; !ok {
		return shared.ErrNotFound
	}
	delete(m.enrollments, key)
	return nil
}

func (m *memoryRepo) EnrollClass(ctx context.Context, courseID, classID int64) (int, error) {
	ids, _ := m.ListStudentIDs(ctx, classID)
	added := 0
	for _, id := range ids {
		if _, err := m.Enroll(ctx, id, courseID); err == nil {
			added++
		}
	}
	return added, nil
}

func (m *memoryRepo) ListEnrollments(ctx context.Context, studentID int64) ([]Enrollment, error) {
	var out []Enrollment
	for key, e := range m.enrollments {
		if key[0] == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateResult(ctx context.Context, in ResultInput) (Result, error) {
	r := Result{
		ID: m.id(), StudentID: in.StudentID, CourseID: in.CourseID, SessionID: in.SessionID,
		TermID: in.TermID, Score: in.Score, Grade: in.Grade, Remark: in.Remark,
	}
	m.results[r.ID] = r
	return r, nil
}

func (m *memoryRepo) GetResult(ctx context.Context, id int64) (Result, error) {
	r, ok := m.results[id]
	if !ok {
		return Result{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) UpdateResult(ctx context.Context, id int64, in ResultInput) (Result, error) {
	r, ok := m.results[id]
	if !ok {
		return Result{}, shared.ErrNotFound
	}
	r.Score, r.Grade, r.Remark = in.Score, in.Grade, in.Remark
	m.results[id] = r
	return r, nil
}

func (m *memoryRepo) DeleteResult(ctx context.Context, id int64) error {
	delete(m.results, id)
	return nil
}

func (m *memoryRepo) ListResults(ctx context.Context, f ResultFilter) ([]Result, error) {
	var out []Result
	for _, r := range m.results {
		if r.StudentID != f.StudentID {
			continue
		}
		if f.TermID != 0 && r.TermID != f.TermID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := m.terms[out[i].TermID], m.terms[out[j].TermID]
		return ti.StartDate.Before(tj.StartDate)
	})
	return out, nil
}

func day(y int, mo time.Month, d int) shared.Date {
	return shared.Date{Time: time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)}
}

func sessionInput() CreateSessionInput {
	return CreateSessionInput{
		Name:      "2024/2025",
		StartDate: day(2024, time.September, 2),
		EndDate:   day(2025, time.July, 25),
		Terms: []TermInput{
			{Name: "First Term", StartDate: day(2024, time.September, 2), EndDate: day(2024, time.December, 13)},
			{Name: "Second Term", StartDate: day(2025, time.January, 6), EndDate: day(2025, time.April, 4)},
			{Name: "Third Term", StartDate: day(2025, time.April, 28), EndDate: day(2025, time.July, 25)},
		},
	}
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	return NewService(repo), repo
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, f := range ve.Fields {
		if f.Field == field {
			return
		}
	}
	t.Fatalf("no error for field %q in %v", field, ve.Fields)
}

func TestCreateSessionWithTerms(t *testing.T) {
	svc, _ := newTestService(t)

	s, err := svc.CreateSession(context.Background(), sessionInput())
	require.NoError(t, err)
	require.Len(t, s.Terms, 3)
	require.Equal(t, "First Term", s.Terms[0].Name)
	require.Equal(t, s.ID, s.Terms[2].SessionID)
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*CreateSessionInput)
		field  string
	}{
		{"missing name", func(in *CreateSessionInput) { in.Name = "  " }, "name"},
		{"missing start", func(in *CreateSessionInput) { in.StartDate = shared.Date{} }, "start_date"},
		{"end before start", func(in *CreateSessionInput) { in.EndDate = day(2024, time.January, 1) }, "end_date"},
		{"term outside session", func(in *CreateSessionInput) { in.Terms[2].EndDate = day(2025, time.August, 30) }, "terms[2]"},
		{"overlapping terms", func(in *CreateSessionInput) { in.Terms[1].StartDate = day(2024, time.December, 1) }, "terms[1].start_date"},
		{"term ends before start", func(in *CreateSessionInput) { in.Terms[0].EndDate = day(2024, time.August, 1) }, "terms[0].end_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sessionInput()
			tc.mutate(&in)
			_, err := svc.CreateSession(context.Background(), in)
			requireFieldError(t, err, tc.field)
		})
	}
}

func TestTermOfSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.CreateSession(ctx, sessionInput())
	require.NoError(t, err)
	other := sessionInput()
	other.Name = "2025/2026"
	second, err := svc.CreateSession(ctx, other)
	require.NoError(t, err)

	term, err := svc.TermOfSession(ctx, first.ID, first.Terms[1].ID)
	require.NoError(t, err)
	require.Equal(t, "Second Term", term.Name)

	_, err = svc.TermOfSession(ctx, second.ID, first.Terms[1].ID)
	requireFieldError(t, err, "term_id")

	_, err = svc.TermOfSession(ctx, first.ID, 9999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetCurrentTermKeepsOnePerSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, sessionInput())
	require.NoError(t, err)

	_, err = svc.SetCurrentTerm(ctx, s.Terms[0].ID)
	require.NoError(t, err)
	_, err = svc.SetCurrentTerm(ctx, s.Terms[1].ID)
	require.NoError(t, err)

	current, err := svc.CurrentTerm(ctx)
	require.NoError(t, err)
	require.Equal(t, s.Terms[1].ID, current.ID)
}

func TestCreateStudentHashesPassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	class, err := svc.CreateClass(ctx, "JSS1")
	require.NoError(t, err)

	st, err := svc.CreateStudent(ctx, CreateStudentInput{
		Email: "ada@school.edu.ng", Password: "password123", FirstName: "Ada", LastName: "Obi",
		AdmissionNo: " ADM20241 ", ClassID: &class.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "ADM20241", st.AdmissionNo)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[st.ID]), []byte("password123")))
}

func TestCreateStudentRejectsUnknownClassAndShortPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	missing := int64(404)

	_, err := svc.CreateStudent(ctx, CreateStudentInput{
		Email: "ada@school.edu.ng", Password: "password123", FirstName: "Ada", LastName: "Obi",
		AdmissionNo: "ADM20241", ClassID: &missing,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateStudent(ctx, CreateStudentInput{
		Email: "ada@school.edu.ng", Password: "short", FirstName: "Ada", LastName: "Obi", AdmissionNo: "ADM20241",
	})
	requireFieldError(t, err, "password")
}

func TestListStudentIDs(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	jss1, _ := svc.CreateClass(ctx, "JSS1")
	jss2, _ := svc.CreateClass(ctx, "JSS2")
	for i, classID := range []int64{jss1.ID, jss1.ID, jss2.ID} {
		cid := classID
		_, err := repo.CreateStudent(ctx, CreateStudentInput{AdmissionNo: "ADM" + string(rune('A'+i)), ClassID: &cid}, "x")
		require.NoError(t, err)
	}

	ids, err := svc.ListStudentIDs(ctx, jss1.ID)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	all, err := svc.ListStudentIDs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = svc.ListStudentIDs(ctx, 9999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListStudentsPagination(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.CreateStudent(ctx, CreateStudentInput{FirstName: "Student", LastName: "Test", AdmissionNo: "ADM" + string(rune('0'+i))}, "x")
		require.NoError(t, err)
	}

	students, page, err := svc.ListStudents(ctx, StudentFilter{PageRequest: shared.PageRequest{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, 5, page.Total)
	require.Equal(t, 3, page.TotalPages)
}

func TestPromoteStudent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	jss1, _ := svc.CreateClass(ctx, "JSS1")
	jss2, _ := svc.CreateClass(ctx, "JSS2")
	st, err := repo.CreateStudent(ctx, CreateStudentInput{AdmissionNo: "ADM1", ClassID: &jss1.ID}, "x")
	require.NoError(t, err)

	promoted, err := svc.PromoteStudent(ctx, st.ID, jss2.ID)
	require.NoError(t, err)
	require.Equal(t, jss2.ID, *promoted.ClassID)
	require.Equal(t, "JSS2", promoted.ClassName)

	_, err = svc.PromoteStudent(ctx, st.ID, 0)
	requireFieldError(t, err, "class_id")
}

func TestUpdateStudentClass(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	jss1, _ := svc.CreateClass(ctx, "JSS1")
	jss2, _ := svc.CreateClass(ctx, "JSS2")
	st, err := repo.CreateStudent(ctx, CreateStudentInput{AdmissionNo: "ADM1", ClassID: &jss1.ID}, "x")
	require.NoError(t, err)

	name := "Adaeze"
	updated, err := svc.UpdateStudent(ctx, st.ID, UpdateStudentInput{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, jss1.ID, *updated.ClassID)

	updated, err = svc.UpdateStudent(ctx, st.ID, UpdateStudentInput{ClassID: shared.SetID(jss2.ID)})
	require.NoError(t, err)
	require.Equal(t, jss2.ID, *updated.ClassID)

	updated, err = svc.UpdateStudent(ctx, st.ID, UpdateStudentInput{ClassID: shared.ClearID()})
	require.NoError(t, err)
	require.Nil(t, updated.ClassID)

	_, err = svc.UpdateStudent(ctx, st.ID, UpdateStudentInput{ClassID: shared.SetID(404)})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateTeacher(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	teacher, err := svc.CreateTeacher(ctx, CreateTeacherInput{
		Email: "john@school.edu.ng", Password: "password1", FirstName: "John", LastName: "Doe",
	})
	require.NoError(t, err)

	email := " John.Doe@School.edu.ng "
	last := "Okafor"
	updated, err := svc.UpdateTeacher(ctx, teacher.ID, UpdateTeacherInput{Email: &email, LastName: &last})
	require.NoError(t, err)
	require.Equal(t, "john.doe@school.edu.ng", updated.Email)
	require.Equal(t, "Okafor", updated.LastName)
	require.Equal(t, "John", updated.FirstName)

	empty := ""
	_, err = svc.UpdateTeacher(ctx, teacher.ID, UpdateTeacherInput{FirstName: &empty})
	requireFieldError(t, err, "first_name")

	_, err = svc.UpdateTeacher(ctx, 999, UpdateTeacherInput{LastName: &last})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignCourseToClassSkipsEnrolled(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	class, _ := svc.CreateClass(ctx, "SSS1")
	course, err := svc.CreateCourse(ctx, CourseInput{Name: "Mathematics"})
	require.NoError(t, err)
	var first Student
	for i := 0; i < 3; i++ {
		st, err := repo.CreateStudent(ctx, CreateStudentInput{AdmissionNo: "ADM" + string(rune('A'+i)), ClassID: &class.ID}, "x")
		require.NoError(t, err)
		if i == 0 {
			first = st
		}
	}
	_, err = svc.EnrollStudent(ctx, first.ID, course.ID)
	require.NoError(t, err)

	added, err := svc.AssignCourseToClass(ctx, course.ID, class.ID)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	_, err = svc.AssignCourseToClass(ctx, 9999, class.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignTeacherToCourseNeedsTeacher(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	course, err := svc.CreateCourse(ctx, CourseInput{Name: "English"})
	require.NoError(t, err)

	_, err = svc.AssignTeacherToCourse(ctx, course.ID, 77)
	require.ErrorIs(t, err, shared.ErrNotFound)

	teacher, err := svc.CreateTeacher(ctx, CreateTeacherInput{Email: "t@school.edu.ng", Password: "password123", FirstName: "Tola", LastName: "Ade"})
	require.NoError(t, err)
	updated, err := svc.AssignTeacherToCourse(ctx, course.ID, teacher.ID)
	require.NoError(t, err)
	require.Equal(t, teacher.ID, *updated.TeacherID)
}

func TestResultsValidationAndHistory(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, sessionInput())
	require.NoError(t, err)
	st, err := repo.CreateStudent(ctx, CreateStudentInput{AdmissionNo: "ADM1"}, "x")
	require.NoError(t, err)
	course, err := svc.CreateCourse(ctx, CourseInput{Name: "Physics"})
	require.NoError(t, err)

	in := ResultInput{StudentID: st.ID, CourseID: course.ID, SessionID: s.ID, TermID: s.Terms[1].ID, Score: decimal.RequireFromString("71.5"), Grade: " b "}
	second, err := svc.CreateResult(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "B", second.Grade)

	in.TermID = s.Terms[0].ID
	in.Score = decimal.NewFromInt(64)
	_, err = svc.CreateResult(ctx, in)
	require.NoError(t, err)

	in.Score = decimal.NewFromInt(101)
	_, err = svc.CreateResult(ctx, in)
	requireFieldError(t, err, "score")

	in.Score = decimal.NewFromInt(50)
	in.TermID = 9999
	_, err = svc.CreateResult(ctx, in)
	require.ErrorIs(t, err, shared.ErrNotFound)

	updated, err := svc.UpdateResult(ctx, second.ID, ResultInput{Score: decimal.NewFromInt(88), Grade: "a", Remark: "Excellent"})
	require.NoError(t, err)
	require.Equal(t, "88", updated.Score.String())
	require.Equal(t, st.ID, updated.StudentID)

	history, err := svc.AcademicHistory(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, s.Terms[0].ID, history[0].TermID)

	_, err = svc.AcademicHistory(ctx, 9999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRenameClassRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	class, err := svc.CreateClass(ctx, "JSS3")
	require.NoError(t, err)

	_, err = svc.RenameClass(ctx, class.ID, " ")
	requireFieldError(t, err, "name")

	renamed, err := svc.RenameClass(ctx, class.ID, "JSS 3")
	require.NoError(t, err)
	require.Equal(t, "JSS 3", renamed.Name)

	_, err = svc.CreateClass(ctx, "JSS 3")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}
