package academics

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/shared"
)

// Repository provides PostgreSQL backed persistence for academic records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- Sessions and terms ---

// CreateSession inserts a session and its terms in one transaction.
func (r *Repository) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	var out Session
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO academic_sessions (name, start_date, end_date)
			VALUES ($1, $2, $3)
			RETURNING id, name, start_date, end_date, created_at, updated_at`,
			in.Name, in.StartDate.Time, in.EndDate.Time,
		).Scan(&out.ID, &out.Name, &out.StartDate, &out.EndDate, &out.CreatedAt, &out.UpdatedAt)
		if err != nil {
			return err
		}
		for _, t := range in.Terms {
			term := Term{SessionID: out.ID}
			err := tx.QueryRow(ctx, `
				INSERT INTO terms (session_id, name, start_date, end_date)
				VALUES ($1, $2, $3, $4)
				RETURNING id, name, start_date, end_date, is_current`,
				out.ID, t.Name, t.StartDate.Time, t.EndDate.Time,
			).Scan(&term.ID, &term.Name, &term.StartDate, &term.EndDate, &term.IsCurrent)
			if err != nil {
				return err
			}
			out.Terms = append(out.Terms, term)
		}
		return nil
	})
	if err != nil {
		return Session{}, db.MapError("academics: create session", err)
	}
	return out, nil
}

// GetSession loads a session with its terms.
func (r *Repository) GetSession(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, created_at, updated_at
		FROM academic_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Session{}, db.MapError("academics: get session", err)
	}
	terms, err := r.listTerms(ctx, []int64{id})
	if err != nil {
		return Session{}, err
	}
	s.Terms = terms[id]
	return s, nil
}

// ListSessions returns every session, most recent first, with terms.
func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, created_at, updated_at
		FROM academic_sessions ORDER BY start_date DESC, id DESC`)
	if err != nil {
		return nil, db.MapError("academics: list sessions", err)
	}
	defer rows.Close()

	var sessions []Session
	var ids []int64
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, db.MapError("academics: scan session", err)
		}
		sessions = append(sessions, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError("academics: list sessions", err)
	}
	if len(ids) == 0 {
		return sessions, nil
	}
	terms, err := r.listTerms(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Terms = terms[sessions[i].ID]
	}
	return sessions, nil
}

// UpdateSession renames or re-dates a session.
func (r *Repository) UpdateSession(ctx context.Context, id int64, in CreateSessionInput) (Session, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE academic_sessions SET name = $2, start_date = $3, end_date = $4, updated_at = NOW()
		WHERE id = $1`, id, in.Name, in.StartDate.Time, in.EndDate.Time)
	if err != nil {
		return Session{}, db.MapError("academics: update session", err)
	}
	if tag.RowsAffected() == 0 {
		return Session{}, shared.ErrNotFound
	}
	return r.GetSession(ctx, id)
}

// DeleteSession removes a session and, by cascade, its terms.
func (r *Repository) DeleteSession(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete session", `DELETE FROM academic_sessions WHERE id = $1`, id)
}

func (r *Repository) listTerms(ctx context.Context, sessionIDs []int64) (map[int64][]Term, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, name, start_date, end_date, is_current
		FROM terms WHERE session_id = ANY($1)
		ORDER BY session_id, start_date, id`, sessionIDs)
	if err != nil {
		return nil, db.MapError("academics: list terms", err)
	}
	defer rows.Close()

	out := make(map[int64][]Term, len(sessionIDs))
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent); err != nil {
			return nil, db.MapError("academics: scan term", err)
		}
		out[t.SessionID] = append(out[t.SessionID], t)
	}
	return out, db.MapError("academics: list terms", rows.Err())
}

// GetTerm loads a term by id.
func (r *Repository) GetTerm(ctx context.Context, id int64) (Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, name, start_date, end_date, is_current
		FROM terms WHERE id = $1`, id,
	).Scan(&t.ID, &t.SessionID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent)
	if err != nil {
		return Term{}, db.MapError("academics: get term", err)
	}
	return t, nil
}

// SetCurrentTerm makes termID the only current term of its session.
func (r *Repository) SetCurrentTerm(ctx context.Context, termID int64) (Term, error) {
	var t Term
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var sessionID int64
		if err := tx.QueryRow(ctx, `SELECT session_id FROM terms WHERE id = $1 FOR UPDATE`, termID).Scan(&sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE terms SET is_current = FALSE, updated_at = NOW() WHERE session_id = $1 AND is_current`, sessionID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE terms SET is_current = TRUE, updated_at = NOW() WHERE id = $1
			RETURNING id, session_id, name, start_date, end_date, is_current`, termID,
		).Scan(&t.ID, &t.SessionID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent)
	})
	if err != nil {
		return Term{}, db.MapError("academics: set current term", err)
	}
	return t, nil
}

// CurrentTerm returns the current term of the most recently started session.
func (r *Repository) CurrentTerm(ctx context.Context) (Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `
		SELECT t.id, t.session_id, t.name, t.start_date, t.end_date, t.is_current
		FROM terms t JOIN academic_sessions s ON s.id = t.session_id
		WHERE t.is_current
		ORDER BY s.start_date DESC, t.start_date DESC
		LIMIT 1`,
	).Scan(&t.ID, &t.SessionID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent)
	if err != nil {
		return Term{}, db.MapError("academics: current term", err)
	}
	return t, nil
}

// --- Classes ---

// CreateClass inserts a class.
func (r *Repository) CreateClass(ctx context.Context, name string) (Class, error) {
	var c Class
	err := r.pool.QueryRow(ctx, `
		INSERT INTO classes (name) VALUES ($1) RETURNING id, name, created_at`, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return Class{}, db.MapError("academics: create class", err)
	}
	return c, nil
}

// GetClass loads a class with its student count.
func (r *Repository) GetClass(ctx context.Context, id int64) (Class, error) {
	var c Class
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.name, c.created_at, COUNT(s.id)
		FROM classes c LEFT JOIN students s ON s.class_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.StudentCount)
	if err != nil {
		return Class{}, db.MapError("academics: get class", err)
	}
	return c, nil
}

// ListClasses returns all classes ordered by name.
func (r *Repository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.created_at, COUNT(s.id)
		FROM classes c LEFT JOIN students s ON s.class_id = c.id
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		return nil, db.MapError("academics: list classes", err)
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.StudentCount); err != nil {
			return nil, db.MapError("academics: scan class", err)
		}
		out = append(out, c)
	}
	return out, db.MapError("academics: list classes", rows.Err())
}

// UpdateClass renames a class.
func (r *Repository) UpdateClass(ctx context.Context, id int64, name string) (Class, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE classes SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	if err != nil {
		return Class{}, db.MapError("academics: update class", err)
	}
	if tag.RowsAffected() == 0 {
		return Class{}, shared.ErrNotFound
	}
	return r.GetClass(ctx, id)
}

// DeleteClass removes a class; its students become unassigned.
func (r *Repository) DeleteClass(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete class", `DELETE FROM classes WHERE id = $1`, id)
}

// --- Students ---

const studentColumns = `
	st.id, st.user_id, st.admission_no, st.class_id, COALESCE(c.name, ''),
	u.email, u.first_name, u.last_name, u.middle_name, st.created_at`

const studentFrom = `
	FROM students st
	JOIN users u ON u.id = st.user_id
	LEFT JOIN classes c ON c.id = st.class_id`

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.UserID, &s.AdmissionNo, &s.ClassID, &s.ClassName,
		&s.Email, &s.FirstName, &s.LastName, &s.MiddleName, &s.CreatedAt)
	return s, err
}

// CreateStudent inserts the user and the student row in one transaction.
func (r *Repository) CreateStudent(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		userID, err := insertUser(ctx, tx, in.Email, passwordHash, in.FirstName, in.LastName, in.MiddleName, shared.RoleStudent)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO students (user_id, admission_no, class_id) VALUES ($1, $2, $3)
			RETURNING id`, userID, in.AdmissionNo, in.ClassID,
		).Scan(&id)
	})
	if err != nil {
		return Student{}, db.MapError("academics: create student", err)
	}
	return r.GetStudent(ctx, id)
}

func insertUser(ctx context.Context, tx pgx.Tx, email, hash, first, last, middle string, role shared.Role) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, middle_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		strings.ToLower(strings.TrimSpace(email)), hash, first, last, middle, string(role),
	).Scan(&id)
	return id, err
}

// GetStudent loads a student with profile fields.
func (r *Repository) GetStudent(ctx context.Context, id int64) (Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, `SELECT `+studentColumns+studentFrom+` WHERE st.id = $1`, id))
	if err != nil {
		return Student{}, db.MapError("academics: get student", err)
	}
	return s, nil
}

// Optional filters compare against typed zero values so ids above 2^31 still bind.
const (
	studentFilterWhere = ` WHERE ($1::bigint = 0 OR st.class_id = $1)
		AND ($2::text = '' OR u.first_name ILIKE '%' || $2 || '%' OR u.last_name ILIKE '%' || $2 || '%' OR st.admission_no ILIKE '%' || $2 || '%')`

	studentIDsQuery = `
		SELECT id FROM students WHERE ($1::bigint = 0 OR class_id = $1) ORDER BY id`

	resultFilterWhere = `
		WHERE ($1::bigint = 0 OR r.student_id = $1)
		  AND ($2::bigint = 0 OR r.course_id = $2)
		  AND ($3::bigint = 0 OR r.session_id = $3)
		  AND ($4::bigint = 0 OR r.term_id = $4)`
)

// ListStudents returns one page of students and the total match count.
func (r *Repository) ListStudents(ctx context.Context, f StudentFilter) ([]Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+studentFrom+studentFilterWhere, f.ClassID, f.Search).Scan(&total); err != nil {
		return nil, 0, db.MapError("academics: count students", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+studentFrom+studentFilterWhere+`
		ORDER BY u.last_name, u.first_name, st.id
		LIMIT $3 OFFSET $4`, f.ClassID, f.Search, f.Limit(), f.Offset())
	if err != nil {
		return nil, 0, db.MapError("academics: list students", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, db.MapError("academics: scan student", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError("academics: list students", err)
	}
	return out, total, nil
}

// ListStudentIDs returns the ids of a class's students, or of every student when classID is 0.
func (r *Repository) ListStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, studentIDsQuery, classID)
	if err != nil {
		return nil, db.MapError("academics: list student ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, db.MapError("academics: list student ids", err)
	}
	return ids, nil
}

// UpdateStudent applies profile changes to the user and student rows.
func (r *Repository) UpdateStudent(ctx context.Context, id int64, in UpdateStudentInput) (Student, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
			UPDATE students SET
				admission_no = COALESCE($2, admission_no),
				class_id = CASE WHEN $3::boolean THEN $4::bigint ELSE class_id END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING user_id`, id, in.AdmissionNo, in.ClassID.Set, in.ClassID.Value,
		).Scan(&userID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET
				first_name = COALESCE($2, first_name),
				last_name = COALESCE($3, last_name),
				middle_name = COALESCE($4, middle_name),
				updated_at = NOW()
			WHERE id = $1`, userID, in.FirstName, in.LastName, in.MiddleName)
		return err
	})
	if err != nil {
		return Student{}, db.MapError("academics: update student", err)
	}
	return r.GetStudent(ctx, id)
}

// SetStudentClass moves a student to another class.
func (r *Repository) SetStudentClass(ctx context.Context, studentID, classID int64) (Student, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET class_id = $2, updated_at = NOW() WHERE id = $1`, studentID, classID)
	if err != nil {
		return Student{}, db.MapError("academics: set student class", err)
	}
	if tag.RowsAffected() == 0 {
		return Student{}, shared.ErrNotFound
	}
	return r.GetStudent(ctx, studentID)
}

// DeleteStudent removes the student's user; the student row cascades.
func (r *Repository) DeleteStudent(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete student",
		`DELETE FROM users WHERE id = (SELECT user_id FROM students WHERE id = $1)`, id)
}

// --- Teachers ---

// CreateTeacher inserts the user and the teacher row in one transaction.
func (r *Repository) CreateTeacher(ctx context.Context, in CreateTeacherInput, passwordHash string) (Teacher, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		userID, err := insertUser(ctx, tx, in.Email, passwordHash, in.FirstName, in.LastName, "", shared.RoleTeacher)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `INSERT INTO teachers (user_id) VALUES ($1) RETURNING id`, userID).Scan(&id)
	})
	if err != nil {
		return Teacher{}, db.MapError("academics: create teacher", err)
	}
	return r.GetTeacher(ctx, id)
}

// GetTeacher loads a teacher with profile fields.
func (r *Repository) GetTeacher(ctx context.Context, id int64) (Teacher, error) {
	var t Teacher
	err := r.pool.QueryRow(ctx, `
		SELECT t.id, t.user_id, u.email, u.first_name, u.last_name, t.created_at
		FROM teachers t JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.Email, &t.FirstName, &t.LastName, &t.CreatedAt)
	if err != nil {
		return Teacher{}, db.MapError("academics: get teacher", err)
	}
	return t, nil
}

// ListTeachers returns all teachers ordered by name.
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.user_id, u.email, u.first_name, u.last_name, t.created_at
		FROM teachers t JOIN users u ON u.id = t.user_id
		ORDER BY u.last_name, u.first_name`)
	if err != nil {
		return nil, db.MapError("academics: list teachers", err)
	}
	defer rows.Close()

	var out []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.UserID, &t.Email, &t.FirstName, &t.LastName, &t.CreatedAt); err != nil {
			return nil, db.MapError("academics: scan teacher", err)
		}
		out = append(out, t)
	}
	return out, db.MapError("academics: list teachers", rows.Err())
}

// UpdateTeacher applies profile changes to the teacher's user row.
func (r *Repository) UpdateTeacher(ctx context.Context, id int64, in UpdateTeacherInput) (Teacher, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			updated_at = NOW()
		WHERE id = (SELECT user_id FROM teachers WHERE id = $1)`,
		id, in.Email, in.FirstName, in.LastName)
	if err != nil {
		return Teacher{}, db.MapError("academics: update teacher", err)
	}
	if tag.RowsAffected() == 0 {
		return Teacher{}, shared.ErrNotFound
	}
	return r.GetTeacher(ctx, id)
}

// DeleteTeacher removes the teacher's user; courses keep existing without a teacher.
func (r *Repository) DeleteTeacher(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete teacher",
		`DELETE FROM users WHERE id = (SELECT user_id FROM teachers WHERE id = $1)`, id)
}

// --- Courses ---

const courseSelect = `
	SELECT co.id, co.name, co.teacher_id, COALESCE(u.first_name || ' ' || u.last_name, ''), co.created_at
	FROM courses co
	LEFT JOIN teachers t ON t.id = co.teacher_id
	LEFT JOIN users u ON u.id = t.user_id`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.TeacherID, &c.TeacherName, &c.CreatedAt)
	return c, err
}

// CreateCourse inserts a course.
func (r *Repository) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO courses (name, teacher_id) VALUES ($1, $2) RETURNING id`, in.Name, in.TeacherID).Scan(&id)
	if err != nil {
		return Course{}, db.MapError("academics: create course", err)
	}
	return r.GetCourse(ctx, id)
}

// GetCourse loads a course.
func (r *Repository) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, err := scanCourse(r.pool.QueryRow(ctx, courseSelect+` WHERE co.id = $1`, id))
	if err != nil {
		return Course{}, db.MapError("academics: get course", err)
	}
	return c, nil
}

// ListCourses returns all courses ordered by name.
func (r *Repository) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := r.pool.Query(ctx, courseSelect+` ORDER BY co.name, co.id`)
	if err != nil {
		return nil, db.MapError("academics: list courses", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, db.MapError("academics: scan course", err)
		}
		out = append(out, c)
	}
	return out, db.MapError("academics: list courses", rows.Err())
}

// UpdateCourse replaces a course's name and teacher.
func (r *Repository) UpdateCourse(ctx context.Context, id int64, in CourseInput) (Course, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET name = $2, teacher_id = $3, updated_at = NOW() WHERE id = $1`, id, in.Name, in.TeacherID)
	if err != nil {
		return Course{}, db.MapError("academics: update course", err)
	}
	if tag.RowsAffected() == 0 {
		return Course{}, shared.ErrNotFound
	}
	return r.GetCourse(ctx, id)
}

// AssignTeacher sets the course's teacher.
func (r *Repository) AssignTeacher(ctx context.Context, courseID, teacherID int64) (Course, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET teacher_id = $2, updated_at = NOW() WHERE id = $1`, courseID, teacherID)
	if err != nil {
		return Course{}, db.MapError("academics: assign teacher", err)
	}
	if tag.RowsAffected() == 0 {
		return Course{}, shared.ErrNotFound
	}
	return r.GetCourse(ctx, courseID)
}

// DeleteCourse removes a course with its enrollments and results.
func (r *Repository) DeleteCourse(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete course", `DELETE FROM courses WHERE id = $1`, id)
}

// --- Enrollments ---

// Enroll links a student to a course.
func (r *Repository) Enroll(ctx context.Context, studentID, courseID int64) (Enrollment, error) {
	e := Enrollment{StudentID: studentID, CourseID: courseID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO student_courses (student_id, course_id) VALUES ($1, $2)
		RETURNING created_at`, studentID, courseID,
	).Scan(&e.CreatedAt)
	if err != nil {
		return Enrollment{}, db.MapError("academics: enroll", err)
	}
	return e, nil
}

// Unenroll removes a student from a course.
func (r *Repository) Unenroll(ctx context.Context, studentID, courseID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM student_courses WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return db.MapError("academics: unenroll", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EnrollClass enrolls every student of a class, skipping existing enrollments.
// It returns the number of new enrollments.
func (r *Repository) EnrollClass(ctx context.Context, courseID, classID int64) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO student_courses (student_id, course_id)
		SELECT id, $1 FROM students WHERE class_id = $2
		ON CONFLICT (student_id, course_id) DO NOTHING`, courseID, classID)
	if err != nil {
		return 0, db.MapError("academics: enroll class", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListEnrollments returns a student's courses.
func (r *Repository) ListEnrollments(ctx context.Context, studentID int64) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sc.student_id, sc.course_id, co.name, sc.created_at
		FROM student_courses sc JOIN courses co ON co.id = sc.course_id
		WHERE sc.student_id = $1
		ORDER BY co.name`, studentID)
	if err != nil {
		return nil, db.MapError("academics: list enrollments", err)
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.StudentID, &e.CourseID, &e.CourseName, &e.CreatedAt); err != nil {
			return nil, db.MapError("academics: scan enrollment", err)
		}
		out = append(out, e)
	}
	return out, db.MapError("academics: list enrollments", rows.Err())
}

// --- Results ---

const resultSelect = `
	SELECT r.id, r.student_id, r.course_id, co.name, r.session_id, s.name, r.term_id, t.name,
		r.score, r.grade, r.remark, r.updated_at
	FROM student_results r
	JOIN courses co ON co.id = r.course_id
	JOIN academic_sessions s ON s.id = r.session_id
	JOIN terms t ON t.id = r.term_id`

func scanResult(row pgx.Row) (Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.StudentID, &res.CourseID, &res.CourseName, &res.SessionID, &res.SessionName,
		&res.TermID, &res.TermName, &res.Score, &res.Grade, &res.Remark, &res.UpdatedAt)
	return res, err
}

// CreateResult inserts a result row.
func (r *Repository) CreateResult(ctx context.Context, in ResultInput) (Result, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO student_results (student_id, course_id, session_id, term_id, score, grade, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.StudentID, in.CourseID, in.SessionID, in.TermID, in.Score, in.Grade, in.Remark,
	).Scan(&id)
	if err != nil {
		return Result{}, db.MapError("academics: create result", err)
	}
	return r.GetResult(ctx, id)
}

// GetResult loads a result.
func (r *Repository) GetResult(ctx context.Context, id int64) (Result, error) {
	res, err := scanResult(r.pool.QueryRow(ctx, resultSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return Result{}, db.MapError("academics: get result", err)
	}
	return res, nil
}

// UpdateResult changes a result's score, grade and remark.
func (r *Repository) UpdateResult(ctx context.Context, id int64, in ResultInput) (Result, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE student_results SET score = $2, grade = $3, remark = $4, updated_at = NOW()
		WHERE id = $1`, id, in.Score, in.Grade, in.Remark)
	if err != nil {
		return Result{}, db.MapError("academics: update result", err)
	}
	if tag.RowsAffected() == 0 {
		return Result{}, shared.ErrNotFound
	}
	return r.GetResult(ctx, id)
}

// DeleteResult removes a result.
func (r *Repository) DeleteResult(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "academics: delete result", `DELETE FROM student_results WHERE id = $1`, id)
}

// ListResults returns results matching the filter ordered by session then term start.
func (r *Repository) ListResults(ctx context.Context, f ResultFilter) ([]Result, error) {
	rows, err := r.pool.Query(ctx, resultSelect+resultFilterWhere+`
		ORDER BY s.start_date, t.start_date, co.name, r.id`,
		f.StudentID, f.CourseID, f.SessionID, f.TermID)
	if err != nil {
		return nil, db.MapError("academics: list results", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, db.MapError("academics: scan result", err)
		}
		out = append(out, res)
	}
	return out, db.MapError("academics: list results", rows.Err())
}

func (r *Repository) deleteByID(ctx context.Context, op, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.MapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
