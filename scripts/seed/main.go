// Command seed loads the demo school: one session with three terms, the six
// secondary classes, an admin, four teachers, six courses and four students
// with a confirmed school fees payment each.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thvgger/igs-portal/internal/academics"
	"github.com/thvgger/igs-portal/internal/app"
	"github.com/thvgger/igs-portal/internal/auth"
	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/shared"
)

type seeder struct {
	users     *auth.Service
	academics *academics.Service
	ledger    *ledger.Service
	logger    *slog.Logger
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	academicsService := academics.NewService(academics.NewRepository(pool))
	s := seeder{
		users:     auth.NewService(auth.NewRepository(pool)),
		academics: academicsService,
		ledger:    ledger.NewService(ledger.NewRepository(pool), academicsService, ledger.WithLogger(logger)),
		logger:    logger,
	}
	if err := s.run(ctx); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			logger.Warn("database already seeded", slog.Any("error", err))
			return
		}
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.String("at", time.Now().Format(time.RFC3339)))
}

func date(s string) shared.Date {
	t, err := time.Parse(shared.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return shared.Date{Time: t}
}

func (s seeder) run(ctx context.Context) error {
	session, err := s.academics.CreateSession(ctx, academics.CreateSessionInput{
		Name:      "2024/2025",
		StartDate: date("2024-09-01"),
		EndDate:   date("2025-06-30"),
		Terms: []academics.TermInput{
			{Name: "First Term", StartDate: date("2024-09-01"), EndDate: date("2024-12-20")},
			{Name: "Second Term", StartDate: date("2025-01-06"), EndDate: date("2025-04-11")},
			{Name: "Third Term", StartDate: date("2025-04-28"), EndDate: date("2025-06-30")},
		},
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if len(session.Terms) == 0 {
		return errors.New("session: no terms returned")
	}
	firstTerm := session.Terms[0]
	if _, err := s.academics.SetCurrentTerm(ctx, firstTerm.ID); err != nil {
		return fmt.Errorf("current term: %w", err)
	}
	s.logger.Info("seeded session", slog.String("name", session.Name), slog.Int("terms", len(session.Terms)))

	classes := make([]academics.Class, 0, 6)
	for _, name := range []string{"JSS 1", "JSS 2", "JSS 3", "SSS 1", "SSS 2", "SSS 3"} {
		class, err := s.academics.CreateClass(ctx, name)
		if err != nil {
			return fmt.Errorf("class %s: %w", name, err)
		}
		classes = append(classes, class)
	}

	if _, err := s.users.CreateStaff(ctx, auth.CreateUserInput{
		Email:     "admin@school.edu.ng",
		Password:  "adminpassword",
		FirstName: "Admin",
		LastName:  "User",
		Role:      shared.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("admin: %w", err)
	}

	teacherInputs := []academics.CreateTeacherInput{
		{Email: "teacher1@school.edu.ng", Password: "password1", FirstName: "John", LastName: "Doe"},
		{Email: "teacher2@school.edu.ng", Password: "password2", FirstName: "Jane", LastName: "Smith"},
		{Email: "teacher3@school.edu.ng", Password: "password3", FirstName: "Peter", LastName: "Jones"},
		{Email: "teacher4@school.edu.ng", Password: "password4", FirstName: "Mary", LastName: "Williams"},
	}
	teachers := make([]academics.Teacher, 0, len(teacherInputs))
	for _, in := range teacherInputs {
		teacher, err := s.academics.CreateTeacher(ctx, in)
		if err != nil {
			return fmt.Errorf("teacher %s: %w", in.Email, err)
		}
		teachers = append(teachers, teacher)
	}

	courseNames := []string{"English Language", "Mathematics", "Social Studies", "Agricultural Science", "Basic Technology", "Computer Science"}
	courses := make([]academics.Course, 0, len(courseNames))
	for i, name := range courseNames {
		teacherID := teachers[i%len(teachers)].ID
		course, err := s.academics.CreateCourse(ctx, academics.CourseInput{Name: name, TeacherID: &teacherID})
		if err != nil {
			return fmt.Errorf("course %s: %w", name, err)
		}
		courses = append(courses, course)
	}

	fees := decimal.NewFromInt(50000)
	bank := ledger.MethodBank
	students := make([]academics.Student, 0, 4)
	for i, name := range []string{"thvgger", "dtechy", "timothy", "precious"} {
		classID := classes[i%len(classes)].ID
		student, err := s.academics.CreateStudent(ctx, academics.CreateStudentInput{
			Email:       name + "@school.edu.ng",
			Password:    name + "-password",
			FirstName:   name,
			LastName:    name,
			MiddleName:  name,
			AdmissionNo: fmt.Sprintf("ADM%d", 2024+i),
			ClassID:     &classID,
		})
		if err != nil {
			return fmt.Errorf("student %s: %w", name, err)
		}
		students = append(students, student)

		if _, err := s.ledger.CreatePayment(ctx, ledger.CreatePaymentInput{
			StudentID: student.ID,
			SessionID: session.ID,
			TermID:    firstTerm.ID,
			Name:      "School Fees",
			Amount:    fees,
			Method:    &bank,
			Status:    ledger.StatusConfirmed,
		}); err != nil {
			return fmt.Errorf("payment for %s: %w", name, err)
		}
	}

	assignments := []struct{ course, class int }{{0, 0}, {1, 0}, {2, 1}, {3, 1}}
	for _, a := range assignments {
		n, err := s.academics.AssignCourseToClass(ctx, courses[a.course].ID, classes[a.class].ID)
		if err != nil {
			return fmt.Errorf("assign %s to %s: %w", courses[a.course].Name, classes[a.class].Name, err)
		}
		s.logger.Info("assigned course", slog.String("course", courses[a.course].Name), slog.String("class", classes[a.class].Name), slog.Int("enrolled", n))
	}

	if _, err := s.academics.EnrollStudent(ctx, students[0].ID, courses[4].ID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	if _, err := s.academics.EnrollStudent(ctx, students[1].ID, courses[5].ID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	return nil
}
