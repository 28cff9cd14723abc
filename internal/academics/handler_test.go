package academics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
)

type handlerFixture struct {
	router  http.Handler
	service *Service
	student Student
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	svc, _ := newTestService(t)
	class, err := svc.CreateClass(context.Background(), "JSS 1")
	require.NoError(t, err)
	student, err := svc.CreateStudent(context.Background(), CreateStudentInput{
		Email: "ada@school.edu.ng", Password: "ada-password", FirstName: "Ada", LastName: "Obi",
		AdmissionNo: "ADM2024", ClassID: &class.ID,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, rbac.NewMiddleware(logger))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			role := req.Header.Get("X-Test-Role")
			if role == "" {
				next.ServeHTTP(w, req)
				return
			}
			p := shared.Principal{UserID: 1, Role: shared.Role(role)}
			if p.Role == shared.RoleStudent {
				p.StudentID = student.ID
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	handler.MountRoutes(r)
	return &handlerFixture{router: r, service: svc, student: student}
}

func (f *handlerFixture) do(t *testing.T, role, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerStudentSeesOnlyOwnRecord(t *testing.T) {
	f := newHandlerFixture(t)
	own := "/students/" + strconv.FormatInt(f.student.ID, 10)

	rec := f.do(t, "STUDENT", http.MethodGet, own, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "ADM2024", got.AdmissionNo)

	rec = f.do(t, "STUDENT", http.MethodGet, "/students/999", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "TEACHER", http.MethodGet, "/students/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "", http.MethodGet, own, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerStudentListNeedsManagePermission(t *testing.T) {
	f := newHandlerFixture(t)

	require.Equal(t, http.StatusForbidden, f.do(t, "TEACHER", http.MethodGet, "/students", nil).Code)

	rec := f.do(t, "ADMIN", http.MethodGet, "/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Students []Student `json:"students"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Students, 1)
}

func TestHandlerCreateSession(t *testing.T) {
	f := newHandlerFixture(t)

	require.Equal(t, http.StatusForbidden, f.do(t, "LOWER_ADMIN", http.MethodPost, "/sessions", sessionInput()).Code)

	rec := f.do(t, "ADMIN", http.MethodPost, "/sessions", sessionInput())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Len(t, session.Terms, 3)

	bad := sessionInput()
	bad.Terms[1].StartDate = day(2024, time.December, 1)
	rec = f.do(t, "ADMIN", http.MethodPost, "/sessions", bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, "ADMIN", http.MethodPost, "/sessions", map[string]any{"name": "2025/2026", "colour": "blue"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerTeacherRecordsResults(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	session, err := f.service.CreateSession(ctx, sessionInput())
	require.NoError(t, err)
	course, err := f.service.CreateCourse(ctx, CourseInput{Name: "Mathematics"})
	require.NoError(t, err)
	_, err = f.service.EnrollStudent(ctx, f.student.ID, course.ID)
	require.NoError(t, err)

	in := map[string]any{
		"student_id": f.student.ID, "course_id": course.ID,
		"session_id": session.ID, "term_id": session.Terms[0].ID,
		"score": "78.5", "grade": "B",
	}
	require.Equal(t, http.StatusForbidden, f.do(t, "STUDENT", http.MethodPost, "/results", in).Code)

	rec := f.do(t, "TEACHER", http.MethodPost, "/results", in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	history := "/students/" + strconv.FormatInt(f.student.ID, 10) + "/history"
	rec = f.do(t, "STUDENT", http.MethodGet, history, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	require.Equal(t, "78.5", body.Results[0].Score.String())
}

func TestHandlerClearsStudentClass(t *testing.T) {
	f := newHandlerFixture(t)
	target := "/students/" + strconv.FormatInt(f.student.ID, 10)

	rec := f.do(t, "ADMIN", http.MethodPatch, target, json.RawMessage(`{"last_name":"Obi-Eze"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var kept Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kept))
	require.NotNil(t, kept.ClassID)

	rec = f.do(t, "ADMIN", http.MethodPatch, target, json.RawMessage(`{"class_id":null}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	require.Nil(t, cleared.ClassID)
	require.Equal(t, "Obi-Eze", cleared.LastName)
}

func TestHandlerUpdateTeacher(t *testing.T) {
	f := newHandlerFixture(t)
	teacher, err := f.service.CreateTeacher(context.Background(), CreateTeacherInput{
		Email: "jane@school.edu.ng", Password: "password2", FirstName: "Jane", LastName: "Smith",
	})
	require.NoError(t, err)
	target := "/teachers/" + strconv.FormatInt(teacher.ID, 10)
	body := map[string]any{"first_name": "Janet"}

	require.Equal(t, http.StatusForbidden, f.do(t, "TEACHER", http.MethodPatch, target, body).Code)

	rec := f.do(t, "ADMIN", http.MethodPatch, target, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Teacher
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Janet", updated.FirstName)

	rec = f.do(t, "ADMIN", http.MethodPatch, "/teachers/999", body)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
