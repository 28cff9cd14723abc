package academics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
)

// Handler exposes academic records over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers academics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAcademicsView))
		r.Get("/sessions", h.listSessions)
		r.Get("/sessions/{id}", h.getSession)
		r.Get("/terms/current", h.currentTerm)
		r.Get("/terms/{id}", h.getTerm)
		r.Get("/classes", h.listClasses)
		r.Get("/classes/{id}", h.getClass)
		r.Get("/courses", h.listCourses)
		r.Get("/courses/{id}", h.getCourse)
		r.Get("/students/{id}", h.getStudent)
		r.Get("/students/{id}/courses", h.listEnrollments)
		r.Get("/students/{id}/results", h.listResultsForTerm)
		r.Get("/students/{id}/history", h.academicHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAcademicsEdit))
		r.Post("/sessions", h.createSession)
		r.Put("/sessions/{id}", h.updateSession)
		r.Delete("/sessions/{id}", h.deleteSession)
		r.Post("/terms/{id}/current", h.setCurrentTerm)
		r.Post("/classes", h.createClass)
		r.Put("/classes/{id}", h.renameClass)
		r.Delete("/classes/{id}", h.deleteClass)
		r.Get("/teachers", h.listTeachers)
		r.Post("/teachers", h.createTeacher)
		r.Patch("/teachers/{id}", h.updateTeacher)
		r.Delete("/teachers/{id}", h.deleteTeacher)
		r.Post("/courses", h.createCourse)
		r.Put("/courses/{id}", h.updateCourse)
		r.Delete("/courses/{id}", h.deleteCourse)
		r.Post("/courses/{id}/teacher", h.assignTeacher)
		r.Post("/courses/{id}/classes/{classID}", h.assignCourseToClass)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStudentsManage))
		r.Get("/students", h.listStudents)
		r.Post("/students", h.createStudent)
		r.Patch("/students/{id}", h.updateStudent)
		r.Delete("/students/{id}", h.deleteStudent)
		r.Post("/students/{id}/promote", h.promoteStudent)
		r.Post("/students/{id}/courses/{courseID}", h.enroll)
		r.Delete("/students/{id}/courses/{courseID}", h.unenroll)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermResultsEdit))
		r.Post("/results", h.createResult)
		r.Put("/results/{id}", h.updateResult)
		r.Delete("/results/{id}", h.deleteResult)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !shared.IsValidation(err) {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

// ensureStudentAccess limits students to their own records.
func ensureStudentAccess(r *http.Request, studentID int64) error {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return shared.ErrUnauthorized
	}
	if p.Role == shared.RoleStudent && !p.CanViewStudent(studentID) {
		return shared.ErrForbidden
	}
	return nil
}

// --- Sessions and terms ---

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		h.fail(w, r, "list sessions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var in CreateSessionInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.CreateSession(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create session", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateSessionInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.UpdateSession(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		h.fail(w, r, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getTerm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	term, err := h.service.GetTerm(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get term", err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) currentTerm(w http.ResponseWriter, r *http.Request) {
	term, err := h.service.CurrentTerm(r.Context())
	if err != nil {
		h.fail(w, r, "current term", err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) setCurrentTerm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	term, err := h.service.SetCurrentTerm(r.Context(), id)
	if err != nil {
		h.fail(w, r, "set current term", err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

// --- Classes ---

type classRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context())
	if err != nil {
		h.fail(w, r, "list classes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (h *Handler) getClass(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	class, err := h.service.GetClass(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get class", err)
		return
	}
	httpx.JSON(w, http.StatusOK, class)
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	class, err := h.service.CreateClass(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "create class", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, class)
}

func (h *Handler) renameClass(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req classRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	class, err := h.service.RenameClass(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, "rename class", err)
		return
	}
	httpx.JSON(w, http.StatusOK, class)
}

func (h *Handler) deleteClass(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteClass(r.Context(), id); err != nil {
		h.fail(w, r, "delete class", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Students ---

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	classID, err := httpx.QueryID(r, "class_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := StudentFilter{
		ClassID:     classID,
		Search:      r.URL.Query().Get("q"),
		PageRequest: shared.ParsePageRequest(r.URL.Query()),
	}
	students, page, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list students", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": students, "pagination": page})
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ensureStudentAccess(r, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var in CreateStudentInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.CreateStudent(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create student", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateStudentInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.UpdateStudent(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.fail(w, r, "delete student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type promoteRequest struct {
	ClassID int64 `json:"class_id"`
}

func (h *Handler) promoteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req promoteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.PromoteStudent(r.Context(), id, req.ClassID)
	if err != nil {
		h.fail(w, r, "promote student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

// --- Teachers ---

func (h *Handler) listTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.service.ListTeachers(r.Context())
	if err != nil {
		h.fail(w, r, "list teachers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"teachers": teachers})
}

func (h *Handler) createTeacher(w http.ResponseWriter, r *http.Request) {
	var in CreateTeacherInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	teacher, err := h.service.CreateTeacher(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create teacher", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, teacher)
}

func (h *Handler) updateTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateTeacherInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	teacher, err := h.service.UpdateTeacher(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update teacher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, teacher)
}

func (h *Handler) deleteTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTeacher(r.Context(), id); err != nil {
		h.fail(w, r, "delete teacher", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Courses ---

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		h.fail(w, r, "list courses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get course", err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var in CourseInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	course, err := h.service.CreateCourse(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create course", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CourseInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	course, err := h.service.UpdateCourse(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update course", err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), id); err != nil {
		h.fail(w, r, "delete course", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignTeacherRequest struct {
	TeacherID int64 `json:"teacher_id"`
}

func (h *Handler) assignTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req assignTeacherRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	course, err := h.service.AssignTeacherToCourse(r.Context(), id, req.TeacherID)
	if err != nil {
		h.fail(w, r, "assign teacher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) assignCourseToClass(w http.ResponseWriter, r *http.Request) {
	courseID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	classID, err := httpx.IDParam(r, "classID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	count, err := h.service.AssignCourseToClass(r.Context(), courseID, classID)
	if err != nil {
		h.fail(w, r, "assign course to class", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": count})
}

// --- Enrollments ---

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := enrollmentParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	enrollment, err := h.service.EnrollStudent(r.Context(), studentID, courseID)
	if err != nil {
		h.fail(w, r, "enroll student", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, enrollment)
}

func (h *Handler) unenroll(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := enrollmentParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveStudentFromCourse(r.Context(), studentID, courseID); err != nil {
		h.fail(w, r, "remove student from course", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func enrollmentParams(r *http.Request) (int64, int64, error) {
	studentID, err := httpx.IDParam(r, "id")
	if err != nil {
		return 0, 0, err
	}
	courseID, err := httpx.IDParam(r, "courseID")
	if err != nil {
		return 0, 0, err
	}
	return studentID, courseID, nil
}

func (h *Handler) listEnrollments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ensureStudentAccess(r, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	enrollments, err := h.service.ListEnrollments(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list enrollments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"courses": enrollments})
}

// --- Results ---

func (h *Handler) listResultsForTerm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ensureStudentAccess(r, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sessionID, err := httpx.QueryID(r, "session_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	termID, err := httpx.QueryID(r, "term_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if sessionID == 0 || termID == 0 {
		httpx.RespondError(w, shared.NewValidationError("term_id", "session_id and term_id are required"))
		return
	}
	results, err := h.service.ListResultsForTerm(r.Context(), id, sessionID, termID)
	if err != nil {
		h.fail(w, r, "list results", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) academicHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ensureStudentAccess(r, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	results, err := h.service.AcademicHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, "academic history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) createResult(w http.ResponseWriter, r *http.Request) {
	var in ResultInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreateResult(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create result", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) updateResult(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ResultInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.UpdateResult(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update result", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteResult(r.Context(), id); err != nil {
		h.fail(w, r, "delete result", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
