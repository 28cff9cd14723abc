package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
)

// AccountsHandler exposes account management to administrators.
type AccountsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewAccountsHandler builds AccountsHandler instance.
func NewAccountsHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *AccountsHandler {
	return &AccountsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers account routes. /admins takes ?role=LOWER_ADMIN to
// address lower admins; it defaults to ADMIN.
func (h *AccountsHandler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAll(shared.PermUsersManage))
	r.Get("/admins", h.listStaff)
	r.Post("/admins", h.createStaff)
	r.Get("/admins/{id}", h.getStaff)
	r.Patch("/admins/{id}", h.updateStaff)
	r.Delete("/admins/{id}", h.deleteStaff)
	r.Get("/users", h.listUsers)
	r.Get("/users/{id}", h.getUser)
	r.Patch("/users/{id}", h.updateUser)
	r.Delete("/users/{id}", h.deleteUser)
}

func (h *AccountsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !shared.IsValidation(err) && !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrDuplicate) {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func staffRoleParam(r *http.Request) shared.Role {
	role := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role")))
	if role == "" {
		return shared.RoleAdmin
	}
	return shared.Role(role)
}

func actor(r *http.Request) shared.Principal {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p
}

func (h *AccountsHandler) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.ListStaff(r.Context(), staffRoleParam(r))
	if err != nil {
		h.fail(w, r, "list staff", err)
		return
	}
	if staff == nil {
		staff = []Staff{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": staff})
}

func (h *AccountsHandler) createStaff(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if in.Role == "" {
		in.Role = staffRoleParam(r)
	}
	st, err := h.service.CreateStaff(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create staff", err)
		return
	}
	h.logger.Info("staff account created", slog.Int64("user_id", st.UserID), slog.String("role", string(st.Role)), slog.Int64("by", actor(r).UserID))
	httpx.JSON(w, http.StatusCreated, st)
}

func (h *AccountsHandler) getStaff(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.GetStaff(r.Context(), staffRoleParam(r), id)
	if err != nil {
		h.fail(w, r, "get staff", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *AccountsHandler) updateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateUserInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.UpdateStaff(r.Context(), actor(r), staffRoleParam(r), id, in)
	if err != nil {
		h.fail(w, r, "update staff", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *AccountsHandler) deleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteStaff(r.Context(), actor(r), staffRoleParam(r), id); err != nil {
		h.fail(w, r, "delete staff", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := UserFilter{
		Role:        shared.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role")))),
		PageRequest: shared.ParsePageRequest(r.URL.Query()),
	}
	users, page, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users, "pagination": page})
}

func (h *AccountsHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AccountsHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateUserInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateUser(r.Context(), actor(r), id, in)
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AccountsHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id), slog.Int64("by", actor(r).UserID))
	w.WriteHeader(http.StatusNoContent)
}
