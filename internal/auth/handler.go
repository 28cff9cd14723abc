package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/shared"
)

// DefaultLoginAttemptsPerMinute bounds login attempts per client IP.
const DefaultLoginAttemptsPerMinute = 10

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	loginLimit     int
}

// NewHandler constructs a Handler instance. loginLimit <= 0 uses the default.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, loginLimit int) *Handler {
	if loginLimit <= 0 {
		loginLimit = DefaultLoginAttemptsPerMinute
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		loginLimit:     loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if !shared.IsValidation(err) && !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.LoadPrincipal(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("load principal after login", slog.Int64("user_id", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.sessionManager.Renew(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Delete(shared.CSRFSessionKey)
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
	}

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))

	httpx.JSON(w, http.StatusOK, newMe(p, token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	token, _ := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	httpx.JSON(w, http.StatusOK, newMe(p, token))
}

func newMe(p shared.Principal, csrfToken string) Me {
	perms := shared.RolePermissions(p.Role)
	if perms == nil {
		perms = []string{}
	}
	return Me{
		UserID:      p.UserID,
		Email:       p.Email,
		Role:        p.Role,
		StudentID:   p.StudentID,
		Permissions: perms,
		CSRFToken:   csrfToken,
	}
}
