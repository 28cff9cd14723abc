package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/shared"
)

// PermissionsFunc resolves the permissions granted to a role.
type PermissionsFunc func(role shared.Role) []string

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Permissions PermissionsFunc
	Logger      *slog.Logger
}

// NewMiddleware builds a Middleware backed by the portal role table.
func NewMiddleware(logger *slog.Logger) Middleware {
	return Middleware{Permissions: shared.RolePermissions, Logger: logger}
}

// RequireAny ensures the current principal has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require any", normalizePermissions(perms), hasAnyPermission)
}

// RequireAll ensures the current principal has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require all", normalizePermissions(perms), hasAllPermissions)
}

// Granted lists the permissions of the principal in r's context.
func (m Middleware) Granted(r *http.Request) []string {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return m.permissions(p.Role)
}

func (m Middleware) require(op string, required []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if check(m.permissions(p.Role), required) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug(op, slog.Int64("user_id", p.UserID), slog.String("role", string(p.Role)), slog.Any("required", required))
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func (m Middleware) permissions(role shared.Role) []string {
	if m.Permissions == nil {
		return shared.RolePermissions(role)
	}
	return m.Permissions(role)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
