package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/shared"
)

// PermissionsHandler reports what the current principal may do.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

type permissionsResponse struct {
	Role        shared.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	perms := append([]string{}, h.rbac.Granted(r)...)
	sort.Strings(perms)
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: p.Role, Permissions: perms})
}
