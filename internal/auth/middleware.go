package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/shared"
)

// PrincipalMiddleware resolves the session's user into a Principal on every
// request. Sessions pointing at missing or inactive users are signed out.
func PrincipalMiddleware(logger *slog.Logger, service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := strconv.ParseInt(sess.User(), 10, 64)
			if err != nil {
				logger.Error("parse session user", slog.String("value", sess.User()))
				sess.SetUser("")
				next.ServeHTTP(w, r)
				return
			}
			p, err := service.LoadPrincipal(r.Context(), userID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
			case errors.Is(err, shared.ErrUnauthorized):
				sess.SetUser("")
				next.ServeHTTP(w, r)
			default:
				logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
				httpx.RespondError(w, err)
			}
		})
	}
}
