package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
)

// RBACAuthorization guards routes with the static permission table.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, ok := internal.OperatorFromContext(r.Context())
		if !ok {
			ra.logger.Warn("authorization check failed: operator not found in context")
			ra.HandleServiceError(w, internal.ErrUnauthenticated)
			return
		}

		if !Authorize(op.Role, action) {
			ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"operator_id", op.ID,
				"role", op.Role,
				"required_permission", action)
			ra.HandleServiceError(w, internal.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require returns middleware allowing only roles permitted to perform action.
func (ra *RBACAuthorization) Require(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, action)
	}
}
