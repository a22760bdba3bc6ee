package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/frahmantamala/gameserver-admin/pkg/logger"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO, meta ClientMeta) (*LoginResult, error)
	Validate(ctx context.Context, token string) (*operator.Operator, error)
	Logout(ctx context.Context, token string) error
	Profile(op *operator.Operator) Profile
}

type TicketAPI interface {
	Issue(op *operator.Operator) (*StreamTicket, error)
}

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	Tickets      TicketAPI
	CookieSecure bool
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, tickets TicketAPI, cookieSecure bool) *Handler {
	return &Handler{
		BaseHandler:  baseHandler,
		Service:      svc,
		Tickets:      tickets,
		CookieSecure: cookieSecure,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.Login(r.Context(), dto, ClientMeta{
		IP:        internal.ClientIPFromContext(r.Context()),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     transport.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := h.ExtractSessionToken(r)

	// Logout is idempotent, but attribute it when the token is still valid.
	if op, err := h.Service.Validate(ctx, token); err == nil {
		ctx = internal.ContextWithOperator(ctx, op)
	}

	if err := h.Service.Logout(ctx, token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     transport.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
	})

	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	op, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.Service.Profile(op))
}

// StreamTicket handles GET /stream/ticket
func (h *Handler) StreamTicket(w http.ResponseWriter, r *http.Request) {
	op, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}

	ticket, err := h.Tickets.Issue(op)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

// AuthMiddleware resolves the session token into the operator principal.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractSessionToken(r)
		if token == "" {
			h.HandleServiceError(w, internal.ErrUnauthenticated)
			return
		}

		op, err := h.Service.Validate(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithOperator(r.Context(), op)
		ctx = logger.With(ctx, "operator_id", op.ID, "role", op.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
