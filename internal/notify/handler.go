package notify

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*Webhook, error)
	Create(ctx context.Context, actor *operator.Operator, dto CreateWebhookDTO) (*Webhook, error)
	Update(ctx context.Context, actor *operator.Operator, id int64, dto UpdateWebhookDTO) (*Webhook, error)
	Delete(ctx context.Context, actor *operator.Operator, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// ListWebhooks handles GET /webhooks
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"webhooks": hooks})
}

// CreateWebhook handles POST /webhooks
func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}

	var dto CreateWebhookDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	hook, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, hook)
}

// UpdateWebhook handles PATCH /webhooks/{id}
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	var dto UpdateWebhookDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	hook, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, hook)
}

// DeleteWebhook handles DELETE /webhooks/{id}
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
