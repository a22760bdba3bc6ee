package gameconfig

import (
	"context"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context) (*View, error)
	Save(ctx context.Context, actor *operator.Operator, dto SaveConfigDTO) error
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

// GetConfig handles GET /server/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Get(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

// SaveConfig handles PUT /server/config
func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}

	var dto SaveConfigDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.Save(r.Context(), actor, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Config saved"})
}
