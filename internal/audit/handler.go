package audit

import (
	"context"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, limit, offset int) (*Page, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// List handles GET /audit?limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := transport.QueryInt(r, "limit", DefaultPageSize, 1, MaxPageSize)
	offset := transport.QueryInt(r, "offset", 0, 0, int(^uint32(0)>>1))

	page, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}
