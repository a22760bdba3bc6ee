package supervisor

import (
	"context"
	"math"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
)

type ServiceAPI interface {
	Start(ctx context.Context, actor *operator.Operator) error
	Stop(ctx context.Context, actor *operator.Operator) error
	Restart(ctx context.Context, actor *operator.Operator) error
	Logs(kind string, lines int) (*LogTail, error)
}

type ReporterAPI interface {
	Report(ctx context.Context) (*Report, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Reporter ReporterAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, reporter ReporterAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Reporter:    reporter,
	}
}

// Status handles GET /server/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reporter.Report(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

// Start handles POST /server/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.Start, "Server starting")
}

// Stop handles POST /server/stop
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.Stop, "Server stopping")
}

// Restart handles POST /server/restart
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.Restart, "Server restarted")
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, fn func(context.Context, *operator.Operator) error, message string) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}
	if err := fn(r.Context(), actor); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
}

// Logs handles GET /server/logs?type=game|loader&lines=N
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	lines := transport.QueryInt(r, "lines", DefaultLogLines, 1, math.MaxInt32)
	tail, err := h.Service.Logs(r.URL.Query().Get("type"), lines)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tail)
}
