package backup

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
	List(ctx context.Context) ([]*Backup, error)
	Create(ctx context.Context, actor *operator.Operator, dto CreateBackupDTO) (*Backup, error)
	Restore(ctx context.Context, actor *operator.Operator, id int64) error
	Delete(ctx context.Context, actor *operator.Operator, id int64) error
	Saves(ctx context.Context) []SaveFile
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

// ListBackups handles GET /backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

// CreateBackup handles POST /backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return
	}

	var dto CreateBackupDTO
	if r.ContentLength != 0 {
		if !h.DecodeJSON(w, r, &dto) {
			return
		}
	}

	backup, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"filename": backup.Filename,
		"backup":   backup,
	})
}

// RestoreBackup handles POST /backups/{id}/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Restore(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteBackup handles DELETE /backups/{id}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListSaves handles GET /saves
func (h *Handler) ListSaves(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"saves": h.Service.Saves(r.Context())})
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (*operator.Operator, int64, bool) {
	actor, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return nil, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid backup id")
		return nil, 0, false
	}
	return actor, id, true
}
