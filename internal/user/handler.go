package user

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]Account, error)
	Create(ctx context.Context, actor *operator.Operator, dto CreateOperatorDTO) (*Account, error)
	Update(ctx context.Context, actor *operator.Operator, id int64, dto UpdateOperatorDTO) (*Account, error)
	Delete(ctx context.Context, actor *operator.Operator, id int64) error
	Register(ctx context.Context, dto RegisterDTO) (*Account, error)
	ChangePassword(ctx context.Context, actor *operator.Operator, dto ChangePasswordDTO) error
	LinkIdentity(ctx context.Context, actor *operator.Operator, dto LinkIdentityDTO) (*Account, error)
	CreateInvite(ctx context.Context, actor *operator.Operator, dto CreateInviteDTO) (*Invite, error)
	ListInvites(ctx context.Context) ([]Invite, error)
	DeleteInvite(ctx context.Context, actor *operator.Operator, id int64) error
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

// ListOperators handles GET /users
func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": accounts,
		"roles": auth.Roles(),
	})
}

// CreateOperator handles POST /users
func (h *Handler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateOperatorDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	acc, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("operator created", "operator_id", acc.ID, "role", acc.Role, "actor_id", actor.ID)
	h.WriteJSON(w, http.StatusCreated, acc)
}

// UpdateOperator handles PUT /users/{id}
func (h *Handler) UpdateOperator(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto UpdateOperatorDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	acc, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acc)
}

// DeleteOperator handles DELETE /users/{id}
func (h *Handler) DeleteOperator(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	acc, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, acc)
}

// ChangePassword handles POST /auth/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto ChangePasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ChangePassword(r.Context(), actor, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LinkIdentity handles POST /auth/link-identity
func (h *Handler) LinkIdentity(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto LinkIdentityDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	acc, err := h.Service.LinkIdentity(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acc)
}

// CreateInvite handles POST /invites
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateInviteDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	inv, err := h.Service.CreateInvite(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, inv)
}

// ListInvites handles GET /invites
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.Service.ListInvites(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

// DeleteInvite handles DELETE /invites/{id}
func (h *Handler) DeleteInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteInvite(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*operator.Operator, bool) {
	op, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.Logger.Error("operator not found in context", "path", r.URL.Path)
		h.HandleServiceError(w, internal.ErrUnauthenticated)
		return nil, false
	}
	return op, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
