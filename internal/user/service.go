package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	"github.com/frahmantamala/gameserver-admin/internal/core/common/validation"
	inviteDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/invite"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
)

const inviteCodeAttempts = 3

// Service is the credential store: operator accounts, invites and
// first-run bootstrap.
type Service struct {
	repo       Repository
	sessions   SessionRevoker
	identity   IdentityResolver
	audit      audit.Recorder
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, sessions SessionRevoker, identity IdentityResolver, recorder audit.Recorder, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		sessions:   sessions,
		identity:   identity,
		audit:      recorder,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// BootstrapResult reports what Bootstrap did. GeneratedPassword is only set
// when a password had to be invented.
type BootstrapResult struct {
	Created           bool
	Username          string
	GeneratedPassword string
}

// Bootstrap creates the initial owner when the store holds no operators.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (*BootstrapResult, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to count operators", err)
	}
	if count > 0 {
		return &BootstrapResult{}, nil
	}

	if username == "" {
		username = "admin"
	}
	result := &BootstrapResult{Created: true, Username: username}
	if password == "" {
		token, err := auth.GenerateRandomToken()
		if err != nil {
			return nil, internal.NewInternalError("failed to generate password", err)
		}
		password = token[:16]
		result.GeneratedPassword = password
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row := &operatorDatamodel.Operator{
		Username:     username,
		PasswordHash: hash,
		Role:         auth.HighestRole(),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create initial owner", err)
	}

	s.audit.Record(ctx, nil, audit.ActionSystem, fmt.Sprintf("Default owner account created: %s", username))
	s.logger.Warn("created initial owner account", "username", username, "generated_password", result.GeneratedPassword != "")
	return result, nil
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list operators", err)
	}
	accounts := make([]Account, 0, len(records))
	for i := range records {
		accounts = append(accounts, FromRecord(&records[i]))
	}
	return accounts, nil
}

func (s *Service) Create(ctx context.Context, actor *operator.Operator, dto CreateOperatorDTO) (*Account, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.Role == "" {
		dto.Role = string(auth.RoleViewer)
	}
	if !auth.ValidRole(dto.Role) {
		return nil, internal.ErrUnknownRole
	}
	if !auth.CanManage(actor.Role, dto.Role) {
		return nil, internal.ErrRoleEscalation
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row := &operatorDatamodel.Operator{
		Username:     dto.Username,
		PasswordHash: hash,
		Email:        optionalString(dto.Email),
		Role:         dto.Role,
		CreatedBy:    &actor.ID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.ErrUsernameTaken
		}
		return nil, internal.NewInternalError("failed to create operator", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionUserCreate, fmt.Sprintf("Created user: %s with role %s", row.Username, row.Role))
	acc := Account{Summary: fromRow(row).ToSummary(), CreatedByUsername: actor.Username}
	return &acc, nil
}

// Update applies a partial edit. Targets at or above the actor's role are
// off limits, except the actor's own record for non-role fields.
func (s *Service) Update(ctx context.Context, actor *operator.Operator, id int64, dto UpdateOperatorDTO) (*Account, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load operator", err)
	}
	if target == nil {
		return nil, internal.ErrOperatorNotFound
	}

	self := target.ID == actor.ID
	if !self && !auth.CanManage(actor.Role, target.Role) {
		return nil, internal.ErrRoleEscalation
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if dto.Email != nil {
		fields["email"] = optionalString(*dto.Email)
	}
	if dto.Role != nil && *dto.Role != target.Role {
		if self {
			return nil, internal.ErrSelfRoleChange
		}
		if !auth.ValidRole(*dto.Role) {
			return nil, internal.ErrUnknownRole
		}
		if !auth.CanManage(actor.Role, *dto.Role) {
			return nil, internal.ErrRoleEscalation
		}
		fields["role"] = *dto.Role
	}
	deactivating := false
	if dto.IsActive != nil {
		if self && !*dto.IsActive {
			return nil, internal.ErrSelfDeactivate
		}
		fields["is_active"] = *dto.IsActive
		deactivating = target.IsActive && !*dto.IsActive
	}
	if dto.Password != nil {
		hash, err := auth.HashPassword(*dto.Password, s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		return nil, internal.NewValidationError("No updates provided", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, internal.NewInternalError("failed to update operator", err)
	}

	if deactivating {
		if err := s.sessions.RevokeOperator(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated operator", "operator_id", id, "error", err)
		}
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionUserUpdate, fmt.Sprintf("Updated user: %s", target.Username))

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil || updated == nil {
		return nil, internal.NewInternalError("failed to reload operator", err)
	}
	return &Account{Summary: fromRow(updated).ToSummary()}, nil
}

func (s *Service) Delete(ctx context.Context, actor *operator.Operator, id int64) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to load operator", err)
	}
	if target == nil {
		return internal.ErrOperatorNotFound
	}
	if target.ID == actor.ID {
		return internal.ErrSelfDelete
	}
	if !auth.CanManage(actor.Role, target.Role) {
		return internal.ErrRoleEscalation
	}

	if err := s.sessions.RevokeOperator(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete operator", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionUserDelete, fmt.Sprintf("Deleted user: %s", target.Username))
	return nil
}

// Register redeems an invite. The invite use and the new operator are
// committed together or not at all.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*Account, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row, err := s.repo.RedeemInvite(ctx, dto.InviteCode, s.now().UTC(), func(inv *inviteDatamodel.Invite) *operatorDatamodel.Operator {
		return &operatorDatamodel.Operator{
			Username:     dto.Username,
			PasswordHash: hash,
			Email:        optionalString(dto.Email),
			Role:         inv.Role,
			CreatedBy:    inv.CreatedBy,
			IsActive:     true,
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInviteUnavailable):
			return nil, internal.ErrInvalidInvite
		case errors.Is(err, ErrDuplicate):
			return nil, internal.ErrUsernameTaken
		}
		return nil, internal.NewInternalError("failed to register operator", err)
	}

	s.audit.Record(ctx, &row.ID, audit.ActionRegister, fmt.Sprintf("User registered with invite %s", dto.InviteCode))
	s.logger.Info("operator registered", "operator_id", row.ID, "username", row.Username, "role", row.Role)
	return &Account{Summary: fromRow(row).ToSummary()}, nil
}

func (s *Service) ChangePassword(ctx context.Context, actor *operator.Operator, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	row, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return internal.NewInternalError("failed to load operator", err)
	}
	if row == nil {
		return internal.ErrOperatorNotFound
	}
	if !auth.CheckPassword(row.PasswordHash, dto.CurrentPassword) {
		return internal.NewAuthError("Current password is incorrect", internal.ErrCodeInvalidPassword)
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.Update(ctx, actor.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionPasswordChange, "Password changed")
	return nil
}

// LinkIdentity binds the actor to an external chat identity so
// notifications can mention them.
func (s *Service) LinkIdentity(ctx context.Context, actor *operator.Operator, dto LinkIdentityDTO) (*Account, error) {
	dto.Normalize()

	if dto.ExternalID == "" {
		err := s.repo.Update(ctx, actor.ID, map[string]interface{}{"external_id": nil, "external_username": nil})
		if err != nil {
			return nil, internal.NewInternalError("failed to unlink identity", err)
		}
		s.audit.Record(ctx, &actor.ID, audit.ActionIdentityUnlink, "Unlinked external identity")
		return s.reload(ctx, actor.ID)
	}

	if err := validation.ValidateSnowflake(dto.ExternalID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByExternalID(ctx, dto.ExternalID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up identity", err)
	}
	if existing != nil && existing.ID != actor.ID {
		return nil, internal.ErrIdentityTaken
	}

	var displayName *string
	if s.identity != nil {
		name, err := s.identity.DisplayName(ctx, dto.ExternalID)
		if err != nil {
			s.logger.Warn("failed to resolve identity display name", "external_id", dto.ExternalID, "error", err)
		} else {
			displayName = optionalString(name)
		}
	}

	err = s.repo.Update(ctx, actor.ID, map[string]interface{}{"external_id": dto.ExternalID, "external_username": displayName})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.ErrIdentityTaken
		}
		return nil, internal.NewInternalError("failed to link identity", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionIdentityLink, fmt.Sprintf("Linked external identity %s", dto.ExternalID))
	return s.reload(ctx, actor.ID)
}

func (s *Service) CreateInvite(ctx context.Context, actor *operator.Operator, dto CreateInviteDTO) (*Invite, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.Role == "" {
		dto.Role = string(auth.RoleViewer)
	}
	if !auth.ValidRole(dto.Role) {
		return nil, internal.ErrUnknownRole
	}
	if !auth.CanManage(actor.Role, dto.Role) {
		return nil, internal.ErrRoleEscalation
	}

	maxUses := defaultInviteUses
	if dto.MaxUses != nil {
		maxUses = *dto.MaxUses
	}

	row := &inviteDatamodel.Invite{
		Role:      dto.Role,
		CreatedBy: &actor.ID,
		MaxUses:   maxUses,
	}
	if dto.ExpiresInHours > 0 {
		expires := s.now().UTC().Add(time.Duration(dto.ExpiresInHours) * time.Hour)
		row.ExpiresAt = &expires
	}

	for attempt := 1; ; attempt++ {
		code, err := GenerateInviteCode()
		if err != nil {
			return nil, internal.NewInternalError("failed to generate invite code", err)
		}
		row.ID = 0
		row.Code = code
		err = s.repo.CreateInvite(ctx, row)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicate) || attempt == inviteCodeAttempts {
			return nil, internal.NewInternalError("failed to create invite", err)
		}
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionInviteCreate, fmt.Sprintf("Created invite code for role: %s", row.Role))
	inv := FromInviteRow(row)
	inv.CreatedByUsername = actor.Username
	return &inv, nil
}

func (s *Service) ListInvites(ctx context.Context) ([]Invite, error) {
	records, err := s.repo.ListInvites(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list invites", err)
	}
	invites := make([]Invite, 0, len(records))
	for i := range records {
		invites = append(invites, FromInviteRecord(&records[i]))
	}
	return invites, nil
}

func (s *Service) DeleteInvite(ctx context.Context, actor *operator.Operator, id int64) error {
	deleted, err := s.repo.DeleteInvite(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete invite", err)
	}
	if !deleted {
		return internal.ErrInviteNotFound
	}
	s.audit.Record(ctx, &actor.ID, audit.ActionInviteDelete, fmt.Sprintf("Deleted invite %d", id))
	return nil
}

func (s *Service) reload(ctx context.Context, id int64) (*Account, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load operator", err)
	}
	if row == nil {
		return nil, internal.ErrOperatorNotFound
	}
	return &Account{Summary: fromRow(row).ToSummary()}, nil
}
