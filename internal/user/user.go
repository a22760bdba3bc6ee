package user

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	inviteDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/invite"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
)

// Repository level failures translated by the service.
var (
	ErrDuplicate         = errors.New("duplicate key")
	ErrInviteUnavailable = errors.New("invite unavailable")
)

const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	inviteCodeLength   = 8
	defaultInviteUses  = 1
)

// Account is an operator as listed by the management API.
type Account struct {
	operator.Summary
	CreatedByUsername string `json:"created_by_username,omitempty"`
}

type Invite struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	Role              string     `json:"role"`
	CreatedBy         *int64     `json:"created_by,omitempty"`
	CreatedByUsername string     `json:"created_by_username,omitempty"`
	UsedBy            *int64     `json:"used_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	MaxUses           int        `json:"max_uses"`
	Uses              int        `json:"uses"`
}

// OperatorRecord is an operator row joined with its creator's username.
type OperatorRecord struct {
	operatorDatamodel.Operator `gorm:"embedded"`
	CreatedByUsername          *string `gorm:"column:created_by_username"`
}

// InviteRecord is an invite row joined with its creator's username.
type InviteRecord struct {
	inviteDatamodel.Invite `gorm:"embedded"`
	CreatedByUsername      *string `gorm:"column:created_by_username"`
}

type Repository interface {
	List(ctx context.Context) ([]OperatorRecord, error)
	GetByID(ctx context.Context, id int64) (*operatorDatamodel.Operator, error)
	GetByExternalID(ctx context.Context, externalID string) (*operatorDatamodel.Operator, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, row *operatorDatamodel.Operator) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	CreateInvite(ctx context.Context, row *inviteDatamodel.Invite) error
	ListInvites(ctx context.Context) ([]InviteRecord, error)
	DeleteInvite(ctx context.Context, id int64) (bool, error)
	// RedeemInvite consumes one use of code and creates the operator built
	// from the invite in a single transaction.
	RedeemInvite(ctx context.Context, code string, now time.Time, build func(*inviteDatamodel.Invite) *operatorDatamodel.Operator) (*operatorDatamodel.Operator, error)
}

// SessionRevoker drops every session of an operator.
type SessionRevoker interface {
	RevokeOperator(ctx context.Context, operatorID int64) error
}

// IdentityResolver looks up the display name of an external chat identity.
type IdentityResolver interface {
	DisplayName(ctx context.Context, externalID string) (string, error)
}

// GenerateInviteCode draws an unambiguous code from crypto/rand.
func GenerateInviteCode() (string, error) {
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	code := make([]byte, inviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func FromRecord(rec *OperatorRecord) Account {
	acc := Account{Summary: fromRow(&rec.Operator).ToSummary()}
	if rec.CreatedByUsername != nil {
		acc.CreatedByUsername = *rec.CreatedByUsername
	}
	return acc
}

func FromInviteRecord(rec *InviteRecord) Invite {
	inv := FromInviteRow(&rec.Invite)
	if rec.CreatedByUsername != nil {
		inv.CreatedByUsername = *rec.CreatedByUsername
	}
	return inv
}

func FromInviteRow(row *inviteDatamodel.Invite) Invite {
	return Invite{
		ID:        row.ID,
		Code:      row.Code,
		Role:      row.Role,
		CreatedBy: row.CreatedBy,
		UsedBy:    row.UsedBy,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		MaxUses:   row.MaxUses,
		Uses:      row.Uses,
	}
}

func fromRow(row *operatorDatamodel.Operator) *operator.Operator {
	op := &operator.Operator{
		ID:        row.ID,
		Username:  row.Username,
		Role:      row.Role,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		CreatedBy: row.CreatedBy,
		LastLogin: row.LastLogin,
	}
	if row.Email != nil {
		op.Email = *row.Email
	}
	if row.ExternalID != nil {
		op.ExternalID = *row.ExternalID
	}
	if row.ExternalUsername != nil {
		op.ExternalUsername = *row.ExternalUsername
	}
	return op
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
