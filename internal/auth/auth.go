package auth

import (
	"context"
	"time"

	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	sessionDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/session"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a login session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// OperatorRepository is the slice of the credential store the session
// manager needs. Lookups return nil, nil when no row matches.
type OperatorRepository interface {
	GetByUsername(ctx context.Context, username string) (*operatorDatamodel.Operator, error)
	GetByID(ctx context.Context, id int64) (*operatorDatamodel.Operator, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *sessionDatamodel.Session) error
	GetByToken(ctx context.Context, token string) (*sessionDatamodel.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByOperator(ctx context.Context, operatorID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  operator.Summary `json:"operator"`
}

// Profile is the current operator together with what their role allows.
type Profile struct {
	Operator    operator.Summary `json:"operator"`
	RoleInfo    RoleInfo         `json:"role_info"`
	Permissions []string         `json:"permissions"`
}

// StreamTicket authorizes a single status stream handshake. Verify accepts
// each ticket once.
type StreamTicket struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TicketClaims are carried by stream tickets.
type TicketClaims struct {
	OperatorID int64  `json:"operator_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// ToOperator converts a stored row into the context principal.
func ToOperator(row *operatorDatamodel.Operator) *operator.Operator {
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
