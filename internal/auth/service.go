package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	sessionDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/session"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps login timing similar whether or not the username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

// Service is the session manager.
type Service struct {
	operators  OperatorRepository
	sessions   SessionRepository
	audit      audit.Recorder
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(operators OperatorRepository, sessions SessionRepository, recorder audit.Recorder, sessionTTL time.Duration, logger *slog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{
		operators:  operators,
		sessions:   sessions,
		audit:      recorder,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Login verifies credentials and issues a new session.
func (s *Service) Login(ctx context.Context, dto LoginDTO, meta ClientMeta) (*LoginResult, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.operators.GetByUsername(ctx, dto.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to load operator", err)
	}

	hash := dummyHash
	if row != nil {
		hash = []byte(row.PasswordHash)
	}
	passwordErr := bcrypt.CompareHashAndPassword(hash, []byte(dto.Password))

	if row == nil || !row.IsActive || passwordErr != nil {
		s.audit.Record(ctx, nil, audit.ActionLoginFailed, fmt.Sprintf("Failed login attempt for: %s", dto.Username))
		s.logger.Info("login rejected", "username", dto.Username)
		return nil, internal.ErrInvalidCredentials
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate session token", err)
	}

	now := s.now().UTC()
	session := &sessionDatamodel.Session{
		OperatorID: row.ID,
		Token:      token,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internal.NewInternalError("failed to create session", err)
	}

	if err := s.operators.TouchLastLogin(ctx, row.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "operator_id", row.ID, "error", err)
	}
	row.LastLogin = &now

	s.audit.Record(ctx, &row.ID, audit.ActionLogin, "User logged in")
	s.logger.Info("operator logged in", "operator_id", row.ID, "username", row.Username)

	return &LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Operator:  ToOperator(row).ToSummary(),
	}, nil
}

// Validate resolves a token to its operator. Any failure destroys the
// session so a stale token can not be retried.
func (s *Service) Validate(ctx context.Context, token string) (*operator.Operator, error) {
	if token == "" {
		return nil, internal.ErrUnauthenticated
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	if session == nil {
		return nil, internal.ErrUnauthenticated
	}

	if !s.now().Before(session.ExpiresAt) {
		s.destroy(ctx, token)
		return nil, internal.ErrUnauthenticated
	}

	row, err := s.operators.GetByID(ctx, session.OperatorID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load operator", err)
	}
	if row == nil || !row.IsActive {
		s.destroy(ctx, token)
		return nil, internal.ErrUnauthenticated
	}

	return ToOperator(row), nil
}

// Logout deletes the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return internal.NewInternalError("failed to delete session", err)
	}
	if op, ok := internal.OperatorFromContext(ctx); ok {
		s.audit.Record(ctx, &op.ID, audit.ActionLogout, "User logged out")
	}
	return nil
}

// RevokeOperator drops every session owned by operatorID.
func (s *Service) RevokeOperator(ctx context.Context, operatorID int64) error {
	if err := s.sessions.DeleteByOperator(ctx, operatorID); err != nil {
		return internal.NewInternalError("failed to revoke sessions", err)
	}
	return nil
}

// PurgeExpired removes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// Profile describes the operator in ctx.
func (s *Service) Profile(op *operator.Operator) Profile {
	info, _ := RoleInfoFor(op.Role)
	perms := PermissionsFor(op.Role)
	if perms == nil {
		perms = []string{}
	}
	return Profile{
		Operator:    op.ToSummary(),
		RoleInfo:    info,
		Permissions: perms,
	}
}

func (s *Service) destroy(ctx context.Context, token string) {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		s.logger.Warn("failed to destroy invalid session", "error", err)
	}
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
