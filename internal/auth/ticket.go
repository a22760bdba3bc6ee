package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTicketTTL = time.Minute

// TicketIssuer signs short lived tickets that let a browser open the status
// websocket, which can not carry an Authorization header.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration

	mu   sync.Mutex
	used map[string]time.Time // ticket id -> expiry
}

// NewTicketIssuer uses secret when set, otherwise a random per-process key.
func NewTicketIssuer(secret string, ttl time.Duration) (*TicketIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate ticket key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketIssuer{secret: key, ttl: ttl, used: make(map[string]time.Time)}, nil
}

func (t *TicketIssuer) Issue(op *operator.Operator) (*StreamTicket, error) {
	now := time.Now()
	expiresAt := now.Add(t.ttl)

	claims := &TicketClaims{
		OperatorID: op.ID,
		Role:       op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(op.ID, 10),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign stream ticket", err)
	}

	return &StreamTicket{Ticket: signed, ExpiresAt: expiresAt}, nil
}

func (t *TicketIssuer) Verify(ticket string) (*TicketClaims, error) {
	token, err := jwt.ParseWithClaims(ticket, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrInvalidTicket.WithMessage("Stream ticket has expired")
		}
		return nil, internal.ErrInvalidTicket
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, internal.ErrInvalidTicket
	}
	if !t.redeem(claims.ID, claims.ExpiresAt.Time) {
		return nil, internal.ErrInvalidTicket.WithMessage("Stream ticket has already been used")
	}
	return claims, nil
}

// redeem marks a ticket id as spent. Ids are forgotten once the ticket
// would have expired anyway.
func (t *TicketIssuer) redeem(id string, expiresAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, exp := range t.used {
		if now.After(exp) {
			delete(t.used, k)
		}
	}
	if _, seen := t.used[id]; seen {
		return false
	}
	t.used[id] = expiresAt
	return true
}
