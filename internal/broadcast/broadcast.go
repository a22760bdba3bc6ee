package broadcast

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/auth"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	DefaultInterval = 5 * time.Second
	writeTimeout    = 10 * time.Second
)

type Source interface {
	Report(ctx context.Context) (*supervisor.Report, error)
}

type TicketVerifier interface {
	Verify(ticket string) (*auth.TicketClaims, error)
}

// Broadcaster pushes a status snapshot to every connected observer on its own
// fixed interval. A slow observer only ever sees the latest snapshot.
type Broadcaster struct {
	*transport.BaseHandler
	source      Source
	tickets     TicketVerifier
	interval    time.Duration
	upgrader    websocket.Upgrader
	subscribers atomic.Int64
}

func New(baseHandler *transport.BaseHandler, source Source, tickets TicketVerifier, interval time.Duration, allowedOrigins []string) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	b := &Broadcaster{
		BaseHandler: baseHandler,
		source:      source,
		tickets:     tickets,
		interval:    interval,
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return b
}

func (b *Broadcaster) Subscribers() int64 {
	return b.subscribers.Load()
}

// ServeHTTP handles GET /stream?ticket=...
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := b.tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		b.HandleServiceError(w, err)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		b.Logger.Warn("status stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	b.subscribers.Add(1)
	defer b.subscribers.Add(-1)
	b.Logger.Info("status observer connected", "operator_id", claims.OperatorID)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// the read side only exists to notice the observer going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	box := newMailbox()
	go b.produce(ctx, box)

	for {
		select {
		case <-ctx.Done():
			b.Logger.Info("status observer disconnected", "operator_id", claims.OperatorID)
			return
		case report := <-box.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(report); err != nil {
				b.Logger.Debug("status push failed", "error", err)
				return
			}
		}
	}
}

// produce takes a snapshot right away and then once per interval until ctx
// ends.
func (b *Broadcaster) produce(ctx context.Context, box *mailbox) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		report, err := b.source.Report(ctx)
		if err != nil {
			b.Logger.Warn("status snapshot failed", "error", err)
		} else {
			box.offer(report)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// mailbox holds at most one unread snapshot; a newer one replaces it.
type mailbox struct {
	ch chan *supervisor.Report
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan *supervisor.Report, 1)}
}

// offer must only be called from a single goroutine.
func (m *mailbox) offer(report *supervisor.Report) {
	select {
	case m.ch <- report:
		return
	default:
	}
	select {
	case <-m.ch:
	default:
	}
	m.ch <- report
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host)
	}
}
