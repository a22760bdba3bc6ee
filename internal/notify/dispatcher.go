package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/core/events"
)

// Enqueuer accepts rendered deliveries. *Pool implements it.
type Enqueuer interface {
	Enqueue(job DeliveryJob) bool
}

// Dispatcher fans published events out to subscribed webhooks.
type Dispatcher struct {
	repo       Repository
	identities IdentityLookup
	queue      Enqueuer
	style      Style
	logger     *slog.Logger
	now        func() time.Time
}

func NewDispatcher(repo Repository, identities IdentityLookup, queue Enqueuer, style Style, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		identities: identities,
		queue:      queue,
		style:      style,
		logger:     logger,
		now:        time.Now,
	}
}

// Register subscribes the dispatcher to every event on bus.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.AllEvents, d.Handle)
}

func (d *Dispatcher) Handle(ctx context.Context, event events.Event) error {
	_, err := d.Publish(ctx, event.EventType(), event.Payload())
	return err
}

// Publish enqueues one delivery per enabled webhook subscribed to eventName
// and returns how many were queued.
func (d *Dispatcher) Publish(ctx context.Context, eventName string, data map[string]interface{}) (int, error) {
	rows, err := d.repo.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enabled webhooks: %w", err)
	}

	var targets []*Webhook
	for i := range rows {
		hook, err := FromDataModel(&rows[i])
		if err != nil {
			d.logger.Warn("skipping webhook with unreadable events", "webhook_id", rows[i].ID, "error", err)
			continue
		}
		if hook.Subscribed(eventName) {
			targets = append(targets, hook)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	body, err := encodeMessage(BuildMessage(eventName, data, d.mention(ctx, data), d.style, d.now()))
	if err != nil {
		return 0, fmt.Errorf("encode webhook message: %w", err)
	}

	queued := 0
	for _, hook := range targets {
		if d.queue.Enqueue(DeliveryJob{
			WebhookID:   hook.ID,
			WebhookName: hook.Name,
			URL:         hook.URL,
			Event:       eventName,
			Body:        body,
		}) {
			queued++
		}
	}

	d.logger.Info("event dispatched to webhooks", "event", eventName, "webhooks", len(targets), "queued", queued)
	return queued, nil
}

func (d *Dispatcher) mention(ctx context.Context, data map[string]interface{}) string {
	user, ok := stringValue(data, "user")
	if !ok || d.identities == nil {
		return ""
	}
	id, err := d.identities.LinkedIdentity(ctx, user)
	if err != nil {
		d.logger.Warn("failed to look up linked identity", "username", user, "error", err)
		return ""
	}
	return id
}

// encodeMessage keeps mentions like <@id> literal on the wire.
func encodeMessage(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
