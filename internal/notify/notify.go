package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	webhookDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/webhook"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
)

type Webhook struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribed reports whether the webhook wants event.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.Events {
		if e == event || e == events.WildcardAll {
			return true
		}
	}
	return false
}

type Repository interface {
	List(ctx context.Context) ([]webhookDatamodel.Webhook, error)
	ListEnabled(ctx context.Context) ([]webhookDatamodel.Webhook, error)
	GetByID(ctx context.Context, id int64) (*webhookDatamodel.Webhook, error)
	Create(ctx context.Context, row *webhookDatamodel.Webhook) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// IdentityLookup returns the external identity linked to an operator
// username, or "" when none is linked.
type IdentityLookup interface {
	LinkedIdentity(ctx context.Context, username string) (string, error)
}

func FromDataModel(row *webhookDatamodel.Webhook) (*Webhook, error) {
	var subscribed []string
	if len(row.Events) > 0 {
		if err := json.Unmarshal(row.Events, &subscribed); err != nil {
			return nil, fmt.Errorf("decode events of webhook %d: %w", row.ID, err)
		}
	}
	return &Webhook{
		ID:        row.ID,
		Name:      row.Name,
		URL:       row.URL,
		Events:    subscribed,
		Enabled:   row.Enabled,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Presentation is how an event renders in the outbound message.
type Presentation struct {
	Title       string
	Description string
	Color       int
}

var presentations = map[string]Presentation{
	events.EventServerStart:   {Title: "Server Started", Description: "The Techtonica dedicated server has been started.", Color: 0x22c55e},
	events.EventServerStop:    {Title: "Server Stopped", Description: "The Techtonica dedicated server has been stopped.", Color: 0xef4444},
	events.EventServerRestart: {Title: "Server Restarted", Description: "The Techtonica dedicated server has been restarted.", Color: 0xf59e0b},
	events.EventBackupCreated: {Title: "Backup Created", Description: "A new server backup has been created.", Color: 0x3b82f6},
	events.EventPlayerJoin:    {Title: "Player Joined", Description: "A player has joined the server.", Color: 0x22c55e},
	events.EventPlayerLeave:   {Title: "Player Left", Description: "A player has left the server.", Color: 0xf59e0b},
}

var defaultPresentation = Presentation{Title: "Server Event", Description: "A server event has occurred.", Color: 0xa78bfa}

func PresentationFor(event string) Presentation {
	if p, ok := presentations[event]; ok {
		return p
	}
	return defaultPresentation
}

// Message is the chat webhook body (embed format).
type Message struct {
	Embeds []Embed `json:"embeds"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Thumbnail   *Image  `json:"thumbnail,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Image struct {
	URL string `json:"url"`
}

type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// Style carries the deployment specific branding of messages.
type Style struct {
	ThumbnailURL string
	FooterText   string
}

var conventionalKeys = map[string]bool{"user": true, "filename": true, "player": true, "reason": true}

// BuildMessage renders event data as an embed. mention, when set, replaces
// the plain username in the "Triggered By" field.
func BuildMessage(event string, data map[string]interface{}, mention string, style Style, at time.Time) Message {
	p := PresentationFor(event)

	fields := make([]Field, 0, len(data))
	if user, ok := stringValue(data, "user"); ok {
		value := user
		if mention != "" {
			value = fmt.Sprintf("<@%s>", mention)
		}
		fields = append(fields, Field{Name: "Triggered By", Value: value, Inline: true})
	}
	if filename, ok := stringValue(data, "filename"); ok {
		fields = append(fields, Field{Name: "File", Value: "`" + filename + "`", Inline: true})
	}
	if player, ok := stringValue(data, "player"); ok {
		fields = append(fields, Field{Name: "Player", Value: player, Inline: true})
	}
	if reason, ok := stringValue(data, "reason"); ok {
		fields = append(fields, Field{Name: "Reason", Value: reason})
	}

	extra := make([]string, 0, len(data))
	for key := range data {
		if !conventionalKeys[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		fields = append(fields, Field{Name: fieldTitle(key), Value: fmt.Sprint(data[key]), Inline: true})
	}

	embed := Embed{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		Fields:      fields,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
	if style.ThumbnailURL != "" {
		embed.Thumbnail = &Image{URL: style.ThumbnailURL}
	}
	if style.FooterText != "" {
		embed.Footer = &Footer{Text: style.FooterText, IconURL: style.ThumbnailURL}
	}
	return Message{Embeds: []Embed{embed}}
}

func stringValue(data map[string]interface{}, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

// fieldTitle turns "player_count" into "Player count".
func fieldTitle(key string) string {
	if key == "" {
		return key
	}
	key = strings.ReplaceAll(key, "_", " ")
	return strings.ToUpper(key[:1]) + key[1:]
}
