package notify

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/common/validation"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
)

type CreateWebhookDTO struct {
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (d *CreateWebhookDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.URL = strings.TrimSpace(d.URL)
	d.Events = normalizeEvents(d.Events)
}

func (d CreateWebhookDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("url", d.URL).Required().HTTPURL()
	v.Field("events", d.Events).Required().Custom(validEvents)
	return v.Validate()
}

// UpdateWebhookDTO is a partial update; absent fields are left alone.
type UpdateWebhookDTO struct {
	Name    *string  `json:"name,omitempty"`
	URL     *string  `json:"url,omitempty"`
	Events  []string `json:"events,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

func (d *UpdateWebhookDTO) Normalize() {
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		d.Name = &name
	}
	if d.URL != nil {
		url := strings.TrimSpace(*d.URL)
		d.URL = &url
	}
	if d.Events != nil {
		d.Events = normalizeEvents(d.Events)
	}
}

func (d UpdateWebhookDTO) Validate() *internal.AppError {
	if d.Name == nil && d.URL == nil && d.Events == nil && d.Enabled == nil {
		return internal.NewValidationError("No updates provided", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(100)
	}
	if d.URL != nil {
		v.Field("url", *d.URL).Required().HTTPURL()
	}
	if d.Events != nil {
		v.Field("events", d.Events).Required().Custom(validEvents)
	}
	return v.Validate()
}

func normalizeEvents(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func validEvents(value interface{}) *internal.AppError {
	list, _ := value.([]string)
	for _, e := range list {
		if e != events.WildcardAll && !events.IsKnownEvent(e) {
			return internal.NewValidationFieldError("events", fmt.Sprintf("unknown event %q", e), internal.ErrCodeUnknownEvent)
		}
	}
	return nil
}
