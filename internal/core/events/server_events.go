package events

import (
	"time"

	"github.com/google/uuid"
)

// Notification event names. Webhooks subscribe to these or to WildcardAll.
const (
	EventServerStart   = "server_start"
	EventServerStop    = "server_stop"
	EventServerRestart = "server_restart"
	EventBackupCreated = "backup_created"
	EventPlayerJoin    = "player_join"
	EventPlayerLeave   = "player_leave"

	WildcardAll = "all"
)

// KnownEvents lists the event names a webhook may subscribe to.
var KnownEvents = []string{
	EventServerStart,
	EventServerStop,
	EventServerRestart,
	EventBackupCreated,
	EventPlayerJoin,
	EventPlayerLeave,
}

func IsKnownEvent(name string) bool {
	for _, e := range KnownEvents {
		if e == name {
			return true
		}
	}
	return false
}

// NewNotification builds an event whose Data becomes the fields of the
// outbound webhook message. Conventional keys are user, filename, player and
// reason; anything else is rendered as an extra field.
func NewNotification(eventType string, data map[string]interface{}) Notification {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Notification{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
