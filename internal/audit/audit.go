package audit

import (
	"context"
	"time"

	auditDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/audit"
)

// Actions recorded in the audit log.
const (
	ActionSystem         = "system"
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionRegister       = "register"
	ActionPasswordChange = "password_change"
	ActionIdentityLink   = "identity_link"
	ActionIdentityUnlink = "identity_unlink"

	ActionServerStart         = "server_start"
	ActionServerStartFailed   = "server_start_failed"
	ActionServerStop          = "server_stop"
	ActionServerStopFailed    = "server_stop_failed"
	ActionServerRestart       = "server_restart"
	ActionServerRestartFailed = "server_restart_failed"
	ActionConfigUpdate        = "config_update"

	ActionBackupCreate  = "backup_create"
	ActionBackupRestore = "backup_restore"
	ActionBackupDelete  = "backup_delete"

	ActionUserCreate   = "user_create"
	ActionUserUpdate   = "user_update"
	ActionUserDelete   = "user_delete"
	ActionInviteCreate = "invite_create"
	ActionInviteDelete = "invite_delete"

	ActionWebhookCreate = "webhook_create"
	ActionWebhookUpdate = "webhook_update"
	ActionWebhookDelete = "webhook_delete"
)

// Recorder appends audit entries. Implementations never fail the caller.
type Recorder interface {
	Record(ctx context.Context, operatorID *int64, action, details string)
}

type Entry struct {
	ID         int64     `json:"id" db:"id"`
	OperatorID *int64    `json:"operator_id,omitempty" db:"operator_id"`
	Username   *string   `json:"username,omitempty" db:"username"`
	Action     string    `json:"action" db:"action"`
	Details    string    `json:"details" db:"details"`
	IP         string    `json:"ip,omitempty" db:"ip"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Page struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

func NewEntry(operatorID *int64, action, details, ip string) *auditDatamodel.Entry {
	return &auditDatamodel.Entry{
		OperatorID: operatorID,
		Action:     action,
		Details:    details,
		IP:         ip,
		CreatedAt:  time.Now().UTC(),
	}
}
