package auth

import "sort"

type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// RoleInfo is the presentation entry of a role.
type RoleInfo struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var roles = map[Role]RoleInfo{
	RoleOwner:     {Name: "Owner", Level: 100, Color: "#fbbf24", Icon: "fa-crown"},
	RoleAdmin:     {Name: "Admin", Level: 80, Color: "#a78bfa", Icon: "fa-user-shield"},
	RoleModerator: {Name: "Moderator", Level: 50, Color: "#60a5fa", Icon: "fa-user-check"},
	RoleViewer:    {Name: "Viewer", Level: 10, Color: "#9ca3af", Icon: "fa-eye"},
}

// Actions guarded by the permission table.
const (
	ActionServerStart    = "server.start"
	ActionServerStop     = "server.stop"
	ActionServerRestart  = "server.restart"
	ActionServerConsole  = "server.console"
	ActionServerConfig   = "server.config"
	ActionPlayersView    = "players.view"
	ActionPlayersKick    = "players.kick"
	ActionPlayersBan     = "players.ban"
	ActionBackupsView    = "backups.view"
	ActionBackupsCreate  = "backups.create"
	ActionBackupsRestore = "backups.restore"
	ActionBackupsDelete  = "backups.delete"
	ActionUsersView      = "users.view"
	ActionUsersCreate    = "users.create"
	ActionUsersEdit      = "users.edit"
	ActionUsersDelete    = "users.delete"
	ActionWebhooksManage = "webhooks.manage"
	ActionAuditView      = "audit.view"
	ActionSettingsView   = "settings.view"
	ActionSettingsEdit   = "settings.edit"
)

var permissions = map[string][]Role{
	ActionServerStart:    {RoleOwner, RoleAdmin},
	ActionServerStop:     {RoleOwner, RoleAdmin},
	ActionServerRestart:  {RoleOwner, RoleAdmin},
	ActionServerConsole:  {RoleOwner, RoleAdmin, RoleModerator},
	ActionServerConfig:   {RoleOwner, RoleAdmin},
	ActionPlayersView:    {RoleOwner, RoleAdmin, RoleModerator, RoleViewer},
	ActionPlayersKick:    {RoleOwner, RoleAdmin, RoleModerator},
	ActionPlayersBan:     {RoleOwner, RoleAdmin},
	ActionBackupsView:    {RoleOwner, RoleAdmin, RoleModerator},
	ActionBackupsCreate:  {RoleOwner, RoleAdmin},
	ActionBackupsRestore: {RoleOwner, RoleAdmin},
	ActionBackupsDelete:  {RoleOwner},
	ActionUsersView:      {RoleOwner, RoleAdmin},
	ActionUsersCreate:    {RoleOwner, RoleAdmin},
	ActionUsersEdit:      {RoleOwner, RoleAdmin},
	ActionUsersDelete:    {RoleOwner},
	ActionWebhooksManage: {RoleOwner, RoleAdmin},
	ActionAuditView:      {RoleOwner, RoleAdmin},
	ActionSettingsView:   {RoleOwner, RoleAdmin, RoleModerator, RoleViewer},
	ActionSettingsEdit:   {RoleOwner},
}

// Ordering is the result of CompareRole.
type Ordering int

const (
	Lower Ordering = iota - 1
	Equal
	Higher
)

// Authorize reports whether role may perform action. Unknown actions and
// unknown roles are denied.
func Authorize(role string, action string) bool {
	for _, allowed := range permissions[action] {
		if string(allowed) == role {
			return true
		}
	}
	return false
}

// CompareRole orders a against b by level. Unknown roles rank below every
// known role.
func CompareRole(a, b string) Ordering {
	la, lb := Level(a), Level(b)
	switch {
	case la < lb:
		return Lower
	case la > lb:
		return Higher
	default:
		return Equal
	}
}

// CanManage reports whether an actor holding actorRole may grant or act on
// targetRole. Only strictly lower roles qualify.
func CanManage(actorRole, targetRole string) bool {
	return CompareRole(targetRole, actorRole) == Lower
}

func Level(role string) int {
	return roles[Role(role)].Level
}

func ValidRole(role string) bool {
	_, ok := roles[Role(role)]
	return ok
}

// HighestRole is the role assigned on first-run bootstrap.
func HighestRole() string {
	highest := ""
	for r, info := range roles {
		if info.Level > Level(highest) {
			highest = string(r)
		}
	}
	return highest
}

func RoleInfoFor(role string) (RoleInfo, bool) {
	info, ok := roles[Role(role)]
	return info, ok
}

// Roles returns the role catalogue keyed by role name.
func Roles() map[string]RoleInfo {
	out := make(map[string]RoleInfo, len(roles))
	for r, info := range roles {
		out[string(r)] = info
	}
	return out
}

// PermissionsFor lists the actions role may perform, sorted.
func PermissionsFor(role string) []string {
	var out []string
	for action := range permissions {
		if Authorize(role, action) {
			out = append(out, action)
		}
	}
	sort.Strings(out)
	return out
}
