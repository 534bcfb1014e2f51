package services

import (
	"strings"

	"membercrm/models"
)

type Action string

const (
	ActionSendEmail     Action = "send_email"
	ActionManageMembers Action = "manage_members"
	ActionReadMembers   Action = "read_members"
	ActionViewLogs      Action = "view_logs"
	ActionManageUsers   Action = "manage_users"
)

var rolePermissions = map[string]map[Action]bool{
	models.RoleAdmin: {
		ActionSendEmail:     true,
		ActionManageMembers: true,
		ActionReadMembers:   true,
		ActionViewLogs:      true,
		ActionManageUsers:   true,
	},
	models.RoleEditor: {
		ActionSendEmail:     true,
		ActionManageMembers: true,
		ActionReadMembers:   true,
	},
	models.RoleViewer: {
		ActionReadMembers: true,
	},
}

// NormalizeRole upper-cases a role; an empty role is treated as VIEWER.
func NormalizeRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	if r == "" {
		return models.RoleViewer
	}
	return r
}

func IsValidRole(role string) bool {
	_, ok := rolePermissions[strings.ToUpper(strings.TrimSpace(role))]
	return ok
}

// Can reports whether role may perform action. Unknown roles get nothing.
func Can(role string, action Action) bool {
	return rolePermissions[NormalizeRole(role)][action]
}
