package permission

import "github.com/dangerclosesec/campusops/internal/model"

// Permission keys checked by the API.
const (
	BuildingsRead   = "buildings:read"
	BuildingsManage = "buildings:manage"
	RoomsRead       = "rooms:read"
	RoomsManage     = "rooms:manage"
	TicketsRead     = "tickets:read"
	TicketsSubmit   = "tickets:submit"
	TicketsManage   = "tickets:manage"
	EventsRead      = "events:read"
	EventsManage    = "events:manage"
	SchedulesRead   = "schedules:read"
	SchedulesManage = "schedules:manage"
	UsersRead       = "users:read"
	UsersManage     = "users:manage"
	RolesManage     = "roles:manage"
	SettingsManage  = "settings:manage"
	AuditRead       = "audit:read"
)

// Catalog lists every known permission key.
var Catalog = []string{
	BuildingsRead, BuildingsManage,
	RoomsRead, RoomsManage,
	TicketsRead, TicketsSubmit, TicketsManage,
	EventsRead, EventsManage,
	SchedulesRead, SchedulesManage,
	UsersRead, UsersManage,
	RolesManage, SettingsManage,
	AuditRead,
}

// Known reports whether key is in the catalog.
func Known(key string) bool {
	for _, k := range Catalog {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultRoles are the roles seeded into a new organization.
func DefaultRoles() []model.Role {
	all := func(keys ...string) []model.PermissionGrant {
		grants := make([]model.PermissionGrant, 0, len(keys))
		for _, k := range keys {
			key := MustParseKey(k)
			grants = append(grants, model.PermissionGrant{Resource: key.Resource, Action: key.Action, Scope: model.ScopeAll})
		}
		return grants
	}

	member := all(BuildingsRead, RoomsRead, EventsRead, SchedulesRead, TicketsSubmit)
	member = append(member, model.PermissionGrant{Resource: "tickets", Action: "read", Scope: model.ScopeOwn})

	return []model.Role{
		{Name: "admin", Description: "Full access to the organization", Grants: all(Catalog...)},
		{Name: "staff", Description: "Facilities and scheduling staff", Grants: all(
			BuildingsRead, BuildingsManage, RoomsRead, RoomsManage,
			TicketsRead, TicketsSubmit, TicketsManage,
			EventsRead, EventsManage, SchedulesRead, SchedulesManage,
			UsersRead,
		)},
		{Name: "member", Description: "Teachers and other members", Grants: member},
	}
}
