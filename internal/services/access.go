package services

import (
	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
)

// CanAccessProject reports whether id may read the project and its
// sub-resources: admins always, everyone else as creator or member.
func CanAccessProject(id models.Identity, p *models.Project) bool {
	if p == nil {
		return false
	}
	switch id.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectLead, models.RoleDeveloper:
		return p.CreatedBy == id.ID || p.HasMember(id.ID)
	}
	return false
}

// CanManageProject reports whether the role may change membership and documents.
func CanManageProject(role models.Role) bool {
	switch role {
	case models.RoleAdmin, models.RoleProjectLead:
		return true
	}
	return false
}

// projectScope returns the listing filter for the identity's role. Leads
// list the projects they created; membership still grants access to others.
func projectScope(id models.Identity) (store.ProjectFilter, bool) {
	switch id.Role {
	case models.RoleAdmin:
		return store.ProjectFilter{}, true
	case models.RoleProjectLead:
		return store.ProjectFilter{CreatedBy: id.ID}, true
	case models.RoleDeveloper:
		return store.ProjectFilter{MemberID: id.ID}, true
	}
	return store.ProjectFilter{}, false
}
