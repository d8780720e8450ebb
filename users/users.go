package users

import (
	"slices"
	"strings"
	"time"
)

// RoleType names a portal role as issued by the backend.
type RoleType string

const (
	RoleAdmin        RoleType = "admin"
	RoleDoctor       RoleType = "doctor"
	RoleReceptionist RoleType = "receptionist"
	RolePharmacist   RoleType = "pharmacist"
	RoleCashier      RoleType = "cashier"
	RoleDesigner     RoleType = "designer"
)

// Role is a role assignment together with the permissions it grants.
type Role struct {
	ID          string   `json:"id,omitempty"`
	Name        RoleType `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// Profile is the authenticated account as returned by GET /profile.
type Profile struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	IsActive           bool       `json:"isActive"`
	IsSuperAdmin       bool       `json:"isSuperAdmin"`
	MustChangePassword bool       `json:"mustChangePassword"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	Roles              []Role     `json:"roles"`
}

// HasRole reports whether the profile holds the named role.
func (p *Profile) HasRole(role RoleType) bool {
	if p == nil {
		return false
	}
	return slices.ContainsFunc(p.Roles, func(r Role) bool { return r.Name == role })
}

// Can reports whether any role grants permission. Super admins can do everything.
func (p *Profile) Can(permission string) bool {
	if p == nil {
		return false
	}
	if p.IsSuperAdmin {
		return true
	}
	for _, r := range p.Roles {
		if slices.Contains(r.Permissions, permission) {
			return true
		}
	}
	return false
}

// RoleNames returns the role names in order, for display.
func (p *Profile) RoleNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, string(r.Name))
	}
	return names
}

// DisplayName falls back to the local part of the email when no name is set.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
