package domain

import "strings"

// Role is the authorization role of a portal principal.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
)

// User models the authenticated principal as returned by the Remote Service.
// EmployeeID is only read to repair records persisted by older clients that
// never carried an id.
type User struct {
	ID               string `json:"id"`
	EmployeeID       string `json:"employeeId,omitempty"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             Role   `json:"role"`
	Department       string `json:"department,omitempty"`
	Position         string `json:"position,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	ProfileCompleted bool   `json:"profileCompleted"`
}

// IsHR reports whether the user holds the hr role.
func (u *User) IsHR() bool {
	return u != nil && u.Role == RoleHR
}

// Normalize fills a missing ID from EmployeeID.
func (u *User) Normalize() {
	if u.ID == "" && u.EmployeeID != "" {
		u.ID = u.EmployeeID
	}
}

// DeriveRole computes the role from organisational data: the HR department,
// or any position mentioning "hr" (case-insensitive), yields RoleHR.
func DeriveRole(department, position string) Role {
	if strings.EqualFold(strings.TrimSpace(department), "hr") {
		return RoleHR
	}
	if strings.Contains(strings.ToLower(position), "hr") {
		return RoleHR
	}
	return RoleEmployee
}

// ResolveRole trusts a recognised role supplied by the Remote Service and
// falls back to DeriveRole otherwise.
func ResolveRole(server string, department, position string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(server))) {
	case RoleHR:
		return RoleHR
	case RoleEmployee:
		return RoleEmployee
	}
	return DeriveRole(department, position)
}

// FullName joins first and last name, skipping empty parts.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
