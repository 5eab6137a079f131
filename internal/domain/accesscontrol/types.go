package accesscontrol

import (
	"errors"
	"time"
)

type RoleName string

const (
	RoleSuperAdmin   RoleName = "AppSuperAdmin"
	RoleAdmin        RoleName = "AppAdmin"
	RoleUser         RoleName = "User"
	RoleUserVerified RoleName = "UserVerified"
)

var (
	ErrRoleNotFound = errors.New("role not found")
	ErrNotAssigned  = errors.New("role is not assigned to user")
)

// AdminRoles may perform privileged actions such as verifying users.
var AdminRoles = []RoleName{RoleSuperAdmin, RoleAdmin}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasAny reports whether names contains any of want.
func HasAny(names []string, want ...RoleName) bool {
	for _, n := range names {
		for _, w := range want {
			if n == string(w) {
				return true
			}
		}
	}
	return false
}
