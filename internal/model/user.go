package model

import (
	"strings"
	"time"
)

const (
	RoleDonor     = "Donor"
	RoleVolunteer = "Volunteer"
	RoleAdmin     = "Admin"
)

// NormalizeRole maps any casing of a known role to its canonical form.
// Unknown roles are returned unchanged with ok=false.
func NormalizeRole(role string) (string, bool) {
	for _, r := range []string{RoleDonor, RoleVolunteer, RoleAdmin} {
		if strings.EqualFold(role, r) {
			return r, true
		}
	}
	return role, false
}

// User represents an account in the system
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose password hash in JSON responses
	Role         string    `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	Location     *string   `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the payload accepted by POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// LoginRequest is the payload accepted by POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
