package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the account role carried in backend access tokens.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTutor    Role = "tutor"
	RoleStudent  Role = "student"
	RoleCustomer Role = "customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTutor, RoleStudent, RoleCustomer:
		return true
	}
	return false
}

// ParseRole lower-cases and validates a role string.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.IsValid()
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Email  string
	Name   string
	Role   Role
	JTI    string
}

// AccessTokenClaims represents the claims the backend puts in its access tokens.
type AccessTokenClaims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identifier returns the user id, falling back to the subject claim.
func (c *AccessTokenClaims) Identifier() string {
	if c == nil {
		return ""
	}
	if id := strings.TrimSpace(c.UserID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}
