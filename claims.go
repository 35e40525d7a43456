package bookstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured session claims
type AuthClaims interface {
	Subject() string
	Email() string
	Role() Role
	HasRole(role Role) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The subject
// claim carries the account email.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserRole Role `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Email returns the account email carried in the subject claim
func (c *JWTClaims) Email() string {
	return c.RegisteredClaims.Subject
}

// Role returns the account role
func (c *JWTClaims) Role() Role {
	return c.UserRole
}

// HasRole checks if the claims carry the exact role
func (c *JWTClaims) HasRole(role Role) bool {
	return c.UserRole.Is(role)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
