package bookstore

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Session is the result of a successful login: a signed token plus the
// metadata clients need to use it.
type Session struct {
	Token      string `json:"access_token"`
	TokenType  string `json:"token_type"`
	TTLSeconds int    `json:"expires_in"`
	Role       Role   `json:"role"`
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	SessionFromToken(token string) (AuthClaims, error)
	IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() Role
}

// TokenService mints and validates session tokens.
type TokenService interface {
	Generate(identity Identity) (*Session, error)
	Validate(token string) (AuthClaims, error)
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// Notifier delivers account mail. Implementations must not block the
// request path.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] BOOKSTORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] BOOKSTORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] BOOKSTORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// nowFunc is overridable in tests that need deterministic timestamps.
var nowFunc = time.Now
