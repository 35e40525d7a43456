package bookstore

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "access_token"
	// ClaimsContextKey is the fiber locals key for validated claims.
	ClaimsContextKey = "claims"
	// IdentityContextKey is the fiber locals key for the resolved identity.
	IdentityContextKey = "identity"

	authScheme = "Bearer"
)

// Protected builds the session gate. Token lookup prefers the session
// cookie and falls back to the Authorization header. A request that fails
// here answers 401 with a WWW-Authenticate challenge; the resolved
// identity lands in locals for downstream handlers.
func Protected(auther Authenticator, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return unauthenticated(c, ErrUnableToFindSession)
		}

		claims, err := auther.SessionFromToken(raw)
		if err != nil {
			logger.Debug("session token rejected", "error", err)
			return unauthenticated(c, err)
		}

		identity, err := auther.IdentityFromClaims(c.UserContext(), claims)
		if err != nil {
			// The token may outlive the account; a vanished identity is an
			// authentication failure, not an internal error.
			logger.Debug("session identity rejected", "error", err)
			return unauthenticated(c, ErrUnableToFindSession)
		}

		c.Locals(ClaimsContextKey, claims)
		c.Locals(IdentityContextKey, identity)

		// Command handlers run on the request context, so the caller
		// travels there too.
		ctx := WithClaimsContext(c.UserContext(), claims)
		c.SetUserContext(WithIdentityContext(ctx, identity))

		return c.Next()
	}
}

// RequireRole gates a route to sessions whose role matches exactly. There
// is no role hierarchy.
func RequireRole(role Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c)
		if !ok {
			return unauthenticated(c, ErrUnableToFindSession)
		}

		if !claims.HasRole(role) {
			return RenderError(c, ErrRoleForbidden.Clone().WithMetadata(map[string]any{
				"required_role": role.String(),
			}))
		}

		return c.Next()
	}
}

// ClaimsFromFiber extracts validated claims from request locals.
func ClaimsFromFiber(c *fiber.Ctx) (AuthClaims, bool) {
	claims, ok := c.Locals(ClaimsContextKey).(AuthClaims)
	return claims, ok
}

// IdentityFromFiber extracts the resolved identity from request locals.
func IdentityFromFiber(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(IdentityContextKey).(Identity)
	return identity, ok
}

func tokenFromRequest(c *fiber.Ctx) string {
	if cookie := c.Cookies(SessionCookieName); cookie != "" {
		return cookie
	}

	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func unauthenticated(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderWWWAuthenticate, authScheme)
	return RenderError(c, err)
}
