package middleware

import (
	"strings"

	"quill/internal/models"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate resolves the request actor from a bearer token when one is
// supplied. Requests without a valid token continue anonymously; routes that
// need a user add AuthRequired.
func Authenticate(tokens *session.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if userID, err := tokens.Parse(token); err == nil {
				c.Locals(session.LocalsKey, userID)
			}
		}
		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401.
func AuthRequired(c *fiber.Ctx) error {
	if !session.FromFiber(c).Authenticated() {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	return c.Next()
}

// WebSocketAuthRequired validates a token passed as the "token" query
// parameter, falling back to the Authorization header. Browsers cannot set
// headers on websocket upgrades.
func WebSocketAuthRequired(tokens *session.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var ok bool
			if token, ok = bearerToken(c); !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token required"))
			}
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		c.Locals(session.LocalsKey, userID)
		return c.Next()
	}
}
