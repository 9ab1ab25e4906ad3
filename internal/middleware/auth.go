package middleware

import (
	"context"

	"github.com/fathima-sithara/realtime-service/internal/auth"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.UserProfile, error)
}

// Auth resolves the caller from the token query parameter or a bearer
// header and stores the profile in Locals. Runs before any websocket upgrade.
func Auth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			if h := c.Get(fiber.HeaderAuthorization); h != "" {
				t, err := auth.ParseBearerToken(h)
				if err == nil {
					token = t
				}
			}
		}
		p, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(userKey, p)
		return c.Next()
	}
}

// CurrentUser returns the profile stored by Auth, or nil.
func CurrentUser(c *fiber.Ctx) *domain.UserProfile {
	p, _ := c.Locals(userKey).(*domain.UserProfile)
	return p
}
