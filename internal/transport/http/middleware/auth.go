package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/auth"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
)

const callerKey = "caller"

// RequireAction admits the request only when the bearer token belongs to a user
// allowed to perform action. The resolved caller is stored in Locals.
func RequireAction(guard auth.Guard, action auth.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := guard.Authorize(c.UserContext(), bearerToken(c), action)
		if err != nil {
			return response.Error(c, err)
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

func CallerFrom(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok
}

// bearerToken returns "" for a missing or malformed header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
