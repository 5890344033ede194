package middleware

import (
	"strings"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

const SubjectLocalKey = "subject"

// RequireToken accepts HS256 bearer tokens when a JWT secret is configured.
// Without a secret the API is open and every request passes.
func (m *Middleware) RequireToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.tokens == nil || !m.tokens.Enabled() {
			return c.Next()
		}

		log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("RequireToken")

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		subject, err := m.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			log.Info("token validation failed", "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(SubjectLocalKey, subject)
		return c.Next()
	}
}

func GetSubject(c *fiber.Ctx) string {
	if subject, ok := c.Locals(SubjectLocalKey).(string); ok {
		return subject
	}
	return ""
}
