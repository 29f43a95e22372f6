package jwtController

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/GintGld/clipper/internal/service"
	jwtService "github.com/GintGld/clipper/internal/service/jwt"
)

const sessionKey = "sid"

type JWT struct {
	secret   []byte
	sessions Sessions
}

// Sessions prolongs live sessions and revives those
// whose tokens outlived the in-memory registry.
type Sessions interface {
	Touch(sid string) bool
	Restore(sid string) error
}

func New(secret []byte, sessions Sessions) *JWT {
	return &JWT{
		secret:   secret,
		sessions: sessions,
	}
}

// AuthRequired rejects requests without valid bearer
// session token and stores the session id in context.
func (jwtController *JWT) AuthRequired() func(*fiber.Ctx) error {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    jwtController.secret,
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "authentication error",
				})
			}

			sid, err := jwtService.ClaimsSessionID(token)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "authentication error",
				})
			}

			if err := Keep(jwtController.sessions, sid); err != nil {
				if errors.Is(err, service.ErrTooManySessions) {
					return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
						"error": "too many sessions",
					})
				}
				return c.SendStatus(fiber.StatusInternalServerError)
			}
			c.Locals(sessionKey, sid)

			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication error",
			})
		},
	})
}

// Keep prolongs the session or restores it when unknown.
func Keep(sessions Sessions, sid string) error {
	if sessions.Touch(sid) {
		return nil
	}
	return sessions.Restore(sid)
}

// SessionID returns session id stored by AuthRequired.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionKey).(string)
	return sid
}

// WithSessionID stores session id in context.
func WithSessionID(c *fiber.Ctx, sid string) {
	c.Locals(sessionKey, sid)
}
