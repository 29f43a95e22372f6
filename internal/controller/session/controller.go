package session

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/clipper/internal/service"
)

// New returns an fiber.App that will
// start anonymous sessions and return JWT.
func New(
	tokenTTL time.Duration,
	sessions Sessions,
	tokens Tokens,
) *fiber.App {
	sessionCtr := sessionController{
		tokenTTL: tokenTTL,
		sessions: sessions,
		tokens:   tokens,
	}

	app := fiber.New()

	app.Post("/", sessionCtr.start)

	return app
}

type sessionController struct {
	tokenTTL time.Duration
	sessions Sessions
	tokens   Tokens
}

type Sessions interface {
	Register() (string, error)
	Unregister(sid string)
}

type Tokens interface {
	NewToken(sid string, duration time.Duration) (string, error)
}

// start registers new session.
func (sessionCtr *sessionController) start(c *fiber.Ctx) error {
	sid, err := sessionCtr.sessions.Register()
	if err != nil {
		if errors.Is(err, service.ErrTooManySessions) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "too many sessions",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	token, err := sessionCtr.tokens.NewToken(sid, sessionCtr.tokenTTL)
	if err != nil {
		sessionCtr.sessions.Unregister(sid)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
	})
}
