package theme

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/GintGld/clipper/internal/controller/jwt"
	"github.com/GintGld/clipper/internal/models"
)

// ReducedMotionHeader is the client hint carrying user motion preference.
const ReducedMotionHeader = "Sec-CH-Prefers-Reduced-Motion"

func New(
	timeout time.Duration,
	themeSrv Theme,
	jwtC *jwtController.JWT,
) *fiber.App {
	themeCtr := themeController{
		timeout: timeout,
		srv:     themeSrv,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Get("/", themeCtr.theme)
	app.Post("/toggle", themeCtr.toggle)

	return app
}

type themeController struct {
	timeout time.Duration
	srv     Theme
}

type Theme interface {
	Theme(ctx context.Context, sid string) (models.Theme, error)
	Toggle(ctx context.Context, sid string, caps models.Capabilities, origin *models.Coords) (models.Theme, models.TransitionPlan, error)
}

func (themeCtr *themeController) theme(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), themeCtr.timeout)
	defer cancel()

	theme, err := themeCtr.srv.Theme(ctx, jwtController.SessionID(c))
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"theme": theme,
	})
}

// toggle switches theme and tells
// how to animate the switch.
func (themeCtr *themeController) toggle(c *fiber.Ctx) error {
	type request struct {
		X               *float64 `json:"x"`
		Y               *float64 `json:"y"`
		ViewTransitions bool     `json:"viewTransitions"`
	}

	ctx, cancel := context.WithTimeout(context.Background(), themeCtr.timeout)
	defer cancel()

	req := new(request)

	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
	}

	var origin *models.Coords
	if req.X != nil && req.Y != nil {
		origin = &models.Coords{X: *req.X, Y: *req.Y}
	}

	caps := models.Capabilities{
		ViewTransitions: req.ViewTransitions,
		ReducedMotion:   PrefersReducedMotion(c),
	}

	theme, plan, err := themeCtr.srv.Toggle(ctx, jwtController.SessionID(c), caps, origin)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"theme":      theme,
		"transition": plan,
	})
}

// PrefersReducedMotion reads the client hint header.
func PrefersReducedMotion(c *fiber.Ctx) bool {
	return strings.EqualFold(strings.TrimSpace(c.Get(ReducedMotionHeader)), "reduce")
}
