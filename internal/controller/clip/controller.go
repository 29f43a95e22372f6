package clip

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/GintGld/clipper/internal/controller/jwt"
	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/lib/youtube"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
	clipService "github.com/GintGld/clipper/internal/service/clip"
)

// New returns an fiber.App serving
// clip views of the session as JSON.
func New(
	sessions Sessions,
	jwtC *jwtController.JWT,
) *fiber.App {
	clipCtr := clipController{
		sessions: sessions,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Post("/resolve", clipCtr.resolve)
	app.Get("/:id", clipCtr.view)
	app.Post("/:id", clipCtr.submit)
	app.Get("/:id/media", clipCtr.media)
	app.Delete("/:id", clipCtr.discard)

	return app
}

type clipController struct {
	sessions Sessions
}

type Sessions interface {
	View(sid string, videoID models.VideoID) (*clipService.Lifecycle, error)
	Find(sid string, videoID models.VideoID) (*clipService.Lifecycle, error)
	Discard(sid string, videoID models.VideoID) error
	Notices(sid string) []models.Notice
}

// resolve extracts video id from youtube url.
func (clipCtr *clipController) resolve(c *fiber.Ctx) error {
	type request struct {
		URL string `json:"url"`
	}

	req := new(request)

	if err := c.BodyParser(req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	id, err := youtube.Extract(req.URL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": service.ErrURLParse.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"videoId": id,
	})
}

// view returns clip state and pending notices.
func (clipCtr *clipController) view(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad video id",
		})
	}

	l, err := clipCtr.sessions.View(sid, id)
	if err != nil {
		return sessionError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clip":    l.Snapshot(),
		"notices": clipCtr.sessions.Notices(sid),
	})
}

// submit starts clip creation.
func (clipCtr *clipController) submit(c *fiber.Ctx) error {
	type request struct {
		StartTime *float64 `json:"start_time"`
		EndTime   *float64 `json:"end_time"`
	}

	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad video id",
		})
	}

	req := new(request)

	if err := c.BodyParser(req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	start := timecode.Seconds(0)
	if req.StartTime != nil {
		v, err := timecode.FromFloat(*req.StartTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "start time out of range",
			})
		}
		start = v
	}
	// missing end is reported as invalid one
	end := timecode.Seconds(-1)
	if req.EndTime != nil {
		v, err := timecode.FromFloat(*req.EndTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "end time out of range",
			})
		}
		end = v
	}

	l, err := clipCtr.sessions.View(sid, id)
	if err != nil {
		return sessionError(c, err)
	}

	snap, err := l.Submit(start, end)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmitInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": service.ErrSubmitInProgress.Error(),
				"clip":  snap,
			})
		case errors.Is(err, service.ErrLifecycleClosed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": service.ErrLifecycleClosed.Error(),
			})
		case isValidation(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": snap.Error.Message,
				"clip":  snap,
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"clip": snap,
	})
}

// media streams the clip. With "download" query
// it is sent as an attachment.
func (clipCtr *clipController) media(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad video id",
		})
	}

	l, err := clipCtr.sessions.Find(sid, id)
	if err != nil {
		return sessionError(c, err)
	}

	r, media, err := l.OpenMedia()
	if err != nil {
		return sessionError(c, err)
	}

	c.Set(fiber.HeaderContentType, media.MIME)
	if c.QueryBool("download") {
		c.Attachment(media.FileName())
	}

	return c.SendStream(r, int(media.Size))
}

// discard tears the clip view down.
func (clipCtr *clipController) discard(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad video id",
		})
	}

	if err := clipCtr.sessions.Discard(sid, id); err != nil {
		return sessionError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func videoID(c *fiber.Ctx) (models.VideoID, bool) {
	id := c.Params("id")
	if !youtube.IsVideoID(id) {
		return "", false
	}
	return models.VideoID(id), true
}

func isValidation(err error) bool {
	return errors.Is(err, service.ErrMissingOrInvalidEnd) ||
		errors.Is(err, service.ErrEndNotAfterStart) ||
		errors.Is(err, service.ErrDurationExceeded)
}

func sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "session not found",
		})
	case errors.Is(err, service.ErrResultNotFound),
		errors.Is(err, service.ErrLifecycleClosed):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": service.ErrResultNotFound.Error(),
		})
	}

	return c.SendStatus(fiber.StatusInternalServerError)
}
