package page

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/gofiber/fiber/v2"

	themeController "github.com/GintGld/clipper/internal/controller/theme"
	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/lib/youtube"
	"github.com/GintGld/clipper/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Title       string
	Theme       models.Theme
	Notices     []models.Notice
	Refresh     int
	MaxDuration int64

	URL  string
	Clip *clipData
}

type clipData struct {
	VideoID     models.VideoID
	EmbedURL    string
	Start       timecode.Parts
	End         timecode.Parts
	HasEnd      bool
	MaxDuration int64

	Busy         bool
	Failed       bool
	ErrorMessage string

	Ready    bool
	MIME     string
	FileName string
}

func newClipData(snap models.Snapshot, maxDuration int64) *clipData {
	data := &clipData{
		VideoID:     snap.VideoID,
		EmbedURL:    youtube.EmbedURL(snap.VideoID),
		MaxDuration: maxDuration,
		Busy:        snap.State == models.StateSubmitting,
	}

	if snap.Range != nil {
		data.Start = snap.Range.Start
		if snap.Range.EndTotal >= 0 {
			data.End = snap.Range.End
			data.HasEnd = true
		}
	}

	if snap.State == models.StateFailed && snap.Error != nil {
		data.Failed = true
		data.ErrorMessage = snap.Error.Message
	}

	if snap.State == models.StateSucceeded && snap.Media != nil {
		data.Ready = true
		data.MIME = snap.Media.MIME
		data.FileName = snap.Media.FileName()
	}

	return data
}

func render(c *fiber.Ctx, status int, name string, data pageData) error {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, name, data); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set("Accept-CH", themeController.ReducedMotionHeader)
	c.Type("html", "utf-8")

	return c.Status(status).Send(buf.Bytes())
}
