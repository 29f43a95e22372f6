package page

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	jwtController "github.com/GintGld/clipper/internal/controller/jwt"
	themeController "github.com/GintGld/clipper/internal/controller/theme"
	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/lib/youtube"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
	clipService "github.com/GintGld/clipper/internal/service/clip"
)

const (
	sessionCookie = "session"
	refreshPeriod = 2
)

// New returns an fiber.App rendering html pages.
// Visitors are identified by a session cookie
// which is issued on the first visit.
func New(
	timeout time.Duration,
	tokenTTL time.Duration,
	maxDuration time.Duration,
	sessions Sessions,
	tokens Tokens,
	themeSrv Theme,
) *fiber.App {
	pageCtr := pageController{
		timeout:     timeout,
		tokenTTL:    tokenTTL,
		maxDuration: int64(maxDuration / time.Second),
		sessions:    sessions,
		tokens:      tokens,
		theme:       themeSrv,
	}

	app := fiber.New()

	// session is attached per route, the app is mounted at root
	// next to the api apps
	session := pageCtr.session

	app.Get("/", session, pageCtr.index)
	app.Get("/clips", session, pageCtr.resolveForm)
	app.Post("/clips", session, pageCtr.resolve)
	app.Get("/clips/:id", session, pageCtr.clip)
	app.Post("/clips/:id", session, pageCtr.submit)
	app.Get("/clips/:id/media", session, pageCtr.media)
	app.Get("/clips/:id/download", session, pageCtr.download)
	app.Post("/clips/:id/discard", session, pageCtr.discard)
	app.Post("/theme", session, pageCtr.toggleTheme)

	return app
}

type pageController struct {
	timeout     time.Duration
	tokenTTL    time.Duration
	maxDuration int64
	sessions    Sessions
	tokens      Tokens
	theme       Theme
}

type Sessions interface {
	Register() (string, error)
	Touch(sid string) bool
	Restore(sid string) error
	View(sid string, videoID models.VideoID) (*clipService.Lifecycle, error)
	Find(sid string, videoID models.VideoID) (*clipService.Lifecycle, error)
	Discard(sid string, videoID models.VideoID) error
	Notify(sid string, n models.Notice)
	Notices(sid string) []models.Notice
}

type Tokens interface {
	NewToken(sid string, duration time.Duration) (string, error)
	SessionID(token string) (string, error)
}

type Theme interface {
	Theme(ctx context.Context, sid string) (models.Theme, error)
	Toggle(ctx context.Context, sid string, caps models.Capabilities, origin *models.Coords) (models.Theme, models.TransitionPlan, error)
}

// session restores visitor session from cookie
// or starts a new one.
func (pageCtr *pageController) session(c *fiber.Ctx) error {
	if sid, err := pageCtr.tokens.SessionID(c.Cookies(sessionCookie)); err == nil {
		if err := jwtController.Keep(pageCtr.sessions, sid); err != nil {
			return sessionFailure(c, err)
		}
		jwtController.WithSessionID(c, sid)
		return c.Next()
	}

	sid, err := pageCtr.sessions.Register()
	if err != nil {
		return sessionFailure(c, err)
	}

	token, err := pageCtr.tokens.NewToken(sid, pageCtr.tokenTTL)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(pageCtr.tokenTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	jwtController.WithSessionID(c, sid)

	return c.Next()
}

func sessionFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrTooManySessions) {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Too many visitors, try again later.")
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}

func (pageCtr *pageController) index(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "index", pageCtr.page(c, "Home"))
}

func (pageCtr *pageController) resolveForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "resolve", pageCtr.page(c, "Choose a video"))
}

// resolve opens clip view of the video by its url.
func (pageCtr *pageController) resolve(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)
	raw := c.FormValue("url")

	id, err := youtube.Extract(raw)
	if err != nil {
		pageCtr.sessions.Notify(sid, models.Notice{
			Level: models.NoticeError,
			Text:  "Invalid YouTube URL",
		})

		data := pageCtr.page(c, "Choose a video")
		data.URL = raw

		return render(c, fiber.StatusBadRequest, "resolve", data)
	}

	return c.Redirect("/clips/"+string(id), fiber.StatusSeeOther)
}

// clip renders clip view. While the clip is
// processing the page refreshes itself.
func (pageCtr *pageController) clip(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return pageCtr.notFound(c)
	}

	l, err := pageCtr.sessions.View(sid, id)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	snap := l.Snapshot()

	data := pageCtr.page(c, "Clip "+string(id))
	data.Clip = newClipData(snap, pageCtr.maxDuration)
	if snap.State == models.StateSubmitting {
		data.Refresh = refreshPeriod
	}

	return render(c, fiber.StatusOK, "clip", data)
}

// submit reads picker fields and starts clip creation.
func (pageCtr *pageController) submit(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return pageCtr.notFound(c)
	}

	start, ok := timecode.ParseParts(c.FormValue("start_h"), c.FormValue("start_m"), c.FormValue("start_s"))
	if !ok {
		start = 0
	}
	end, ok := timecode.ParseParts(c.FormValue("end_h"), c.FormValue("end_m"), c.FormValue("end_s"))
	if !ok {
		end = -1
	}

	l, err := pageCtr.sessions.View(sid, id)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	// validation failures are reported as notices by the lifecycle
	if _, err := l.Submit(start, end); errors.Is(err, service.ErrSubmitInProgress) {
		pageCtr.sessions.Notify(sid, models.Notice{
			Level: models.NoticeInfo,
			Text:  "Clip is already processing",
		})
	}

	return c.Redirect("/clips/"+string(id), fiber.StatusSeeOther)
}

func (pageCtr *pageController) media(c *fiber.Ctx) error {
	return pageCtr.sendMedia(c, false)
}

func (pageCtr *pageController) download(c *fiber.Ctx) error {
	return pageCtr.sendMedia(c, true)
}

func (pageCtr *pageController) sendMedia(c *fiber.Ctx, attachment bool) error {
	sid := jwtController.SessionID(c)

	id, ok := videoID(c)
	if !ok {
		return pageCtr.notFound(c)
	}

	l, err := pageCtr.sessions.Find(sid, id)
	if err != nil {
		return pageCtr.notFound(c)
	}

	r, media, err := l.OpenMedia()
	if err != nil {
		return pageCtr.notFound(c)
	}

	c.Set(fiber.HeaderContentType, media.MIME)
	if attachment {
		c.Attachment(media.FileName())
	}

	return c.SendStream(r, int(media.Size))
}

// discard tears the clip view down.
func (pageCtr *pageController) discard(c *fiber.Ctx) error {
	sid := jwtController.SessionID(c)

	if id, ok := videoID(c); ok {
		_ = pageCtr.sessions.Discard(sid, id)
	}

	return c.Redirect("/clips", fiber.StatusSeeOther)
}

// toggleTheme switches theme. Scripted clients asking
// for json get the transition plan, others are redirected back.
func (pageCtr *pageController) toggleTheme(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), pageCtr.timeout)
	defer cancel()

	var origin *models.Coords
	x, errX := strconv.ParseFloat(c.FormValue("x"), 64)
	y, errY := strconv.ParseFloat(c.FormValue("y"), 64)
	if errX == nil && errY == nil {
		origin = &models.Coords{X: x, Y: y}
	}

	vt := c.FormValue("vt")
	caps := models.Capabilities{
		ViewTransitions: vt == "1" || strings.EqualFold(vt, "true"),
		ReducedMotion:   themeController.PrefersReducedMotion(c),
	}

	theme, plan, err := pageCtr.theme.Toggle(ctx, jwtController.SessionID(c), caps, origin)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"theme":      theme,
			"transition": plan,
		})
	}

	return c.Redirect(backPath(c.Get(fiber.HeaderReferer)), fiber.StatusSeeOther)
}

// backPath keeps only local part of the referer.
func backPath(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}

	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}

	return back
}

func (pageCtr *pageController) notFound(c *fiber.Ctx) error {
	return render(c, fiber.StatusNotFound, "resolve", pageCtr.page(c, "Not found"))
}

// page collects data shared by every page.
func (pageCtr *pageController) page(c *fiber.Ctx, title string) pageData {
	sid := jwtController.SessionID(c)

	ctx, cancel := context.WithTimeout(context.Background(), pageCtr.timeout)
	defer cancel()

	theme, err := pageCtr.theme.Theme(ctx, sid)
	if err != nil {
		theme = models.ThemeLight
	}

	return pageData{
		Title:       title,
		Theme:       theme,
		Notices:     pageCtr.sessions.Notices(sid),
		MaxDuration: pageCtr.maxDuration,
	}
}

func videoID(c *fiber.Ctx) (models.VideoID, bool) {
	id := c.Params("id")
	if !youtube.IsVideoID(id) {
		return "", false
	}
	return models.VideoID(id), true
}
