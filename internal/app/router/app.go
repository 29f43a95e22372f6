package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	backendClient "github.com/GintGld/clipper/internal/client/backend"
	"github.com/GintGld/clipper/internal/config"
	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/storage/sqlite"
	"github.com/GintGld/clipper/internal/storage/tmpfs"

	clipSrv "github.com/GintGld/clipper/internal/service/clip"
	jwtSrv "github.com/GintGld/clipper/internal/service/jwt"
	sessionSrv "github.com/GintGld/clipper/internal/service/session"
	themeSrv "github.com/GintGld/clipper/internal/service/theme"

	clipCtr "github.com/GintGld/clipper/internal/controller/clip"
	jwtCtr "github.com/GintGld/clipper/internal/controller/jwt"
	pageCtr "github.com/GintGld/clipper/internal/controller/page"
	sessionCtr "github.com/GintGld/clipper/internal/controller/session"
	themeCtr "github.com/GintGld/clipper/internal/controller/theme"
)

type App struct {
	log      *slog.Logger
	address  string
	app      *fiber.App
	sessions *sessionSrv.Registry
	theme    *themeSrv.Theme

	ctx    context.Context
	cancel context.CancelFunc
}

// mediaStore exposes tmpfs handles as clip resources.
type mediaStore struct {
	*tmpfs.Store
}

func (s mediaStore) Create(ctx context.Context, data []byte) (clipSrv.Resource, error) {
	h, err := s.Store.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *sqlite.Storage,
	cfg *config.Config,
	secret []byte,
) (*App, error) {
	// Create sevices
	store, err := tmpfs.New(log, cfg.HTTPServer.TmpDir)
	if err != nil {
		return nil, err
	}

	backend := backendClient.New(log, cfg.Backend.URL, cfg.Backend.Timeout, cfg.Backend.MaxBytes)

	factory := clipSrv.NewFactory(log, backend, mediaStore{store}, clipSrv.Options{
		MaxDuration: cfg.Clip.MaxDuration,
		Timeout:     cfg.Backend.Timeout,
	})

	sessions := sessionSrv.New(
		log,
		factory,
		cfg.Session.TTL,
		cfg.Session.MaxSessions,
		cfg.Session.MaxViews,
		cfg.Session.MaxNotices,
	)

	jwt := jwtSrv.New(secret)

	theme := themeSrv.New(
		log,
		storage,
		cfg.TokenTTL,
		cfg.Session.TTL,
	)

	// Create controller helper
	jwtC := jwtCtr.New(secret, sessions)

	app := fiber.New(fiber.Config{
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	})

	// Mount controllers to an app
	app.Mount("/api/session", sessionCtr.New(cfg.TokenTTL, sessions, jwt))
	app.Mount("/api/clips", clipCtr.New(sessions, jwtC))
	app.Mount("/api/theme", themeCtr.New(cfg.HTTPServer.Timeout, theme, jwtC))
	app.Mount("/", pageCtr.New(
		cfg.HTTPServer.Timeout,
		cfg.TokenTTL,
		cfg.Clip.MaxDuration,
		sessions,
		jwt,
		theme,
	))

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		log:      log,
		address:  cfg.HTTPServer.Address,
		app:      app,
		sessions: sessions,
		theme:    theme,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	go func() {
		if err := a.theme.Run(a.ctx); err != nil {
			a.log.Error("preferences cleanup stopped", sl.Err(err))
		}
	}()

	return a.app.Listen(a.address)
}

// Stop shuts the server down and releases every clip.
func (a *App) Stop() {
	if err := a.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		a.log.Error("failed to shutdown server", sl.Err(err))
	}
	a.cancel()
	a.sessions.Stop()
}

// Fiber exposes the router for in-process tests.
func (a *App) Fiber() *fiber.App {
	return a.app
}
