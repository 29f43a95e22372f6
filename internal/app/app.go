package app

import (
	"log/slog"
	"os"

	routerApp "github.com/GintGld/clipper/internal/app/router"
	"github.com/GintGld/clipper/internal/config"
	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/storage/sqlite"
)

type App struct {
	Router *routerApp.App

	storage *sqlite.Storage
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	secret []byte,
) *App {
	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	router, err := routerApp.New(
		log,
		storage,
		cfg,
		secret,
	)
	if err != nil {
		log.Error("failed to init router", sl.Err(err))
		os.Exit(1)
	}

	return &App{
		Router:  router,
		storage: storage,
	}
}

// Stop stops the router and closes storage.
func (a *App) Stop() error {
	a.Router.Stop()
	return a.storage.Stop()
}
