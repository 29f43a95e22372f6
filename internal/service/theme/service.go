package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
	"github.com/GintGld/clipper/internal/storage"
)

const defaultTheme = models.ThemeLight

type Theme struct {
	log        *slog.Logger
	prefs      PreferenceStorage
	retention  time.Duration
	interval   time.Duration
	cleanupMux sync.Mutex
}

type PreferenceStorage interface {
	Theme(ctx context.Context, sessionID string) (models.Theme, error)
	SaveTheme(ctx context.Context, sessionID string, theme models.Theme) error
	DeleteStalePreferences(ctx context.Context, before time.Time) (int64, error)
}

// New returns theme service. Preferences not
// updated for retention are removed by Run
// every interval.
func New(
	log *slog.Logger,
	prefs PreferenceStorage,
	retention time.Duration,
	interval time.Duration,
) *Theme {
	return &Theme{
		log:       log,
		prefs:     prefs,
		retention: retention,
		interval:  interval,
	}
}

// Theme returns theme of the session.
// Sessions without saved preference get the light one.
func (t *Theme) Theme(ctx context.Context, sid string) (models.Theme, error) {
	const op = "Theme.Theme"

	log := t.log.With(
		slog.String("op", op),
		slog.String("sid", sid),
	)

	theme, err := t.prefs.Theme(ctx, sid)
	if err != nil {
		if errors.Is(err, storage.ErrPreferenceNotFound) {
			return defaultTheme, nil
		}
		if errors.Is(err, storage.ErrContextCancelled) {
			log.Error("prefs.Theme timeout exceeded")
			return "", fmt.Errorf("%s: %w", op, service.ErrTimeout)
		}
		log.Error("failed to get theme", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !theme.Valid() {
		log.Warn("stored theme is invalid", slog.String("theme", string(theme)))
		return defaultTheme, nil
	}

	return theme, nil
}

// Toggle switches theme of the session to the opposite one
// and returns the plan of visual transition.
func (t *Theme) Toggle(
	ctx context.Context,
	sid string,
	caps models.Capabilities,
	origin *models.Coords,
) (models.Theme, models.TransitionPlan, error) {
	const op = "Theme.Toggle"

	log := t.log.With(
		slog.String("op", op),
		slog.String("sid", sid),
	)

	current, err := t.Theme(ctx, sid)
	if err != nil {
		return "", models.TransitionPlan{}, fmt.Errorf("%s: %w", op, err)
	}

	next := current.Opposite()

	if err := t.prefs.SaveTheme(ctx, sid, next); err != nil {
		if errors.Is(err, storage.ErrContextCancelled) {
			log.Error("prefs.SaveTheme timeout exceeded")
			return "", models.TransitionPlan{}, fmt.Errorf("%s: %w", op, service.ErrTimeout)
		}
		log.Error("failed to save theme", sl.Err(err))
		return "", models.TransitionPlan{}, fmt.Errorf("%s: %w", op, err)
	}

	plan := StrategyFor(caps).Plan(origin)

	log.Debug("theme toggled",
		slog.String("theme", string(next)),
		slog.String("mode", string(plan.Mode)),
	)

	return next, plan, nil
}

// Run removes stale preferences until ctx is done.
// Concurrent calls return immediately.
func (t *Theme) Run(ctx context.Context) error {
	const op = "Theme.Run"

	log := t.log.With(
		slog.String("op", op),
	)

	if t.interval <= 0 || t.retention <= 0 {
		return nil
	}

	if !t.cleanupMux.TryLock() {
		return nil
	}
	defer t.cleanupMux.Unlock()

	log.Info("start preferences cleanup")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := t.prefs.DeleteStalePreferences(ctx, time.Now().Add(-t.retention))
			if err != nil {
				log.Error("failed to delete stale preferences", sl.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("stale preferences deleted", slog.Int64("count", n))
			}
		case <-ctx.Done():
			log.Info("finish preferences cleanup")
			return nil
		}
	}
}
