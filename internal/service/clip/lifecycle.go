package clip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/lib/youtube"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
)

type Backend interface {
	Download(ctx context.Context, req models.ClipRequest) ([]byte, error)
}

type MediaStore interface {
	Create(ctx context.Context, data []byte) (Resource, error)
}

// Resource is a clip held on the server side.
// It must be released exactly once.
type Resource interface {
	Media() models.ClipMedia
	Open() (io.ReadCloser, error)
	Release() error
}

type Notifier interface {
	Notify(n models.Notice)
}

type NotifyFunc func(n models.Notice)

func (f NotifyFunc) Notify(n models.Notice) {
	f(n)
}

// userMessager is implemented by errors carrying
// a message that may be shown to the user as is.
type userMessager interface {
	UserMessage() string
}

type Options struct {
	MaxDuration time.Duration
	Timeout     time.Duration
}

// Factory creates lifecycles sharing backend and store.
type Factory struct {
	log     *slog.Logger
	backend Backend
	store   MediaStore
	opts    Options
}

func NewFactory(
	log *slog.Logger,
	backend Backend,
	store MediaStore,
	opts Options,
) *Factory {
	return &Factory{
		log:     log,
		backend: backend,
		store:   store,
		opts:    opts,
	}
}

// New returns idle lifecycle for the video.
func (f *Factory) New(videoID models.VideoID, notifier Notifier) *Lifecycle {
	return New(f.log, videoID, f.backend, f.store, notifier, f.opts)
}

// Lifecycle drives one clip view: validation,
// a single in-flight backend request and the result.
type Lifecycle struct {
	log         *slog.Logger
	videoID     models.VideoID
	backend     Backend
	store       MediaStore
	notifier    Notifier
	maxDuration timecode.Seconds
	timeout     time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mutex      sync.Mutex
	state      models.ClipState
	rng        *models.RangeView
	result     Resource
	clipErr    *models.ClipError
	generation uint64
	settled    chan struct{}
	closed     bool
}

func New(
	log *slog.Logger,
	videoID models.VideoID,
	backend Backend,
	store MediaStore,
	notifier Notifier,
	opts Options,
) *Lifecycle {
	ctx, cancel := context.WithCancel(context.Background())

	if notifier == nil {
		notifier = NotifyFunc(func(models.Notice) {})
	}

	return &Lifecycle{
		log:         log.With(slog.String("videoID", string(videoID))),
		videoID:     videoID,
		backend:     backend,
		store:       store,
		notifier:    notifier,
		maxDuration: timecode.FromDuration(opts.MaxDuration),
		timeout:     opts.Timeout,
		ctx:         ctx,
		cancel:      cancel,
		state:       models.StateIdle,
	}
}

// Submit validates the range and, if it is valid,
// starts the backend request in background.
//
// While a request is in flight Submit returns
// ErrSubmitInProgress and starts nothing.
func (l *Lifecycle) Submit(start, end timecode.Seconds) (models.Snapshot, error) {
	snapshot, notice, err := l.submit(start, end)
	if notice != nil {
		l.notifier.Notify(*notice)
	}

	return snapshot, err
}

func (l *Lifecycle) submit(start, end timecode.Seconds) (models.Snapshot, *models.Notice, error) {
	const op = "Lifecycle.Submit"

	log := l.log.With(
		slog.String("op", op),
		slog.String("start", start.String()),
		slog.String("end", end.String()),
	)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return models.Snapshot{}, nil, fmt.Errorf("%s: %w", op, service.ErrLifecycleClosed)
	}

	if l.state == models.StateSubmitting {
		log.Warn("submit rejected, request in flight")
		return l.snapshotLocked(), nil, fmt.Errorf("%s: %w", op, service.ErrSubmitInProgress)
	}

	// a new request discards previous result
	l.releaseLocked()
	l.clipErr = nil

	l.state = models.StateValidating
	view := models.NewRangeView(start, end)
	l.rng = &view

	rng, err := Validate(start, end, l.maxDuration)
	if err != nil {
		log.Info("invalid clip range", sl.Err(err))

		notice := l.failLocked(KindOf(err), validationMessage(err, l.maxDuration))
		return l.snapshotLocked(), &notice, fmt.Errorf("%s: %w", op, err)
	}

	l.generation++
	l.state = models.StateSubmitting
	l.settled = make(chan struct{})

	req := models.ClipRequest{
		URL:       youtube.WatchURL(l.videoID),
		StartTime: int64(rng.Start),
		EndTime:   int64(rng.End),
	}

	go l.run(l.generation, req, l.settled)

	log.Info("clip request submitted")

	notice := models.Notice{Level: models.NoticeInfo, Text: "Processing clip..."}
	return l.snapshotLocked(), &notice, nil
}

func (l *Lifecycle) run(generation uint64, req models.ClipRequest, settled chan struct{}) {
	defer close(settled)

	ctx := l.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(l.ctx, l.timeout)
		defer cancel()
	}

	var res Resource

	data, err := l.backend.Download(ctx, req)
	if err == nil {
		res, err = l.store.Create(ctx, data)
	}

	if notice := l.settle(generation, res, err); notice != nil {
		l.notifier.Notify(*notice)
	}
}

// settle applies the outcome of the request started
// with given generation.
func (l *Lifecycle) settle(generation uint64, res Resource, reqErr error) *models.Notice {
	const op = "Lifecycle.settle"

	log := l.log.With(
		slog.String("op", op),
	)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed || generation != l.generation {
		log.Debug("dropping late response")
		if res != nil {
			if err := res.Release(); err != nil {
				log.Error("failed to release late media", sl.Err(err))
			}
		}
		return nil
	}

	if reqErr != nil {
		log.Error("clip request failed", sl.Err(reqErr))

		msg := service.ErrNetwork.Error()
		var um userMessager
		if errors.As(reqErr, &um) && um.UserMessage() != "" {
			msg = msg + ": " + um.UserMessage()
		}

		notice := l.failLocked(models.KindNetwork, msg)
		return &notice
	}

	l.releaseLocked()
	l.result = res
	l.state = models.StateSucceeded

	log.Info("clip is ready", slog.String("mediaID", res.Media().ID))

	return &models.Notice{Level: models.NoticeSuccess, Text: "Clip is ready"}
}

// Wait blocks until no request is in flight.
func (l *Lifecycle) Wait(ctx context.Context) (models.Snapshot, error) {
	l.mutex.Lock()
	settled := l.settled
	l.mutex.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return l.Snapshot(), ctx.Err()
		}
	}

	return l.Snapshot(), nil
}

// Snapshot returns current state.
func (l *Lifecycle) Snapshot() models.Snapshot {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.snapshotLocked()
}

// OpenMedia opens the clip for reading.
// The caller must close returned reader.
func (l *Lifecycle) OpenMedia() (io.ReadCloser, models.ClipMedia, error) {
	const op = "Lifecycle.OpenMedia"

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return nil, models.ClipMedia{}, fmt.Errorf("%s: %w", op, service.ErrLifecycleClosed)
	}
	if l.state != models.StateSucceeded || l.result == nil {
		return nil, models.ClipMedia{}, fmt.Errorf("%s: %w", op, service.ErrResultNotFound)
	}

	r, err := l.result.Open()
	if err != nil {
		return nil, models.ClipMedia{}, fmt.Errorf("%s: %w", op, err)
	}

	return r, l.result.Media(), nil
}

// Close cancels in-flight request and releases the clip.
// Responses arriving after Close are dropped.
func (l *Lifecycle) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	l.cancel()
	l.releaseLocked()

	l.log.Debug("clip view closed")
}

func (l *Lifecycle) failLocked(kind models.ErrorKind, msg string) models.Notice {
	l.state = models.StateFailed
	l.clipErr = &models.ClipError{Kind: kind, Message: msg}

	return models.Notice{Level: models.NoticeError, Text: msg}
}

func (l *Lifecycle) releaseLocked() {
	if l.result == nil {
		return
	}

	if err := l.result.Release(); err != nil {
		l.log.Error("failed to release media", sl.Err(err))
	}
	l.result = nil
}

func (l *Lifecycle) snapshotLocked() models.Snapshot {
	s := models.Snapshot{
		VideoID: l.videoID,
		State:   l.state,
	}

	if l.rng != nil {
		rng := *l.rng
		s.Range = &rng
	}
	if l.result != nil {
		media := l.result.Media()
		s.Media = &media
	}
	if l.clipErr != nil {
		clipErr := *l.clipErr
		s.Error = &clipErr
	}

	return s
}
