package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
	"github.com/GintGld/clipper/internal/service/clip"
)

// Registry keeps clip views of every visitor session.
type Registry struct {
	log         *slog.Logger
	factory     LifecycleFactory
	ttl         time.Duration
	maxSessions int
	maxViews    int
	maxNotices  int

	sessions map[string]*session
	mutex    *sync.Mutex
}

type LifecycleFactory interface {
	New(videoID models.VideoID, notifier clip.Notifier) *clip.Lifecycle
}

type session struct {
	views   map[models.VideoID]*clip.Lifecycle
	order   []models.VideoID
	notices []models.Notice

	timer      *time.Timer
	generation uint64
}

func New(
	log *slog.Logger,
	factory LifecycleFactory,
	ttl time.Duration,
	maxSessions int,
	maxViews int,
	maxNotices int,
) *Registry {
	return &Registry{
		log:         log,
		factory:     factory,
		ttl:         ttl,
		maxSessions: maxSessions,
		maxViews:    maxViews,
		maxNotices:  maxNotices,

		sessions: make(map[string]*session),
		mutex:    &sync.Mutex{},
	}
}

// Register starts new session.
// Fails with ErrTooManySessions when the registry is full.
func (r *Registry) Register() (string, error) {
	const op = "Registry.Register"

	r.mutex.Lock()
	defer r.mutex.Unlock()

	sid, err := r.registerLocked(uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return sid, nil
}

// Restore registers session with known id,
// e.g. taken from a still valid token after restart.
// Existing session is left as is.
func (r *Registry) Restore(sid string) error {
	const op = "Registry.Restore"

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.sessions[sid]; ok {
		return nil
	}

	if _, err := r.registerLocked(sid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Registry) registerLocked(sid string) (string, error) {
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.log.Warn("session limit reached", slog.Int("limit", r.maxSessions))
		return "", service.ErrTooManySessions
	}

	s := &session{
		views: make(map[models.VideoID]*clip.Lifecycle),
	}
	r.sessions[sid] = s
	r.resetTimeoutLocked(sid, s)

	r.log.Debug("session registered", slog.String("sid", sid))

	return sid, nil
}

// Touch prolongs session. Returns false if session is unknown.
func (r *Registry) Touch(sid string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	r.resetTimeoutLocked(sid, s)

	return true
}

func (r *Registry) resetTimeoutLocked(sid string, s *session) {
	if s.timer != nil {
		s.timer.Stop()
	}

	s.generation++
	generation := s.generation
	s.timer = time.AfterFunc(r.ttl, func() { r.expire(sid, s, generation) })
}

func (r *Registry) expire(sid string, expired *session, generation uint64) {
	r.mutex.Lock()
	s, ok := r.sessions[sid]
	if !ok || s != expired || s.generation != generation {
		r.mutex.Unlock()
		return
	}
	delete(r.sessions, sid)
	r.mutex.Unlock()

	r.log.Debug("session expired", slog.String("sid", sid))

	closeViews(s)
}

// View returns clip view of the video, creating it if needed.
// The least recently used view is closed when
// the session holds too many of them.
func (r *Registry) View(sid string, videoID models.VideoID) (*clip.Lifecycle, error) {
	const op = "Registry.View"

	var evicted *clip.Lifecycle
	defer func() {
		if evicted != nil {
			evicted.Close()
		}
	}()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}

	if l, ok := s.views[videoID]; ok {
		s.bump(videoID)
		return l, nil
	}

	l := r.factory.New(videoID, clip.NotifyFunc(func(n models.Notice) {
		r.Notify(sid, n)
	}))
	s.views[videoID] = l
	s.order = append(s.order, videoID)

	if r.maxViews > 0 && len(s.order) > r.maxViews {
		oldest := s.order[0]
		s.order = s.order[1:]
		evicted = s.views[oldest]
		delete(s.views, oldest)

		r.log.Debug("clip view evicted",
			slog.String("sid", sid),
			slog.String("videoID", string(oldest)),
		)
	}

	return l, nil
}

// Find returns existing clip view.
func (r *Registry) Find(sid string, videoID models.VideoID) (*clip.Lifecycle, error) {
	const op = "Registry.Find"

	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}

	l, ok := s.views[videoID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, service.ErrResultNotFound)
	}

	return l, nil
}

// Discard closes clip view of the video.
func (r *Registry) Discard(sid string, videoID models.VideoID) error {
	const op = "Registry.Discard"

	r.mutex.Lock()

	s, ok := r.sessions[sid]
	if !ok {
		r.mutex.Unlock()
		return fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}

	l, ok := s.views[videoID]
	if ok {
		delete(s.views, videoID)
		s.remove(videoID)
	}

	r.mutex.Unlock()

	if l != nil {
		l.Close()
	}

	return nil
}

// Notify queues a notice for the session.
// The oldest notices are dropped on overflow.
func (r *Registry) Notify(sid string, n models.Notice) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return
	}

	s.notices = append(s.notices, n)
	if r.maxNotices > 0 && len(s.notices) > r.maxNotices {
		s.notices = s.notices[len(s.notices)-r.maxNotices:]
	}
}

// Notices returns and clears queued notices.
func (r *Registry) Notices(sid string) []models.Notice {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sid]
	if !ok || len(s.notices) == 0 {
		return []models.Notice{}
	}

	res := s.notices
	s.notices = nil

	return res
}

// Unregister closes all views of the session.
func (r *Registry) Unregister(sid string) {
	r.mutex.Lock()
	s, ok := r.sessions[sid]
	if ok {
		delete(r.sessions, sid)
		s.timer.Stop()
	}
	r.mutex.Unlock()

	if ok {
		closeViews(s)
	}
}

// Stop closes every session.
func (r *Registry) Stop() {
	r.mutex.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mutex.Unlock()

	for _, s := range sessions {
		s.timer.Stop()
		closeViews(s)
	}

	r.log.Info("sessions closed", slog.Int("count", len(sessions)))
}

func closeViews(s *session) {
	for _, l := range s.views {
		l.Close()
	}
}

func (s *session) bump(videoID models.VideoID) {
	s.remove(videoID)
	s.order = append(s.order, videoID)
}

func (s *session) remove(videoID models.VideoID) {
	for i, id := range s.order {
		if id == videoID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
