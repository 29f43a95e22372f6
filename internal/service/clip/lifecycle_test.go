package clip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/clipper/internal/lib/logger/slogdiscard"
	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
)

const testVideoID models.VideoID = "dQw4w9WgXcQ"

type fakeBackend struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error

	mutex sync.Mutex
	reqs  []models.ClipRequest
}

func (b *fakeBackend) Download(ctx context.Context, req models.ClipRequest) ([]byte, error) {
	b.calls.Add(1)

	b.mutex.Lock()
	b.reqs = append(b.reqs, req)
	b.mutex.Unlock()

	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if b.err != nil {
		return nil, b.err
	}

	return []byte(gofakeit.LetterN(32)), nil
}

type fakeResource struct {
	id       string
	data     []byte
	releases atomic.Int32
}

func (r *fakeResource) Media() models.ClipMedia {
	return models.ClipMedia{ID: r.id, MIME: "video/mp4", Extension: ".mp4", Size: int64(len(r.data))}
}

func (r *fakeResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.data)), nil
}

func (r *fakeResource) Release() error {
	r.releases.Add(1)
	return nil
}

type fakeStore struct {
	mutex   sync.Mutex
	created []*fakeResource
	err     error
}

func (s *fakeStore) Create(_ context.Context, data []byte) (Resource, error) {
	if s.err != nil {
		return nil, s.err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	r := &fakeResource{id: gofakeit.UUID(), data: data}
	s.created = append(s.created, r)

	return r, nil
}

func (s *fakeStore) all() []*fakeResource {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*fakeResource(nil), s.created...)
}

type noticeSink struct {
	mutex   sync.Mutex
	notices []models.Notice
}

func (s *noticeSink) Notify(n models.Notice) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.notices = append(s.notices, n)
}

func (s *noticeSink) levels() []models.NoticeLevel {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res := make([]models.NoticeLevel, 0, len(s.notices))
	for _, n := range s.notices {
		res = append(res, n.Level)
	}
	return res
}

type statusErr struct{}

func (statusErr) Error() string       { return "backend: unexpected status 500" }
func (statusErr) UserMessage() string { return "Download failed" }

func secs(v int64) timecode.Seconds {
	return timecode.Seconds(v)
}

func newTestLifecycle(b Backend, s MediaStore, n Notifier) *Lifecycle {
	return New(
		slogdiscard.NewDiscardLogger(),
		testVideoID,
		b,
		s,
		n,
		Options{MaxDuration: time.Minute, Timeout: 5 * time.Second},
	)
}

func wait(t *testing.T, l *Lifecycle) models.Snapshot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap, err := l.Wait(ctx)
	require.NoError(t, err)

	return snap
}

func TestLifecycleInitialState(t *testing.T) {
	l := newTestLifecycle(&fakeBackend{}, &fakeStore{}, nil)
	defer l.Close()

	snap := l.Snapshot()
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Equal(t, testVideoID, snap.VideoID)
	assert.Nil(t, snap.Media)
	assert.Nil(t, snap.Error)

	// nothing to wait for
	assert.Equal(t, models.StateIdle, wait(t, l).State)
}

func TestLifecycleSuccess(t *testing.T) {
	backend := &fakeBackend{}
	store := &fakeStore{}
	sink := &noticeSink{}
	l := newTestLifecycle(backend, store, sink)
	defer l.Close()

	snap, err := l.Submit(10, 40)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitting, snap.State)
	require.NotNil(t, snap.Range)
	assert.Equal(t, int64(40), snap.Range.EndTotal)

	snap = wait(t, l)
	assert.Equal(t, models.StateSucceeded, snap.State)
	require.NotNil(t, snap.Media)
	assert.Equal(t, store.all()[0].id, snap.Media.ID)

	assert.Equal(t, int32(1), backend.calls.Load())
	require.Len(t, backend.reqs, 1)
	assert.Equal(t, models.ClipRequest{
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		StartTime: 10,
		EndTime:   40,
	}, backend.reqs[0])

	r, media, err := l.OpenMedia()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, store.all()[0].data, data)
	assert.Equal(t, "video/mp4", media.MIME)

	assert.Equal(t, []models.NoticeLevel{models.NoticeInfo, models.NoticeSuccess}, sink.levels())
}

func TestLifecycleValidationFailure(t *testing.T) {
	testCases := []struct {
		desc       string
		start, end int64
		kind       models.ErrorKind
		err        error
	}{
		{desc: "end before start", start: 10, end: 5, kind: models.KindEndNotAfterStart, err: service.ErrEndNotAfterStart},
		{desc: "too long", start: 0, end: 61, kind: models.KindDurationExceeded, err: service.ErrDurationExceeded},
		{desc: "negative end", start: 0, end: -1, kind: models.KindMissingOrInvalidEnd, err: service.ErrMissingOrInvalidEnd},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			backend := &fakeBackend{}
			sink := &noticeSink{}
			l := newTestLifecycle(backend, &fakeStore{}, sink)
			defer l.Close()

			snap, err := l.Submit(secs(tC.start), secs(tC.end))
			require.ErrorIs(t, err, tC.err)
			assert.Equal(t, models.StateFailed, snap.State)
			require.NotNil(t, snap.Error)
			assert.Equal(t, tC.kind, snap.Error.Kind)
			assert.Equal(t, int32(0), backend.calls.Load())
			assert.Equal(t, []models.NoticeLevel{models.NoticeError}, sink.levels())

			// no lockout after a failure
			_, err = l.Submit(0, 30)
			require.NoError(t, err)
			assert.Equal(t, models.StateSucceeded, wait(t, l).State)
		})
	}
}

func TestLifecycleSingleInFlight(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	l := newTestLifecycle(backend, &fakeStore{}, nil)
	defer l.Close()

	_, err := l.Submit(0, 10)
	require.NoError(t, err)

	snap, err := l.Submit(0, 20)
	require.ErrorIs(t, err, service.ErrSubmitInProgress)
	assert.Equal(t, models.StateSubmitting, snap.State)

	// invalid input is rejected too, no validation while in flight
	_, err = l.Submit(20, 0)
	require.ErrorIs(t, err, service.ErrSubmitInProgress)

	close(backend.gate)
	assert.Equal(t, models.StateSucceeded, wait(t, l).State)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestLifecycleConcurrentSubmit(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	l := newTestLifecycle(backend, &fakeStore{}, nil)
	defer l.Close()

	const n = 16

	var wg sync.WaitGroup
	var accepted atomic.Int32

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Submit(0, 30); err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, service.ErrSubmitInProgress)
			}
		}()
	}
	wg.Wait()

	close(backend.gate)
	wait(t, l)

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestLifecycleReleasesPreviousResult(t *testing.T) {
	store := &fakeStore{}
	l := newTestLifecycle(&fakeBackend{}, store, nil)

	_, err := l.Submit(0, 10)
	require.NoError(t, err)
	wait(t, l)

	_, err = l.Submit(10, 20)
	require.NoError(t, err)
	snap := wait(t, l)
	assert.Equal(t, models.StateSucceeded, snap.State)

	created := store.all()
	require.Len(t, created, 2)
	assert.Equal(t, int32(1), created[0].releases.Load())
	assert.Equal(t, int32(0), created[1].releases.Load())
	assert.Equal(t, created[1].id, snap.Media.ID)

	l.Close()
	l.Close()

	assert.Equal(t, int32(1), created[0].releases.Load())
	assert.Equal(t, int32(1), created[1].releases.Load())
}

func TestLifecycleInvalidResubmitReleasesResult(t *testing.T) {
	store := &fakeStore{}
	l := newTestLifecycle(&fakeBackend{}, store, nil)
	defer l.Close()

	_, err := l.Submit(0, 10)
	require.NoError(t, err)
	wait(t, l)

	_, err = l.Submit(10, 5)
	require.ErrorIs(t, err, service.ErrEndNotAfterStart)

	created := store.all()
	require.Len(t, created, 1)
	assert.Equal(t, int32(1), created[0].releases.Load())
	assert.Nil(t, l.Snapshot().Media)

	_, _, err = l.OpenMedia()
	require.ErrorIs(t, err, service.ErrResultNotFound)
}

func TestLifecycleBackendFailure(t *testing.T) {
	testCases := []struct {
		desc    string
		err     error
		message string
	}{
		{desc: "transport", err: errors.New("connection refused"), message: "failed to create clip"},
		{desc: "status with message", err: statusErr{}, message: "failed to create clip: Download failed"},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			sink := &noticeSink{}
			l := newTestLifecycle(&fakeBackend{err: tC.err}, &fakeStore{}, sink)
			defer l.Close()

			_, err := l.Submit(0, 10)
			require.NoError(t, err)

			snap := wait(t, l)
			assert.Equal(t, models.StateFailed, snap.State)
			require.NotNil(t, snap.Error)
			assert.Equal(t, models.KindNetwork, snap.Error.Kind)
			assert.Equal(t, tC.message, snap.Error.Message)
			assert.Equal(t, []models.NoticeLevel{models.NoticeInfo, models.NoticeError}, sink.levels())

			_, _, err = l.OpenMedia()
			require.ErrorIs(t, err, service.ErrResultNotFound)
		})
	}
}

func TestLifecycleStoreFailure(t *testing.T) {
	l := newTestLifecycle(&fakeBackend{}, &fakeStore{err: errors.New("disk full")}, nil)
	defer l.Close()

	_, err := l.Submit(0, 10)
	require.NoError(t, err)

	snap := wait(t, l)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, models.KindNetwork, snap.Error.Kind)
}

func TestLifecycleCloseDropsLateResponse(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	store := &fakeStore{}
	sink := &noticeSink{}
	l := newTestLifecycle(backend, store, sink)

	_, err := l.Submit(0, 10)
	require.NoError(t, err)

	l.Close()
	wait(t, l)

	assert.Empty(t, store.all())
	assert.Equal(t, []models.NoticeLevel{models.NoticeInfo}, sink.levels())

	_, err = l.Submit(0, 10)
	require.ErrorIs(t, err, service.ErrLifecycleClosed)

	_, _, err = l.OpenMedia()
	require.ErrorIs(t, err, service.ErrLifecycleClosed)
}

func TestLifecycleSettleAfterCloseReleases(t *testing.T) {
	store := &fakeStore{}
	l := newTestLifecycle(&fakeBackend{}, store, nil)

	l.mutex.Lock()
	l.generation = 1
	l.mutex.Unlock()

	l.Close()

	res := &fakeResource{id: "late"}
	assert.Nil(t, l.settle(1, res, nil))
	assert.Equal(t, int32(1), res.releases.Load())
	assert.Nil(t, l.Snapshot().Media)
}

func TestLifecycleWaitContext(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	l := newTestLifecycle(backend, &fakeStore{}, nil)
	defer l.Close()

	_, err := l.Submit(0, 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := l.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.StateSubmitting, snap.State)

	close(backend.gate)
	assert.Equal(t, models.StateSucceeded, wait(t, l).State)
}

func TestFactory(t *testing.T) {
	f := NewFactory(
		slogdiscard.NewDiscardLogger(),
		&fakeBackend{},
		&fakeStore{},
		Options{MaxDuration: 10 * time.Second},
	)

	l := f.New(testVideoID, nil)
	defer l.Close()

	_, err := l.Submit(0, 11)
	require.ErrorIs(t, err, service.ErrDurationExceeded)
}
