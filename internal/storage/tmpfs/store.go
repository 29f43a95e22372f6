package tmpfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/storage"
)

// Store keeps clips in a temporary directory.
type Store struct {
	log *slog.Logger
	dir string
}

func New(log *slog.Logger, dir string) (*Store, error) {
	const op = "tmpfs.New"

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{
		log: log,
		dir: dir,
	}, nil
}

// Create saves data to a new file.
func (s *Store) Create(ctx context.Context, data []byte) (*Handle, error) {
	const op = "tmpfs.Create"

	log := s.log.With(
		slog.String("op", op),
	)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrContextCancelled)
	}

	mime := mimetype.Detect(data)
	id := strings.Split(uuid.NewString(), "-")[0]

	media := models.ClipMedia{
		ID:        id,
		MIME:      mime.String(),
		Extension: mime.Extension(),
		Size:      int64(len(data)),
	}

	path := filepath.Join(s.dir, media.FileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error("failed to save clip", slog.String("file", path), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("saved clip", slog.String("file", path), slog.String("mime", media.MIME))

	return &Handle{
		log:   s.log,
		path:  path,
		media: media,
	}, nil
}

// Handle owns one saved clip.
type Handle struct {
	log   *slog.Logger
	path  string
	media models.ClipMedia

	mutex    sync.Mutex
	released bool
}

func (h *Handle) Media() models.ClipMedia {
	return h.media
}

// Open opens the clip for reading.
func (h *Handle) Open() (io.ReadCloser, error) {
	const op = "Handle.Open"

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.released {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrHandleReleased)
	}

	f, err := os.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return f, nil
}

// Release removes the file. Repeated calls do nothing.
func (h *Handle) Release() error {
	const op = "Handle.Release"

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.released {
		return nil
	}
	h.released = true

	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.Debug("released clip", slog.String("file", h.path))

	return nil
}
