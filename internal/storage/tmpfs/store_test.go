package tmpfs_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/clipper/internal/lib/logger/slogdiscard"
	"github.com/GintGld/clipper/internal/storage"
	"github.com/GintGld/clipper/internal/storage/tmpfs"
)

// minimal ISO base media header, enough for sniffing
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'm', 'p', '4', '1',
}

func newStore(t *testing.T) (*tmpfs.Store, string) {
	dir := filepath.Join(t.TempDir(), "clips")
	s, err := tmpfs.New(slogdiscard.NewDiscardLogger(), dir)
	require.NoError(t, err)
	return s, dir
}

func TestCreateDetectsMP4(t *testing.T) {
	s, dir := newStore(t)

	h, err := s.Create(context.Background(), mp4Header)
	require.NoError(t, err)

	media := h.Media()
	assert.Equal(t, "video/mp4", media.MIME)
	assert.Equal(t, ".mp4", media.Extension)
	assert.Equal(t, int64(len(mp4Header)), media.Size)
	assert.Len(t, media.ID, 8)
	assert.FileExists(t, filepath.Join(dir, "clip_"+media.ID+".mp4"))

	r, err := h.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, mp4Header, data)
}

func TestCreateUnknownData(t *testing.T) {
	s, _ := newStore(t)

	h, err := s.Create(context.Background(), []byte{0x00, 0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", h.Media().MIME)
}

func TestRelease(t *testing.T) {
	s, dir := newStore(t)

	h, err := s.Create(context.Background(), []byte(gofakeit.Sentence(10)))
	require.NoError(t, err)
	path := filepath.Join(dir, h.Media().FileName())
	require.FileExists(t, path)

	require.NoError(t, h.Release())
	assert.NoFileExists(t, path)

	// second release is a no-op
	require.NoError(t, h.Release())

	_, err = h.Open()
	require.ErrorIs(t, err, storage.ErrHandleReleased)
}

func TestReadAfterReleaseOfOpenFile(t *testing.T) {
	s, _ := newStore(t)
	payload := []byte(gofakeit.Sentence(20))

	h, err := s.Create(context.Background(), payload)
	require.NoError(t, err)

	r, err := h.Open()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, h.Release())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestCreateCancelled(t *testing.T) {
	s, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, []byte("data"))
	require.ErrorIs(t, err, storage.ErrContextCancelled)
}
