package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/clipper/internal/client/backend"
	"github.com/GintGld/clipper/internal/lib/logger/slogdiscard"
	"github.com/GintGld/clipper/internal/models"
)

func newClient(url string, maxBytes int64) *backend.Client {
	return backend.New(slogdiscard.NewDiscardLogger(), url, 2*time.Second, maxBytes)
}

func TestDownload(t *testing.T) {
	payload := []byte(gofakeit.LetterN(256))
	clipReq := models.ClipRequest{
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		StartTime: 5,
		EndTime:   35,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/download", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got models.ClipRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, clipReq, got)

		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	data, err := newClient(srv.URL+"/", 0).Download(context.Background(), clipReq)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadStatusError(t *testing.T) {
	testCases := []struct {
		desc    string
		status  int
		body    string
		message string
	}{
		{
			desc:    "json error",
			status:  http.StatusBadRequest,
			body:    `{"error": "end_time must be greater than start_time"}`,
			message: "end_time must be greater than start_time",
		},
		{
			desc:    "json error with details",
			status:  http.StatusInternalServerError,
			body:    `{"error": "Download failed", "details": "exit status 1"}`,
			message: "Download failed",
		},
		{
			desc:   "plain body",
			status: http.StatusBadGateway,
			body:   "bad gateway",
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tC.status)
				_, _ = w.Write([]byte(tC.body))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL, 0).Download(context.Background(), models.ClipRequest{})
			require.ErrorIs(t, err, backend.ErrStatus)

			var statusErr *backend.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tC.status, statusErr.Code)
			assert.Equal(t, tC.message, statusErr.UserMessage())
		})
	}
}

func TestDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 1025))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 1024).Download(context.Background(), models.ClipRequest{})
	require.ErrorIs(t, err, backend.ErrTooLarge)
}

func TestDownloadExactLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	data, err := newClient(srv.URL, 1024).Download(context.Background(), models.ClipRequest{})
	require.NoError(t, err)
	assert.Len(t, data, 1024)
}

func TestDownloadCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(srv.URL, 0).Download(ctx, models.ClipRequest{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDownloadUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url, 0).Download(context.Background(), models.ClipRequest{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrStatus)
}
