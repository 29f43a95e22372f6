package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GintGld/clipper/internal/lib/logger/sl"
	"github.com/GintGld/clipper/internal/models"
)

const downloadPath = "/api/download"

var (
	ErrStatus   = errors.New("unexpected status")
	ErrTooLarge = errors.New("response body too large")
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Code    int
	Message string
	Details string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %d", e.Code)
	}
	return fmt.Sprintf("backend: %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// UserMessage returns the message reported by the backend.
func (e *StatusError) UserMessage() string {
	return e.Message
}

// Client calls the clipping backend.
type Client struct {
	log      *slog.Logger
	client   *http.Client
	baseURL  string
	maxBytes int64
}

func New(
	log *slog.Logger,
	baseURL string,
	timeout time.Duration,
	maxBytes int64,
) *Client {
	return &Client{
		log:      log,
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}
}

// Download asks backend to cut the clip
// and returns media bytes.
func (c *Client) Download(ctx context.Context, clipReq models.ClipRequest) ([]byte, error) {
	const op = "backend.Download"

	log := c.log.With(
		slog.String("op", op),
		slog.String("url", clipReq.URL),
		slog.Int64("start", clipReq.StartTime),
		slog.Int64("end", clipReq.EndTime),
	)

	body, err := json.Marshal(clipReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+downloadPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("sending clip request")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("clip request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := parseStatusError(resp)
		log.Warn("backend rejected clip request", slog.Int("status", resp.StatusCode), sl.Err(statusErr))
		return nil, fmt.Errorf("%s: %w", op, statusErr)
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		log.Error("failed to read clip", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		log.Warn("clip too large", slog.Int64("limit", c.maxBytes))
		return nil, fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	log.Debug("clip received", slog.Int("size", len(data)))

	return data, nil
}

// parseStatusError reads {"error": ..., "details": ...}
// body if backend sent one.
func parseStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{Code: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return statusErr
	}

	var form struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &form); err == nil {
		statusErr.Message = form.Error
		statusErr.Details = form.Details
	}

	return statusErr
}
