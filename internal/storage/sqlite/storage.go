package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/storage"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Stop() error {
	return s.db.Close()
}

// Theme returns theme saved for the session.
func (s *Storage) Theme(ctx context.Context, sessionID string) (models.Theme, error) {
	const op = "storage.sqlite.Theme"

	stmt, err := s.db.Prepare("SELECT theme FROM preferences WHERE session_id = ?")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var theme string
	err = stmt.QueryRowContext(ctx, sessionID).Scan(&theme)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrPreferenceNotFound)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", storage.ErrContextCancelled
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return models.Theme(theme), nil
}

// SaveTheme saves or replaces theme of the session.
func (s *Storage) SaveTheme(ctx context.Context, sessionID string, theme models.Theme) error {
	const op = "storage.sqlite.SaveTheme"

	stmt, err := s.db.Prepare(`
		INSERT INTO preferences(session_id, theme, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET theme = excluded.theme, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, sessionID, string(theme), time.Now().Unix()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return storage.ErrContextCancelled
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteStalePreferences removes preferences
// not updated since given time.
func (s *Storage) DeleteStalePreferences(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.sqlite.DeleteStalePreferences"

	stmt, err := s.db.Prepare("DELETE FROM preferences WHERE updated_at < ?")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, before.Unix())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, storage.ErrContextCancelled
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	affectedRows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return affectedRows, nil
}
