package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desktopathlete/athlete/pkg/logger"
	_ "modernc.org/sqlite"
)

// Completion is one workout video a visitor reported finishing
type Completion struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"-"`
	VideoURL        string    `json:"video_url"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Stats summarises a session's completions
type Stats struct {
	Count        int `json:"count"`
	TotalSeconds int `json:"total_seconds"`
}

type Store interface {
	SaveCompletion(ctx context.Context, c *Completion) error
	ListCompletions(ctx context.Context, sessionID string, limit int) ([]*Completion, error)
	Stats(ctx context.Context, sessionID string) (Stats, error)
	Close() error
}

var ErrInvalidCompletion = errors.New("invalid workout completion")

// SQLiteStore keeps completions in a single SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating parent directories and
// the schema when missing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info(logger.WORKOUT, "Workout store initialised at %s", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS completions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			video_url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_completions_session_completed
			ON completions(session_id, completed_at);
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCompletion(ctx context.Context, c *Completion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (id, session_id, video_url, title, duration_seconds, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.SessionID,
		c.VideoURL,
		c.Title,
		c.DurationSeconds,
		c.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting completion: %w", err)
	}
	return nil
}

// ListCompletions returns a session's most recent completions, newest first.
// A limit of 0 or less returns all of them.
func (s *SQLiteStore) ListCompletions(ctx context.Context, sessionID string, limit int) ([]*Completion, error) {
	query := `
		SELECT id, session_id, video_url, title, duration_seconds, completed_at
		FROM completions
		WHERE session_id = ?
		ORDER BY completed_at DESC, id DESC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var completions []*Completion
	for rows.Next() {
		var c Completion
		var completedAt string
		if err := rows.Scan(&c.ID, &c.SessionID, &c.VideoURL, &c.Title, &c.DurationSeconds, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		if c.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		completions = append(completions, &c)
	}
	return completions, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context, sessionID string) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0)
		FROM completions
		WHERE session_id = ?
	`, sessionID).Scan(&stats.Count, &stats.TotalSeconds)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return stats, nil
}
