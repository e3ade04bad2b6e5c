package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"outcomes/internal/modules/outcome/domain"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=FULL;
CREATE TABLE IF NOT EXISTS outcome_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  session TEXT NOT NULL,
  notification_ids TEXT NOT NULL,
  params TEXT NOT NULL,
  timestamp INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create outcome_events table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, event domain.Event) error {
	const stmt = `INSERT INTO outcome_events (name, session, notification_ids, params, timestamp) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt, event.Name, string(event.Session), event.EncodedIDs(), event.Params, event.Timestamp); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, session, notification_ids, params, timestamp FROM outcome_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		var (
			name, session, rawIDs, params string
			timestamp                     int64
		)
		if err := rows.Scan(&name, &session, &rawIDs, &params, &timestamp); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		ids := []string{}
		if err := json.Unmarshal([]byte(rawIDs), &ids); err != nil {
			return nil, fmt.Errorf("decode outcome ids: %w", err)
		}
		ev, err := domain.RestoreEvent(name, domain.SessionType(session), ids, params, timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// Remove deletes the oldest row structurally equal to event.
func (s *SQLiteStore) Remove(ctx context.Context, event domain.Event) error {
	const stmt = `
DELETE FROM outcome_events WHERE id IN (
  SELECT id FROM outcome_events
  WHERE name = ? AND session = ? AND notification_ids = ? AND params = ?
  ORDER BY id LIMIT 1
)`
	if _, err := s.db.ExecContext(ctx, stmt, event.Name, string(event.Session), event.EncodedIDs(), event.Params); err != nil {
		return fmt.Errorf("delete outcome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outcome_events`); err != nil {
		return fmt.Errorf("clear outcomes: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
