package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Log is the durable append-only backing table for one session.
type Log interface {
	// Initialize creates the backing table if absent. Idempotent.
	Initialize() error
	// LoadAll returns every persisted message in ascending insertion order.
	LoadAll() ([]Message, error)
	// Append durably persists one message at the next insertion position.
	// It returns only after the row is recorded.
	Append(msg *Message) error
}

// Store owns the shared SQLite database and hands out per-session logs.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenStore opens (or creates) the comments database at dbPath.
func OpenStore(dbPath string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps concurrent room writers from stalling readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("Comment store opened")

	return &Store{db: db, logger: logger}, nil
}

// ForKey returns the log handle for one sanitized session key.
func (s *Store) ForKey(key string) Log {
	return &tableLog{
		db:     s.db,
		table:  "comments_" + key,
		logger: s.logger.With().Str("session", key).Logger(),
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableLog persists one session's messages in its own table. The key is
// already sanitized to [A-Za-z0-9_-], so quoting the identifier is enough.
type tableLog struct {
	db     *sql.DB
	table  string
	logger zerolog.Logger
}

func (t *tableLog) quoted() string {
	return `"` + t.table + `"`
}

func (t *tableLog) Initialize() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL DEFAULT '',
			real_name TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			time TEXT NOT NULL,
			stamp TEXT
		)`, t.quoted())

	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}

	// Stores written before stamps existed lack the column; add it in place.
	if _, err := t.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN stamp TEXT`, t.quoted())); err != nil {
		if !strings.Contains(err.Error(), "duplicate column name") {
			return fmt.Errorf("failed to migrate comments table: %w", err)
		}
	}

	return nil
}

func (t *tableLog) LoadAll() ([]Message, error) {
	rows, err := t.db.Query(fmt.Sprintf(
		`SELECT name, real_name, text, time, stamp FROM %s ORDER BY id ASC`, t.quoted()))
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var stamp sql.NullString
		if err := rows.Scan(&msg.Name, &msg.RealName, &msg.Text, &msg.Time, &stamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		if stamp.Valid {
			msg.Stamp = stamp.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comment rows: %w", err)
	}

	t.logger.Debug().Int("messages", len(messages)).Msg("Session history loaded")

	return messages, nil
}

func (t *tableLog) Append(msg *Message) error {
	var stamp interface{}
	if msg.Stamp != "" {
		stamp = msg.Stamp
	}

	_, err := t.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (name, real_name, text, time, stamp) VALUES (?, ?, ?, ?, ?)`, t.quoted()),
		msg.Name, msg.RealName, msg.Text, msg.Time, stamp)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	return nil
}
