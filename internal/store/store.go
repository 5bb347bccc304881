package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// schema is the message table, created on open.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	topic       TEXT    NOT NULL,
	payload     BLOB,
	qos         INTEGER NOT NULL,
	retained    INTEGER NOT NULL DEFAULT 0,
	duplicate   INTEGER NOT NULL DEFAULT 0,
	received_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_topic ON messages(topic);
CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at);
`

// Store persists delivered messages in SQLite. It implements
// inbound.Consumer: each accepted message becomes one row.
type Store struct {
	db   *sql.DB
	path string
}

// Config contains message store configuration options.
// These map to the store section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Open creates the message store with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Verifies the connection with a ping
//  5. Bootstraps the messages table
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: Store configuration
//
// Returns:
//   - *Store: Ready message store
//   - error: If connection or schema setup fails
func Open(ctx context.Context, cfg Config) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// Build connection string with pragmas
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying store connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating message table: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// Accept inserts a delivered message. A returned error signals delivery
// failure to the adapter, which withholds the broker acknowledgement, so
// a transiently failing store leads to redelivery rather than loss.
func (s *Store) Accept(msg inbound.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (topic, payload, qos, retained, duplicate, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.Topic,
		msg.Payload,
		msg.QoS,
		msg.Retained,
		msg.Duplicate,
		msg.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// Recent returns up to limit messages, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]inbound.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, payload, qos, retained, duplicate, received_at
		 FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []inbound.Message
	for rows.Next() {
		var msg inbound.Message
		var receivedAt string
		if err := rows.Scan(&msg.Topic, &msg.Payload, &msg.QoS, &msg.Retained, &msg.Duplicate, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, receivedAt); parseErr == nil {
			msg.ReceivedAt = ts
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	return out, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
