package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

// timeLayout is fixed width so lexical order of the column equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Schema creates the messages table and its (room, created_at) index.
const Schema = `
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		room       TEXT NOT NULL,
		sender     TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room, created_at);
`

// SQLiteStore implements store.MessageStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Unavailable("ping", err)
	}
	return nil
}

// Persist inserts a message stamped with the current UTC time.
func (s *SQLiteStore) Persist(ctx context.Context, room, sender, text string) (store.Message, error) {
	msg := store.Message{
		Room:      room,
		Sender:    sender,
		Text:      text,
		CreatedAt: store.Now(),
	}

	query := `
		INSERT INTO messages (room, sender, text, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, room, sender, text, msg.CreatedAt.Format(timeLayout))
	if err != nil {
		return store.Message{}, store.Unavailable("insert message", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return store.Message{}, store.Unavailable("get last insert id", err)
	}

	msg.ID = strconv.FormatInt(id, 10)
	return msg, nil
}

// History returns the oldest limit messages of a room in chronological order.
func (s *SQLiteStore) History(ctx context.Context, room string, limit int) ([]store.Message, error) {
	query := `
		SELECT id, room, sender, text, created_at
		FROM messages
		WHERE room = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, room, store.NormalizeLimit(limit))
	if err != nil {
		return nil, store.Unavailable("query messages", err)
	}
	defer rows.Close()

	messages := make([]store.Message, 0)
	for rows.Next() {
		var (
			msg       store.Message
			id        int64
			createdAt string
		)
		if err := rows.Scan(&id, &msg.Room, &msg.Sender, &msg.Text, &createdAt); err != nil {
			return nil, store.Unavailable("scan message", err)
		}
		msg.ID = strconv.FormatInt(id, 10)
		msg.CreatedAt = parseTime(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("iterate messages", err)
	}

	return messages, nil
}

// parseTime accepts the column layout and plain RFC 3339; anything else is
// treated as a missing timestamp.
func parseTime(value string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
