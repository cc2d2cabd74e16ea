package store

import (
	"context"
	"errors"
	"time"
)

// DefaultHistoryLimit caps how many messages a history read returns.
const DefaultHistoryLimit = 100

// ErrUnavailable is matched by every failure a MessageStore returns.
var ErrUnavailable = errors.New("store unavailable")

// Message represents a persisted chat message.
type Message struct {
	ID        string // assigned by the store on insert
	Room      string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// UnavailableError reports that the datastore could not serve an operation.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrUnavailable.Error()
	}
	return e.Op + ": " + ErrUnavailable.Error() + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnavailable) match any UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable wraps err as an UnavailableError for operation op.
func Unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Persist stamps created_at, inserts the message and returns it with its ID.
	// It is not idempotent; callers must not retry blindly.
	Persist(ctx context.Context, room, sender, text string) (Message, error)

	// History returns up to limit messages of room, oldest first.
	// Ties on created_at keep insertion order.
	History(ctx context.Context, room string, limit int) ([]Message, error)

	// Ping checks that the datastore is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}

// NormalizeLimit maps non-positive limits to DefaultHistoryLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

// Now returns the timestamp stores assign to new messages.
func Now() time.Time {
	return time.Now().UTC()
}
