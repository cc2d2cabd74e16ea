package core

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

func mustEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("expected event not received")
		return Event{}
	}
}

func mustNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

// fakeStore is an in-memory store.MessageStore that can be switched offline.
type fakeStore struct {
	mu       sync.Mutex
	messages []store.Message
	down     bool
	persists int
}

func (f *fakeStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeStore) Persist(_ context.Context, room, sender, text string) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.persists++
	if f.down {
		return store.Message{}, store.Unavailable("insert message", context.DeadlineExceeded)
	}
	msg := store.Message{
		ID:        strconv.Itoa(len(f.messages) + 1),
		Room:      room,
		Sender:    sender,
		Text:      text,
		CreatedAt: store.Now(),
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeStore) History(_ context.Context, room string, limit int) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return nil, store.Unavailable("query messages", context.DeadlineExceeded)
	}
	out := make([]store.Message, 0)
	for _, msg := range f.messages {
		if msg.Room == room && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return store.Unavailable("ping", context.DeadlineExceeded)
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }
