package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.URI != DefaultURI || opts.Database != DefaultDatabase || opts.Collection != DefaultCollection {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.Timeout != DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", opts.Timeout)
	}
}

func TestDocumentToMessage(t *testing.T) {
	id := primitive.NewObjectID()
	local := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	msg := document{ID: id, Room: "lobby", Sender: "alice", Text: "hi", CreatedAt: local}.toMessage()
	if msg.ID != id.Hex() {
		t.Fatalf("expected id %s, got %s", id.Hex(), msg.ID)
	}
	if msg.CreatedAt.Location() != time.UTC || !msg.CreatedAt.Equal(local) {
		t.Fatalf("expected UTC instant, got %v", msg.CreatedAt)
	}

	legacy := document{Room: "lobby", Text: "old"}.toMessage()
	if legacy.ID != "" || !legacy.CreatedAt.IsZero() {
		t.Fatalf("expected empty id and zero time, got %+v", legacy)
	}
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	s := New(Options{URI: "mongodb://127.0.0.1:1/", Timeout: 200 * time.Millisecond})
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Persist(ctx, "lobby", "alice", "hi"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Persist, got %v", err)
	}
	if _, err := s.History(ctx, "lobby", 10); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from History, got %v", err)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := New(Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("close without client: %v", err)
	}
	if _, err := s.Persist(context.Background(), "lobby", "alice", "hi"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}

// TestMongoRoundTrip runs against a real server when RELAY_TEST_MONGO_URI is set.
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("RELAY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RELAY_TEST_MONGO_URI not set")
	}

	s := New(Options{
		URI:        uri,
		Database:   "relay_test",
		Collection: fmt.Sprintf("messages_%d", time.Now().UnixNano()),
		Timeout:    5 * time.Second,
	})
	defer s.Close()

	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	for i := range 3 {
		if _, err := s.Persist(ctx, "lobby", "alice", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}
	if _, err := s.Persist(ctx, "other", "bob", "elsewhere"); err != nil {
		t.Fatalf("persist other: %v", err)
	}

	messages, err := s.History(ctx, "lobby", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(messages) != 2 || messages[0].Text != "m0" || messages[1].Text != "m1" {
		t.Fatalf("unexpected history: %+v", messages)
	}
	for _, msg := range messages {
		if msg.ID == "" || msg.Room != "lobby" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
}
