package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/config"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

func sqliteConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Store.Driver = config.StoreSQLite
	cfg.Store.SQLitePath = t.TempDir() + "/relay.db"
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Store.Driver = "cassandra"

	if _, err := New(&cfg, &logger); err == nil {
		t.Fatalf("expected error for unknown store driver")
	}
}

func TestAppServesHistory(t *testing.T) {
	logger := zerolog.Nop()
	cfg := sqliteConfig(t)

	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat/messages/lobby/", "application/json", strings.NewReader(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/chat/messages/lobby/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var history []proto.WireMessage
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(history) != 1 || history[0].Text != "hello" || history[0].Sender != proto.AnonymousSender {
		t.Fatalf("unexpected history %+v", history)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop")
	}
}

func TestNewMongoDoesNotDial(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Store.MongoURI = "mongodb://127.0.0.1:1/"
	cfg.Store.Timeout = 200 * time.Millisecond

	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("startup must not depend on mongo being reachable: %v", err)
	}

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/chat/messages/lobby/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with mongo down, got %d", resp.StatusCode)
	}
	application.cleanup()
}

func TestFabricOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Broadcast.NATSURL = "nats://relay:4222"
	cfg.Broadcast.NATSSubject = "rooms"
	cfg.Broadcast.NATSTimeout = 750 * time.Millisecond
	cfg.Broadcast.RedisAddr = "redis:6379"
	cfg.Broadcast.RedisDB = 2

	n := natsOptions(&cfg)
	if n.URL != "nats://relay:4222" || n.Subject != "rooms" || n.Timeout != 750*time.Millisecond {
		t.Fatalf("unexpected nats options %+v", n)
	}
	r := redisOptions(&cfg)
	if r.Addr != "redis:6379" || r.DB != 2 || r.Channel != cfg.Broadcast.RedisChannel {
		t.Fatalf("unexpected redis options %+v", r)
	}
}

func TestNewNATSToleratesUnreachableServer(t *testing.T) {
	logger := zerolog.Nop()
	cfg := sqliteConfig(t)
	cfg.Broadcast.Driver = config.BroadcastNATS
	cfg.Broadcast.NATSURL = "nats://127.0.0.1:1"
	cfg.Broadcast.NATSTimeout = 100 * time.Millisecond

	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("new app with nats down: %v", err)
	}
	if application.fabric == nil {
		t.Fatalf("expected nats fabric to be wired")
	}
	application.cleanup()
}
