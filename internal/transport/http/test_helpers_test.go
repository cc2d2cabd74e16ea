package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/config"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store/sqlite"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	hub *core.Hub
}

// frame decodes anything the server writes to a room connection.
type frame struct {
	proto.WireMessage
	Detail string `json:"detail"`
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.Store.Driver = config.StoreSQLite
	cfg.Store.SQLitePath = ":memory:"
	return cfg
}

func jwtTestConfig() config.Config {
	cfg := testConfig()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.JWTIssuer = "test"
	cfg.Auth.JWTAudience = "test"
	return cfg
}

// createTestStore creates an in-memory SQLite store with the schema applied.
func createTestStore(t *testing.T) store.MessageStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func startTestServer(t *testing.T, st store.MessageStore, cfg config.Config) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	relay := core.NewRelay(st, hub, core.NewPool(4), core.RelayOptions{
		HistoryLimit: cfg.Relay.HistoryLimit,
		StoreTimeout: time.Second,
	}, &logger)

	ts := httptest.NewServer(NewRouter(relay, hub, &cfg, &logger))
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, hub: hub}
}

func (ts *testServer) wsURL(room string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws/chat/" + room + "/"
}

// waitSubscribers blocks until the hub reports n live subscribers.
func (ts *testServer) waitSubscribers(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := ts.hub.Stats(context.Background())
		if err == nil && stats.Subscribers == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers", n)
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// downStore fails every call like an unreachable database.
type downStore struct{}

func (downStore) Persist(context.Context, string, string, string) (store.Message, error) {
	return store.Message{}, store.Unavailable("insert message", context.DeadlineExceeded)
}

func (downStore) History(context.Context, string, int) ([]store.Message, error) {
	return nil, store.Unavailable("query messages", context.DeadlineExceeded)
}

func (downStore) Ping(context.Context) error {
	return store.Unavailable("ping", context.DeadlineExceeded)
}

func (downStore) Close() error { return nil }
