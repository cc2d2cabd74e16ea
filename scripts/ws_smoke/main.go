package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run sends one message over a room connection, waits for the echo and
// checks that the history endpoint returns it.
func run() error {
	base := flag.String("addr", "http://localhost:8000", "relay base address")
	user := flag.String("user", "tester", "sender name")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	httpBase := strings.TrimRight(*base, "/")
	wsURL := strings.Replace(httpBase, "http", "ws", 1) + "/ws/chat/" + url.PathEscape(*room) + "/"

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Text: *text, Sender: *user}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var echo struct {
		proto.WireMessage
		Detail string `json:"detail"`
	}
	if err := wsjson.Read(ctx, conn, &echo); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if echo.Detail != "" {
		return fmt.Errorf("relay refused message: %s", echo.Detail)
	}
	if echo.ID == nil {
		return fmt.Errorf("echo has no id: %+v", echo.WireMessage)
	}
	fmt.Printf("echo: id=%s sender=%s text=%q created_at=%s\n", *echo.ID, echo.Sender, echo.Text, echo.CreatedAt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpBase+"/chat/messages/"+url.PathEscape(*room)+"/", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history: status %d", resp.StatusCode)
	}

	var history []proto.WireMessage
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	for _, msg := range history {
		if msg.ID != nil && *msg.ID == *echo.ID {
			fmt.Printf("history: %d messages, echo found\n", len(history))
			return nil
		}
	}
	// History is capped to the oldest messages, so a busy room may not list it.
	fmt.Printf("history: %d messages, echo not in the returned window\n", len(history))
	return nil
}
