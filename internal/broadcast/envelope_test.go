package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

func TestUnmarshalRejectsMissingRoom(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"message":{"text":"hi"}}`)); err == nil {
		t.Fatalf("expected error for envelope without room")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestUnavailableMatchesSentinel(t *testing.T) {
	err := Unavailable("publish", errors.New("connection refused"))
	if !errors.Is(err, core.ErrBroadcastUnavailable) {
		t.Fatalf("expected ErrBroadcastUnavailable, got %v", err)
	}
}

func TestLocalDeliverReachesRoomSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := core.NewHub(nil)
	go hub.Run(ctx)
	local := Local{Hub: hub}

	lobby := core.NewSubscriber("a", 0)
	other := core.NewSubscriber("b", 0)
	if err := local.Subscribe(ctx, "lobby", lobby); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := local.Subscribe(ctx, "other", other); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	id := "42"
	data, err := Marshal("lobby", proto.WireMessage{ID: &id, Room: "lobby", Sender: "alice", Text: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := local.Deliver(ctx, data); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case ev := <-lobby.Events:
		if ev.Message.ID == nil || *ev.Message.ID != "42" || ev.Message.Text != "hi" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("lobby subscriber got nothing")
	}

	select {
	case ev := <-other.Events:
		t.Fatalf("other room received %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
