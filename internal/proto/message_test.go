package proto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

func TestEncodePersistedMessage(t *testing.T) {
	created := time.Date(2024, 3, 9, 10, 30, 15, 123456000, time.UTC)
	wire := Encode(store.Message{
		ID:        "65f0c0ffee",
		Room:      "lobby",
		Sender:    "alice",
		Text:      "  spaced  ",
		CreatedAt: created,
	})

	if wire.ID == nil || *wire.ID != "65f0c0ffee" {
		t.Fatalf("unexpected id: %v", wire.ID)
	}
	if wire.Room != "lobby" || wire.Sender != "alice" || wire.Text != "  spaced  " {
		t.Fatalf("fields not copied verbatim: %+v", wire)
	}
	if wire.CreatedAt != "2024-03-09T10:30:15.123456+00:00" {
		t.Fatalf("unexpected created_at: %s", wire.CreatedAt)
	}

	parsed, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		t.Fatalf("created_at not parseable: %v", err)
	}
	if !parsed.Equal(created) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, created)
	}
}

func TestEncodeConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*3600)
	wire := Encode(store.Message{ID: "1", CreatedAt: time.Date(2024, 1, 1, 3, 0, 0, 0, zone)})
	if wire.CreatedAt != "2024-01-01T00:00:00+00:00" {
		t.Fatalf("expected UTC rendering, got %s", wire.CreatedAt)
	}
}

func TestEncodeMissingFields(t *testing.T) {
	wire := Encode(store.Message{Room: "lobby", Text: "legacy"})
	if wire.CreatedAt != "" {
		t.Fatalf("expected empty created_at, got %q", wire.CreatedAt)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id, present := raw["id"]
	if !present || id != nil {
		t.Fatalf("expected explicit null id, got %v (present=%v)", id, present)
	}
	for _, key := range []string{"room", "sender", "text", "created_at"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
}

func TestEncodeAllNeverNil(t *testing.T) {
	out := EncodeAll(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", out)
	}
	data, _ := json.Marshal(out)
	if string(data) != "[]" {
		t.Fatalf("expected [] got %s", data)
	}
}

func TestInboundSenderOr(t *testing.T) {
	tests := []struct {
		name     string
		in       Inbound
		fallback string
		want     string
	}{
		{name: "explicit sender", in: Inbound{Sender: "alice"}, fallback: "bob", want: "alice"},
		{name: "fallback identity", in: Inbound{}, fallback: "bob", want: "bob"},
		{name: "anonymous", in: Inbound{}, want: AnonymousSender},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.SenderOr(tt.fallback); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
