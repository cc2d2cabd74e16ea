// Package broadcast holds what the cluster fan-out fabrics share: the
// envelope carried on the bus and the local delivery side.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

var errNoRoom = errors.New("envelope without room")

// Envelope is one published message on the bus. All rooms share a single
// channel so the bus ordering carries per-room publish order.
type Envelope struct {
	Room    string            `json:"room"`
	Message proto.WireMessage `json:"message"`
}

// Marshal encodes an envelope for room.
func Marshal(room string, msg proto.WireMessage) ([]byte, error) {
	data, err := json.Marshal(Envelope{Room: room, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an envelope received from the bus.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Room == "" {
		return Envelope{}, errNoRoom
	}
	return env, nil
}

// Unavailable wraps a bus error so callers can match core.ErrBroadcastUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", core.ErrBroadcastUnavailable, op, err)
}

// Local is the node-local half of a fabric: membership lives in a core.Hub
// and every envelope read off the bus is delivered through it.
type Local struct {
	Hub *core.Hub
}

// Subscribe adds sub to room on this node.
func (l Local) Subscribe(ctx context.Context, room string, sub *core.Subscriber) error {
	return l.Hub.Subscribe(ctx, room, sub)
}

// Unsubscribe removes sub from room on this node.
func (l Local) Unsubscribe(ctx context.Context, room string, sub *core.Subscriber) error {
	return l.Hub.Unsubscribe(ctx, room, sub)
}

// Deliver decodes data and publishes it to local subscribers.
func (l Local) Deliver(ctx context.Context, data []byte) error {
	env, err := Unmarshal(data)
	if err != nil {
		return err
	}
	return l.Hub.Publish(ctx, env.Room, env.Message)
}
