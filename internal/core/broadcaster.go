package core

import (
	"context"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// Broadcaster is the group broadcast contract: a room maps to the set of
// subscribers currently attached to it.
type Broadcaster interface {
	// Subscribe adds sub to room. Subscribing twice is a no-op.
	Subscribe(ctx context.Context, room string, sub *Subscriber) error

	// Unsubscribe removes sub from room. Removing an absent subscriber is a no-op.
	// No event is delivered to sub after Unsubscribe returns nil.
	Unsubscribe(ctx context.Context, room string, sub *Subscriber) error

	// Publish delivers msg to every subscriber of room, including the one
	// that caused it. Events of one room arrive in Publish order.
	// Errors wrap ErrBroadcastUnavailable and are never fatal to the caller.
	Publish(ctx context.Context, room string, msg proto.WireMessage) error
}
