package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// Hub is the in-process group broadcast service. A single goroutine started
// by Run owns the room map; every operation is a Command sent to it, so the
// subscriber sets are never mutated concurrently and events of a room are
// fanned out in the order they were published.
type Hub struct {
	commands chan *Command
	stopped  chan struct{}
	rooms    map[string]*Room
	log      *zerolog.Logger
}

// NewHub creates a new hub. Run must be started before it is used.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		commands: make(chan *Command, 256),
		stopped:  make(chan struct{}),
		rooms:    make(map[string]*Room),
		log:      logger,
	}
}

// Run processes commands until ctx is cancelled. Afterwards every operation
// fails with ErrBroadcastUnavailable.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Int("rooms", len(h.rooms)).Msg("hub stopped")
			return
		case cmd := <-h.commands:
			h.handle(cmd)
			close(cmd.done)
		}
	}
}

func (h *Hub) handle(cmd *Command) {
	switch cmd.Kind {
	case CommandSubscribe:
		room, ok := h.rooms[cmd.Room]
		if !ok {
			room = NewRoom(cmd.Room)
			h.rooms[cmd.Room] = room
		}
		if room.Add(cmd.Subscriber) {
			h.log.Debug().Str("room", cmd.Room).Str("subscriber", cmd.Subscriber.ID).Int("members", room.Len()).Msg("subscribed")
		}
	case CommandUnsubscribe:
		room, ok := h.rooms[cmd.Room]
		if !ok {
			return
		}
		if room.Remove(cmd.Subscriber) {
			h.log.Debug().Str("room", cmd.Room).Str("subscriber", cmd.Subscriber.ID).Int("members", room.Len()).Msg("unsubscribed")
		}
		if room.Empty() {
			delete(h.rooms, cmd.Room)
		}
	case CommandPublish:
		room, ok := h.rooms[cmd.Room]
		if !ok {
			return
		}
		for _, slow := range room.Broadcast(cmd.Event) {
			h.log.Warn().Str("room", cmd.Room).Str("subscriber", slow.ID).Msg("subscriber buffer full, event dropped")
		}
	case CommandStats:
		cmd.stats.Rooms = len(h.rooms)
		for _, room := range h.rooms {
			cmd.stats.Subscribers += room.Len()
		}
	}
}

// submit hands cmd to the hub goroutine and waits until it was applied.
func (h *Hub) submit(ctx context.Context, cmd *Command) error {
	cmd.done = make(chan struct{})

	select {
	case h.commands <- cmd:
	case <-h.stopped:
		return ErrBroadcastUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-h.stopped:
		// Run may have exited before reaching the command.
		select {
		case <-cmd.done:
			return nil
		default:
			return ErrBroadcastUnavailable
		}
	}
}

// Subscribe adds sub to room.
func (h *Hub) Subscribe(ctx context.Context, room string, sub *Subscriber) error {
	if room == "" {
		return ErrEmptyRoom
	}
	return h.submit(ctx, &Command{Kind: CommandSubscribe, Room: room, Subscriber: sub})
}

// Unsubscribe removes sub from room.
func (h *Hub) Unsubscribe(ctx context.Context, room string, sub *Subscriber) error {
	return h.submit(ctx, &Command{Kind: CommandUnsubscribe, Room: room, Subscriber: sub})
}

// Publish delivers msg to the current subscribers of room.
func (h *Hub) Publish(ctx context.Context, room string, msg proto.WireMessage) error {
	return h.submit(ctx, &Command{
		Kind:  CommandPublish,
		Room:  room,
		Event: Event{Room: room, Message: msg},
	})
}

// Stats returns the current number of rooms and subscribers.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := h.submit(ctx, &Command{Kind: CommandStats, stats: &stats})
	return stats, err
}
