package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

// RelayOptions tunes the relay.
type RelayOptions struct {
	// HistoryLimit caps history reads; <= 0 means store.DefaultHistoryLimit.
	HistoryLimit int
	// StoreTimeout bounds every store call; <= 0 leaves it to the store.
	StoreTimeout time.Duration
	// SanitizeHTML strips markup from text before it is persisted.
	SanitizeHTML bool
	// PublishTimeout bounds a broadcast; <= 0 means DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// DefaultPublishTimeout bounds a broadcast when none is configured.
const DefaultPublishTimeout = 2 * time.Second

// Relay implements persist-then-broadcast on top of a message store and a
// broadcaster. It is shared by live connections and the HTTP endpoints.
type Relay struct {
	store       store.MessageStore
	broadcaster Broadcaster
	pool        *Pool
	opts        RelayOptions
	policy      *bluemonday.Policy
	log         *zerolog.Logger
}

// NewRelay wires a relay. A nil pool gets a default-sized one.
func NewRelay(st store.MessageStore, b Broadcaster, pool *Pool, opts RelayOptions, logger *zerolog.Logger) *Relay {
	if pool == nil {
		pool = NewPool(0)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	opts.HistoryLimit = store.NormalizeLimit(opts.HistoryLimit)
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}

	r := &Relay{
		store:       st,
		broadcaster: b,
		pool:        pool,
		opts:        opts,
		log:         logger,
	}
	if opts.SanitizeHTML {
		r.policy = bluemonday.StrictPolicy()
	}
	return r
}

// Broadcaster returns the fan-out fabric the relay publishes to.
func (r *Relay) Broadcaster() Broadcaster {
	return r.broadcaster
}

// Send validates text, persists it and publishes the stored copy to room.
// It returns ErrEmptyText without touching the store, or an error matching
// store.ErrUnavailable when persisting failed, in which case nothing is
// published. A failed publish is logged and does not fail Send.
func (r *Relay) Send(ctx context.Context, room, sender, text string) (proto.WireMessage, error) {
	if room == "" {
		return proto.WireMessage{}, ErrEmptyRoom
	}
	text = r.clean(text)
	if text == "" {
		return proto.WireMessage{}, ErrEmptyText
	}

	var msg store.Message
	err := r.withStore(ctx, "persist", func(ctx context.Context) error {
		var err error
		msg, err = r.store.Persist(ctx, room, sender, text)
		return err
	})
	if err != nil {
		r.log.Warn().Err(err).Str("room", room).Str("sender", sender).Msg("persist message failed")
		return proto.WireMessage{}, err
	}

	wire := proto.Encode(msg)

	r.publish(ctx, room, wire)

	return wire, nil
}

// publish is best effort. It ignores caller cancellation and gives up after
// PublishTimeout.
func (r *Relay) publish(ctx context.Context, room string, wire proto.WireMessage) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PublishTimeout)
	defer cancel()

	if err := r.broadcaster.Publish(ctx, room, wire); err != nil {
		id := ""
		if wire.ID != nil {
			id = *wire.ID
		}
		r.log.Warn().Err(err).Str("room", room).Str("message_id", id).Msg("broadcast skipped")
	}
}

// History returns the encoded history of room, oldest first.
func (r *Relay) History(ctx context.Context, room string) ([]proto.WireMessage, error) {
	if room == "" {
		return nil, ErrEmptyRoom
	}

	var messages []store.Message
	err := r.withStore(ctx, "history", func(ctx context.Context) error {
		var err error
		messages, err = r.store.History(ctx, room, r.opts.HistoryLimit)
		return err
	})
	if err != nil {
		r.log.Warn().Err(err).Str("room", room).Msg("read history failed")
		return nil, err
	}

	return proto.EncodeAll(messages), nil
}

// Ping reports whether the store is reachable.
func (r *Relay) Ping(ctx context.Context) error {
	return r.withStore(ctx, "ping", r.store.Ping)
}

func (r *Relay) clean(text string) string {
	text = strings.TrimSpace(text)
	if r.policy != nil && text != "" {
		text = strings.TrimSpace(r.policy.Sanitize(text))
	}
	return text
}

// withStore runs fn in a pool slot under the configured timeout. Every
// failure, including waiting for a slot, is reported as store unavailable.
func (r *Relay) withStore(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StoreTimeout)
		defer cancel()
	}

	err := r.pool.Do(ctx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return store.Unavailable(op, err)
}
