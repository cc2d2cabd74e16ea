// Package redis fans room messages out across relay nodes with Redis pub/sub.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/broadcast"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// DefaultChannel is the pub/sub channel shared by all rooms.
const DefaultChannel = "relay.messages"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Fabric implements core.Broadcaster. Publish goes to Redis; every node,
// including the publishing one, delivers what it reads back to its local hub.
type Fabric struct {
	broadcast.Local

	client  *goredis.Client
	channel string
	log     *zerolog.Logger
}

// New creates a fabric over hub. It does not contact Redis.
func New(opts Options, hub *core.Hub, logger *zerolog.Logger) *Fabric {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Fabric{
		Local: broadcast.Local{Hub: hub},
		client: goredis.NewClient(&goredis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		channel: opts.Channel,
		log:     logger,
	}
}

// Publish sends msg to every node. When Redis is unreachable the message is
// not delivered live and an error wrapping core.ErrBroadcastUnavailable is returned.
func (f *Fabric) Publish(ctx context.Context, room string, msg proto.WireMessage) error {
	data, err := broadcast.Marshal(room, msg)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return broadcast.Unavailable("redis publish", err)
	}
	return nil
}

// Run reads the channel and feeds the local hub until ctx is cancelled.
// The go-redis subscription reconnects on its own after network errors.
func (f *Fabric) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		f.log.Warn().Err(err).Str("channel", f.channel).Msg("redis subscribe not confirmed, waiting for reconnect")
	} else {
		f.log.Info().Str("channel", f.channel).Msg("redis fan-out subscribed")
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			if err := f.Deliver(ctx, []byte(msg.Payload)); err != nil {
				f.log.Warn().Err(err).Msg("drop redis envelope")
			}
		}
	}
}

// Close releases the Redis client.
func (f *Fabric) Close() error {
	return f.client.Close()
}
