// Package nats fans room messages out across relay nodes over a NATS subject.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/broadcast"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// DefaultSubject is the subject shared by all rooms.
const DefaultSubject = "relay.messages"

// Options configures the NATS connection.
type Options struct {
	URL     string
	Subject string
	Timeout time.Duration
}

// Fabric implements core.Broadcaster on a NATS subject.
type Fabric struct {
	broadcast.Local

	conn    *nats.Conn
	subject string
	log     *zerolog.Logger
}

// New connects to NATS. An unreachable server is not fatal: the client keeps
// reconnecting in the background and publishes fail until it succeeds.
func New(opts Options, hub *core.Hub, logger *zerolog.Logger) (*Fabric, error) {
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	conn, err := nats.Connect(opts.URL,
		nats.Name("room-relay"),
		nats.Timeout(opts.Timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Fabric{
		Local:   broadcast.Local{Hub: hub},
		conn:    conn,
		subject: opts.Subject,
		log:     logger,
	}, nil
}

// Publish sends msg to every node subscribed to the subject.
func (f *Fabric) Publish(_ context.Context, room string, msg proto.WireMessage) error {
	if !f.conn.IsConnected() {
		return broadcast.Unavailable("nats publish", nats.ErrConnectionClosed)
	}
	data, err := broadcast.Marshal(room, msg)
	if err != nil {
		return err
	}
	if err := f.conn.Publish(f.subject, data); err != nil {
		return broadcast.Unavailable("nats publish", err)
	}
	return nil
}

// Run delivers messages from the subject to the local hub until ctx is cancelled.
func (f *Fabric) Run(ctx context.Context) error {
	messages := make(chan *nats.Msg, 256)
	sub, err := f.conn.ChanSubscribe(f.subject, messages)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", f.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			f.log.Debug().Err(err).Msg("nats unsubscribe")
		}
	}()

	f.log.Info().Str("subject", f.subject).Msg("nats fan-out subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-messages:
			if err := f.Deliver(ctx, msg.Data); err != nil {
				f.log.Warn().Err(err).Msg("drop nats envelope")
			}
		}
	}
}

// Close closes the connection.
func (f *Fabric) Close() error {
	f.conn.Close()
	return nil
}
