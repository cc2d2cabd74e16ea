package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/utils"
)

// SessionState is the lifecycle state of a connection session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// unsubscribeTimeout bounds teardown once the connection context is gone.
const unsubscribeTimeout = 5 * time.Second

// SessionOptions tunes a session.
type SessionOptions struct {
	// Identity is the verified caller name, used when a payload has no sender.
	Identity string
	// RatePerMinute limits inbound messages; <= 0 disables the limit.
	RatePerMinute int
	// Buffer is the capacity of the outbound event channel.
	Buffer int
}

// Session is one live connection scoped to a room. It moves from
// StateConnecting to StateOpen on Open and to StateClosed on Close.
type Session struct {
	ID   string
	Room string

	identity    string
	relay       *Relay
	broadcaster Broadcaster
	sub         *Subscriber
	limiter     *rate.Limiter
	state       atomic.Int32
	closeOnce   sync.Once
	log         zerolog.Logger
}

// NewSession creates a session in StateConnecting.
func NewSession(room string, relay *Relay, opts SessionOptions, logger *zerolog.Logger) *Session {
	id := utils.NewID()
	s := &Session{
		ID:          id,
		Room:        room,
		identity:    opts.Identity,
		relay:       relay,
		broadcaster: relay.Broadcaster(),
		sub:         NewSubscriber(id, opts.Buffer),
	}
	if opts.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s.log = logger.With().Str("session_id", id).Str("room", room).Logger()
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Deliverable reports whether broadcast events may be forwarded to the peer.
func (s *Session) Deliverable() bool {
	return s.State() == StateOpen
}

// Events carries broadcasts for the room while the session is subscribed.
func (s *Session) Events() <-chan Event {
	return s.sub.Events
}

// Open subscribes the session to its room and moves it to StateOpen.
func (s *Session) Open(ctx context.Context) error {
	if s.Room == "" {
		return ErrEmptyRoom
	}
	if err := s.broadcaster.Subscribe(ctx, s.Room, s.sub); err != nil {
		return err
	}
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		// Closed while subscribing; undo so no subscriber leaks.
		s.unsubscribe(ctx)
		return ErrSessionNotOpen
	}
	s.log.Debug().Msg("session open")
	return nil
}

// Receive handles one inbound payload. Blank text is ignored. A notice for
// the originating connection only is returned when the message could not be
// stored or the rate limit was hit; the session stays open in both cases.
func (s *Session) Receive(ctx context.Context, in proto.Inbound) (*proto.Detail, error) {
	if s.State() != StateOpen {
		return nil, ErrSessionNotOpen
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Debug().Msg("rate limit exceeded")
		return &proto.Detail{Detail: proto.DetailRateLimited}, nil
	}

	_, err := s.relay.Send(ctx, s.Room, in.SenderOr(s.identity), in.Text)
	switch {
	case err == nil, errors.Is(err, ErrEmptyText):
		return nil, nil
	case errors.Is(err, store.ErrUnavailable):
		return &proto.Detail{Detail: proto.DetailDatabaseUnavailable}, nil
	default:
		return nil, err
	}
}

// Close unsubscribes the session and moves it to StateClosed. It is safe to
// call from several goroutines; the unsubscribe runs exactly once and does
// not depend on ctx still being live.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		prev := SessionState(s.state.Swap(int32(StateClosed)))
		if prev == StateOpen {
			s.unsubscribe(ctx)
		}
		s.log.Debug().Str("from", prev.String()).Msg("session closed")
	})
}

func (s *Session) unsubscribe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unsubscribeTimeout)
	defer cancel()

	if err := s.broadcaster.Unsubscribe(ctx, s.Room, s.sub); err != nil {
		s.log.Warn().Err(err).Msg("unsubscribe failed")
	}
}
