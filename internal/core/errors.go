package core

import "errors"

var (
	// ErrEmptyText is returned when a message has no text after trimming.
	ErrEmptyText = errors.New("text required")
	// ErrEmptyRoom is returned when a room identifier is blank.
	ErrEmptyRoom = errors.New("room required")
	// ErrBroadcastUnavailable is returned when the fan-out fabric cannot
	// accept an operation. Publishers treat it as a no-op.
	ErrBroadcastUnavailable = errors.New("broadcast unavailable")
	// ErrSessionNotOpen is returned for payloads received outside StateOpen.
	ErrSessionNotOpen = errors.New("session not open")
)
