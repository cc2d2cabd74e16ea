package proto

import (
	"time"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
)

const (
	// AnonymousSender is used when an inbound payload carries no sender.
	AnonymousSender = "anonymous"

	// TimeLayout renders created_at as ISO-8601 with an explicit +00:00 offset.
	TimeLayout = "2006-01-02T15:04:05.999999-07:00"
)

// Detail strings sent to clients.
const (
	DetailDatabaseUnavailable = "Database unavailable. Please retry in a moment."
	DetailHistoryUnavailable  = "Unable to read chat history. Please try again."
	DetailSaveUnavailable     = "Unable to save the message right now."
	DetailTextRequired        = "Text required"
	DetailRoomRequired        = "Room required"
	DetailRateLimited         = "Too many messages. Please slow down."
	DetailInvalidPayload      = "Invalid message payload."
	DetailUnauthorized        = "Authentication credentials were not provided or are invalid."
	DetailRoomUnavailable     = "Room unavailable. Please retry in a moment."
)

// Inbound is a chat message sent by a client over a room connection.
type Inbound struct {
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

// SenderOr returns the payload sender or fallback when it is blank.
func (in Inbound) SenderOr(fallback string) string {
	if in.Sender != "" {
		return in.Sender
	}
	if fallback != "" {
		return fallback
	}
	return AnonymousSender
}

// InjectRequest is the body of an offline message submission.
type InjectRequest struct {
	Text string `json:"text"`
}

// WireMessage is the serialized form of a stored message.
type WireMessage struct {
	ID        *string `json:"id"`
	Room      string  `json:"room"`
	Sender    string  `json:"sender"`
	Text      string  `json:"text"`
	CreatedAt string  `json:"created_at"`
}

// Detail is a human-readable notice or error body.
type Detail struct {
	Detail string `json:"detail"`
}

// Encode converts a stored message into its wire record.
func Encode(msg store.Message) WireMessage {
	wire := WireMessage{
		Room:      msg.Room,
		Sender:    msg.Sender,
		Text:      msg.Text,
		CreatedAt: FormatTime(msg.CreatedAt),
	}
	if msg.ID != "" {
		id := msg.ID
		wire.ID = &id
	}
	return wire
}

// EncodeAll encodes messages preserving order. The result is never nil.
func EncodeAll(messages []store.Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, Encode(msg))
	}
	return out
}

// FormatTime renders t in UTC; the zero time becomes "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
