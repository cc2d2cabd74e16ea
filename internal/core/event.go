package core

import "github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"

// Event is a broadcast delivered to every subscriber of a room.
type Event struct {
	Room    string
	Message proto.WireMessage
}
