package http

import (
	"errors"
	"net/http"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

func outboundFromEvent(event core.Event) proto.WireMessage {
	msg := event.Message
	if msg.Room == "" {
		msg.Room = event.Room
	}
	return msg
}

// historyFailure maps a History error to a response. Every failure reads as
// the history being unavailable.
func historyFailure(error) (int, proto.Detail) {
	return http.StatusServiceUnavailable, proto.Detail{Detail: proto.DetailHistoryUnavailable}
}

// sendFailure maps a Send error to a response.
func sendFailure(err error) (int, proto.Detail) {
	switch {
	case errors.Is(err, core.ErrEmptyText):
		return http.StatusBadRequest, proto.Detail{Detail: proto.DetailTextRequired}
	case errors.Is(err, core.ErrEmptyRoom):
		return http.StatusBadRequest, proto.Detail{Detail: proto.DetailRoomRequired}
	default:
		return http.StatusServiceUnavailable, proto.Detail{Detail: proto.DetailSaveUnavailable}
	}
}
