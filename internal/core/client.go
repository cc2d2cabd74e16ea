package core

// DefaultSubscriberBuffer is the Events capacity used when none is given.
const DefaultSubscriberBuffer = 64

// Subscriber is a live connection as seen by the broadcast layer.
type Subscriber struct {
	ID     string
	Events chan Event
}

// NewSubscriber constructs a subscriber with a buffered event channel.
func NewSubscriber(id string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Subscriber{
		ID:     id,
		Events: make(chan Event, buffer),
	}
}
