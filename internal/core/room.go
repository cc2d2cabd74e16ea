package core

// Room groups subscribers of the same room identifier.
// It is owned by the Hub goroutine and is not safe for concurrent use.
type Room struct {
	Name        string
	subscribers map[*Subscriber]struct{}
}

// NewRoom constructs a room with no subscribers.
func NewRoom(name string) *Room {
	return &Room{
		Name:        name,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Add inserts a subscriber. Returns true if newly added.
func (r *Room) Add(s *Subscriber) bool {
	if _, exists := r.subscribers[s]; exists {
		return false
	}
	r.subscribers[s] = struct{}{}
	return true
}

// Remove deletes a subscriber. Returns true if removed.
func (r *Room) Remove(s *Subscriber) bool {
	if _, exists := r.subscribers[s]; !exists {
		return false
	}
	delete(r.subscribers, s)
	return true
}

// Broadcast sends an event to all subscribers and returns the ones whose
// buffer was full.
func (r *Room) Broadcast(event Event) []*Subscriber {
	var dropped []*Subscriber
	for s := range r.subscribers {
		select {
		case s.Events <- event:
		default:
			dropped = append(dropped, s)
		}
	}
	return dropped
}

// Len returns the number of subscribers.
func (r *Room) Len() int {
	return len(r.subscribers)
}

// Empty returns true if no subscribers are in the room.
func (r *Room) Empty() bool {
	return len(r.subscribers) == 0
}
