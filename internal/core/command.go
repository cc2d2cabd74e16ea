package core

// CommandKind describes an operation applied by the Hub goroutine.
type CommandKind int

const (
	// CommandSubscribe attaches a subscriber to a room.
	CommandSubscribe CommandKind = iota
	// CommandUnsubscribe detaches a subscriber from a room.
	CommandUnsubscribe
	// CommandPublish fans an event out to a room.
	CommandPublish
	// CommandStats reports room and subscriber counts.
	CommandStats
)

// Command is a request processed sequentially by the Hub.
type Command struct {
	Kind       CommandKind
	Room       string
	Subscriber *Subscriber
	Event      Event

	// done is closed once the hub applied the command.
	done  chan struct{}
	stats *Stats
}

// Stats is a snapshot of the hub's membership.
type Stats struct {
	Rooms       int `json:"rooms"`
	Subscribers int `json:"subscribers"`
}
