package ws

// EventKind discriminates supervisor events.
type EventKind int

const (
	// EventOpen: the channel completed its handshake and is live.
	EventOpen EventKind = 1
	// EventMessage: one inbound text frame; Data holds the raw payload.
	EventMessage EventKind = 2
	// EventClosed: the transport closed or errored; a reconnect may
	// already be scheduled.
	EventClosed EventKind = 3
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one item of the supervisor's ordered event stream. Consumers
// multiplex on Channel; payload interpretation belongs to them.
type Event struct {
	Channel string
	Kind    EventKind
	Data    []byte
}

// State is the lifecycle state of one channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
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
