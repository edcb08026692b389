package dashlink

import "time"

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing

	StateListening
	StateServing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	}
	return "unknown"
}

// StateChange is reported to the presenter on every transition.
type StateChange struct {
	State ConnectionState
	// Peer is the remote side while connected or serving, the dialled endpoint while
	// connecting and the local address while listening.
	Peer string
	// Deadline is when the current connect attempt gives up.
	Deadline time.Time
}
