package model

// ConnectivityStatus is the last observed reachability of the backend.
type ConnectivityStatus int

const (
	StatusChecking ConnectivityStatus = iota
	StatusConnected
	StatusDisconnected
)

func (s ConnectivityStatus) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Label is the text shown in status indicators.
func (s ConnectivityStatus) Label() string {
	switch s {
	case StatusChecking:
		return "Checking..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
