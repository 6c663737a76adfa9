package transfer

// State is a step of the connect and transfer flow.
type State int

// Flow states. A transfer walks Checking through Confirming and always
// ends back in Connected, passing through Settled or Failed on the way.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateChecking
	StateBuilding
	StateReviewing
	StateAwaitingSignature
	StateConfirming
	StateSettled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateConnecting:        "connecting",
	StateConnected:         "connected",
	StateChecking:          "checking",
	StateBuilding:          "building",
	StateReviewing:         "reviewing",
	StateAwaitingSignature: "awaiting_signature",
	StateConfirming:        "confirming",
	StateSettled:           "settled",
	StateFailed:            "failed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Busy reports whether an operation is in flight.
func (s State) Busy() bool {
	return s == StateConnecting || s.sending()
}

func (s State) sending() bool {
	return s >= StateChecking && s <= StateFailed
}
