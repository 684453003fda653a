package session

// State is a step of a scan session.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateOpening
	StateLocating
	StateConfiguring
	StateTransferring
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{"idle", "resolving", "opening", "locating", "configuring", "transferring", "succeeded", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
