package session

import "fmt"

// Lifecycle is the state of the controller's session.
type Lifecycle int

const (
	Uninitialized Lifecycle = iota
	Connecting
	Active
	AwaitingResult
	Finished
	Unreachable
)

var lifecycleNames = [...]string{
	Uninitialized:  "uninitialized",
	Connecting:     "connecting",
	Active:         "active",
	AwaitingResult: "awaiting_result",
	Finished:       "finished",
	Unreachable:    "unreachable",
}

func (l Lifecycle) String() string {
	if l < 0 || int(l) >= len(lifecycleNames) {
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
	return lifecycleNames[l]
}

func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
