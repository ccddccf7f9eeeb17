package session

import "errors"

// Validation failures. These are decided locally and never reach the service.
var (
	ErrEmptyGuess      = errors.New("guess is empty")
	ErrNoActiveSession = errors.New("no active game")
	ErrBusy            = errors.New("a request is already in progress")
	ErrClueLimit       = errors.New("no clues left")
)

var (
	// ErrUnreachable is returned by Initialize when the health check fails.
	ErrUnreachable = errors.New("game server unreachable")
	// ErrStale is returned when a response arrived for a session that has since been replaced.
	ErrStale = errors.New("session was replaced")
)

// UnreachableMessage is the user-facing text for ErrUnreachable.
const UnreachableMessage = "Cannot reach the game server. Check that it is running and try again."

// RequestError is a failed service call. Message is safe to show to the player.
type RequestError struct {
	Op      string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }
