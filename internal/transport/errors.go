package transport

import (
	"errors"
	"fmt"
	"strings"
)

// GenericFailure is shown when the service gave no usable detail.
const GenericFailure = "Something went wrong talking to the game server. Please try again."

// Error is returned for network failures, non-2xx statuses and malformed payloads.
type Error struct {
	Op     string
	Status int    // 0 when no response was received
	Detail string // the service's "detail" text, if any
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the service's detail text verbatim when present, else GenericFailure.
func UserMessage(err error) string {
	var te *Error
	if errors.As(err, &te) && strings.TrimSpace(te.Detail) != "" {
		return te.Detail
	}
	return GenericFailure
}
