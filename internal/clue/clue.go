// Package clue tracks hint usage for a session and the timed visibility of the latest hint.
package clue

import (
	"sync"
	"time"

	"nearword/internal/timer"
)

const (
	// MaxClues is the number of hints a session may reveal.
	MaxClues = 3
	// DisplayDuration is how long a revealed hint stays visible.
	DisplayDuration = 10 * time.Second
)

// Throttle counts revealed hints and clears the visible hint after a fixed duration.
type Throttle struct {
	mu       sync.Mutex
	clock    timer.Clock
	display  time.Duration
	onExpire func()

	used   int
	active string
	seq    uint64
	expiry timer.Timer
}

// New returns a Throttle. onExpire, if set, runs after an expiry cleared the visible hint.
func New(clock timer.Clock, display time.Duration, onExpire func()) *Throttle {
	if clock == nil {
		clock = timer.System()
	}
	if display <= 0 {
		display = DisplayDuration
	}
	return &Throttle{clock: clock, display: display, onExpire: onExpire}
}

// CanRequest reports whether another hint may be requested.
func (t *Throttle) CanRequest() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used < MaxClues
}

// Reveal shows text and records number as the server-reported count of hints used.
// The counter never moves backwards and never passes MaxClues.
// Any pending expiry is superseded.
func (t *Throttle) Reveal(text string, number int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expiry != nil {
		t.expiry.Stop()
	}
	t.used = min(max(number, t.used), MaxClues)
	t.active = text
	t.seq++
	seq := t.seq
	t.expiry = t.clock.AfterFunc(t.display, func() { t.expire(seq) })
}

func (t *Throttle) expire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq {
		t.mu.Unlock()
		return
	}
	t.active = ""
	t.expiry = nil
	hook := t.onExpire
	t.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Active returns the visible hint, or "" once it expired.
func (t *Throttle) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Throttle) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

// Remaining is the number of hints still available.
func (t *Throttle) Remaining() int {
	return MaxClues - t.Used()
}

// Reset clears the counter and the visible hint and disarms any expiry.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
	t.seq++
	t.used = 0
	t.active = ""
}
