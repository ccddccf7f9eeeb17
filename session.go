package main

import (
	"sync"

	"nearword/internal/session"
)

// noticeHub fans one-off notices out to connected event streams.
type noticeHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan notice
}

func newNoticeHub() *noticeHub {
	return &noticeHub{subs: make(map[int]chan notice)}
}

func (h *noticeHub) subscribe() (<-chan notice, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan notice, 4)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
}

// publish drops the notice for subscribers whose buffer is full.
func (h *noticeHub) publish(n notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// celebrate is the controller's delayed win callback.
func (app *App) celebrate(c session.Celebration) {
	logInfo("Session %s solved with %q after %d guesses", c.SessionID, c.Word, c.Guesses)
	app.Notices.publish(notice{
		Kind:    "celebrate",
		Message: CelebrationMessage,
		Word:    c.Word,
		Guesses: c.Guesses,
	})
}
