package main

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"nearword/internal/config"
	"nearword/internal/present"
	"nearword/internal/session"
)

// App holds the play server's dependencies and its single game controller.
type App struct {
	Config       *config.Config
	Controller   *session.Controller
	Registry     *prometheus.Registry
	Notices      *noticeHub
	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex
	IsProduction bool
	StartTime    time.Time
}

// notice is a one-off message pushed to connected browsers, outside the session view.
type notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Word    string `json:"word,omitempty"`
	Guesses int    `json:"guesses,omitempty"`
}

// GameView is the session view shaped for templates and JSON clients.
type GameView struct {
	Version        uint64                `json:"version"`
	Lifecycle      string                `json:"lifecycle"`
	SessionID      string                `json:"session_id,omitempty"`
	StartedAt      string                `json:"started_at,omitempty"`
	Guesses        []present.Decorated   `json:"guesses"`
	Top            *present.Decorated    `json:"top,omitempty"`
	GuessCount     int                   `json:"guess_count"`
	CluesUsed      int                   `json:"clues_used"`
	CluesRemaining int                   `json:"clues_remaining"`
	ActiveClue     string                `json:"active_clue,omitempty"`
	Busy           bool                  `json:"busy"`
	Error          string                `json:"error,omitempty"`
	Finished       bool                  `json:"finished"`
	Won            bool                  `json:"won"`
	Unreachable    bool                  `json:"unreachable"`
	TargetWord     string                `json:"target_word,omitempty"`
	Revealed       *session.GiveUpResult `json:"revealed,omitempty"`
	CanGuess       bool                  `json:"can_guess"`
	CanClue        bool                  `json:"can_clue"`
}
