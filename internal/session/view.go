package session

import (
	"time"

	"nearword/internal/types"
)

// View is an immutable snapshot of the session. A new one is published after every transition.
type View struct {
	Version        uint64              `json:"version"`
	Lifecycle      Lifecycle           `json:"lifecycle"`
	SessionID      string              `json:"session_id,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	TargetWord     string              `json:"target_word,omitempty"`
	Guesses        []types.ScoredGuess `json:"guesses"`
	GuessCount     int                 `json:"guess_count"`
	TopGuess       *types.ScoredGuess  `json:"top_guess,omitempty"`
	CluesUsed      int                 `json:"clues_used"`
	CluesRemaining int                 `json:"clues_remaining"`
	ActiveClue     string              `json:"active_clue,omitempty"`
	InFlight       bool                `json:"in_flight"`
	LastError      string              `json:"last_error,omitempty"`
	Revealed       *GiveUpResult       `json:"revealed,omitempty"`
}

// GiveUpResult is what the service revealed when a game was abandoned.
type GiveUpResult struct {
	SessionID  string `json:"session_id"`
	TargetWord string `json:"target_word"`
	Message    string `json:"message"`
}

// Celebration is delivered a short while after a correct guess.
type Celebration struct {
	SessionID string
	Word      string
	Guesses   int
}

// clone returns a copy that shares no memory with v.
func (v View) clone() View {
	out := v
	out.Guesses = make([]types.ScoredGuess, len(v.Guesses))
	for i, g := range v.Guesses {
		if g.Percentile != nil {
			p := *g.Percentile
			g.Percentile = &p
		}
		out.Guesses[i] = g
	}
	if v.TopGuess != nil {
		top := *v.TopGuess
		out.TopGuess = &top
	}
	if v.Revealed != nil {
		r := *v.Revealed
		out.Revealed = &r
	}
	return out
}

// Playable reports whether guesses and clues would currently be accepted.
func (v View) Playable() bool {
	return v.Lifecycle == Active && !v.InFlight
}

// subscribers fan snapshots out to observers. Each channel holds at most the latest snapshot.
type subscribers struct {
	next int
	chs  map[int]chan View
}

func (s *subscribers) add(current View) (int, <-chan View) {
	if s.chs == nil {
		s.chs = make(map[int]chan View)
	}
	ch := make(chan View, 1)
	ch <- current.clone()
	s.next++
	s.chs[s.next] = ch
	return s.next, ch
}

func (s *subscribers) remove(id int) {
	if ch, ok := s.chs[id]; ok {
		delete(s.chs, id)
		close(ch)
	}
}

// send must be called with the controller lock held so there is a single writer.
func (s *subscribers) send(snapshot View) {
	for _, ch := range s.chs {
		v := snapshot.clone()
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
