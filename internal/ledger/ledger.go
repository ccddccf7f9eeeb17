// Package ledger keeps the scored guesses of one game session.
package ledger

import (
	"slices"

	"github.com/samber/lo"

	"nearword/internal/types"
)

// Ledger holds at most one entry per word; a resubmitted word replaces its earlier evaluation.
// It is not safe for concurrent use; the session controller owns it.
type Ledger struct {
	entries []types.ScoredGuess
}

func New() *Ledger {
	return &Ledger{}
}

// Upsert inserts g or replaces the entry with the same word.
func (l *Ledger) Upsert(g types.ScoredGuess) {
	_, idx, found := lo.FindIndexOf(l.entries, func(e types.ScoredGuess) bool {
		return e.Word == g.Word
	})
	if found {
		l.entries[idx] = g
		return
	}
	l.entries = append(l.entries, g)
}

// Ordered returns a fresh copy sorted by similarity descending, ties broken by rank ascending.
func (l *Ledger) Ordered() []types.ScoredGuess {
	out := slices.Clone(l.entries)
	slices.SortStableFunc(out, func(a, b types.ScoredGuess) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return a.Rank - b.Rank
	})
	return out
}

// Top returns the closest guess so far.
func (l *Ledger) Top() (types.ScoredGuess, bool) {
	ordered := l.Ordered()
	if len(ordered) == 0 {
		return types.ScoredGuess{}, false
	}
	return ordered[0], true
}

// Count is the number of distinct words guessed.
func (l *Ledger) Count() int {
	return len(l.entries)
}

func (l *Ledger) Contains(word string) bool {
	return lo.ContainsBy(l.entries, func(e types.ScoredGuess) bool {
		return e.Word == word
	})
}

// LastGuessNumber is the highest submission number recorded.
func (l *Ledger) LastGuessNumber() int {
	if len(l.entries) == 0 {
		return 0
	}
	return lo.MaxBy(l.entries, func(a, b types.ScoredGuess) bool {
		return a.GuessNumber > b.GuessNumber
	}).GuessNumber
}

// Reset drops every entry.
func (l *Ledger) Reset() {
	l.entries = nil
}
