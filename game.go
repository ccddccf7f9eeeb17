package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"nearword/internal/present"
	"nearword/internal/session"
	"nearword/internal/types"
)

// buildGameView decorates a session snapshot for rendering.
func buildGameView(v session.View) GameView {
	gv := GameView{
		Version:        v.Version,
		Lifecycle:      v.Lifecycle.String(),
		SessionID:      v.SessionID,
		Guesses:        lo.Map(v.Guesses, func(g types.ScoredGuess, _ int) present.Decorated { return present.Decorate(g) }),
		GuessCount:     v.GuessCount,
		CluesUsed:      v.CluesUsed,
		CluesRemaining: v.CluesRemaining,
		ActiveClue:     v.ActiveClue,
		Busy:           v.InFlight,
		Error:          v.LastError,
		Finished:       v.Lifecycle == session.Finished,
		Unreachable:    v.Lifecycle == session.Unreachable,
		TargetWord:     v.TargetWord,
		Revealed:       v.Revealed,
		CanGuess:       v.Playable(),
		CanClue:        v.Playable() && v.CluesRemaining > 0,
	}
	if !v.StartedAt.IsZero() {
		gv.StartedAt = v.StartedAt.UTC().Format(time.RFC3339)
	}
	if v.TopGuess != nil {
		top := present.Decorate(*v.TopGuess)
		gv.Top = &top
		gv.Won = gv.Finished && top.IsCorrect
	}
	return gv
}

// userMessage turns a controller error into text for the player.
func userMessage(err error) string {
	var rerr *session.RequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rerr):
		return rerr.Message
	case errors.Is(err, session.ErrUnreachable):
		return session.UnreachableMessage
	case errors.Is(err, session.ErrEmptyGuess):
		return ErrorEmptyGuess
	case errors.Is(err, session.ErrNoActiveSession):
		return ErrorNoActiveGame
	case errors.Is(err, session.ErrBusy):
		return ErrorBusy
	case errors.Is(err, session.ErrClueLimit):
		return ErrorNoCluesLeft
	case errors.Is(err, session.ErrStale):
		return ErrorGameReplaced
	}
	return err.Error()
}

// errorStatus maps a controller error to the status JSON clients receive.
func errorStatus(err error) int {
	var rerr *session.RequestError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &rerr):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrUnreachable):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrEmptyGuess):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClueLimit):
		return http.StatusTooManyRequests
	}
	return http.StatusConflict
}
