package main

// Route constants
const (
	RouteHome      = "/"
	RouteNewGame   = "/new-game"
	RouteGuess     = "/guess"
	RouteClue      = "/clue"
	RouteGiveUp    = "/give-up"
	RouteRefresh   = "/refresh"
	RouteGameState = "/game-state"
	RouteEvents    = "/events"
	RouteHealthz   = "/healthz"
	RouteMetrics   = "/metrics"
)

// Error message constants
const (
	ErrorEmptyGuess    = "Type a word first."
	ErrorNoActiveGame  = "There is no game in progress. Start a new one."
	ErrorBusy          = "Hold on, the last request is still running."
	ErrorNoCluesLeft   = "You have used all your clues."
	ErrorGameReplaced  = "That game was replaced by a new one."
	ErrorTooManyCalls  = "Too many requests. Please slow down."
	CelebrationMessage = "You found it!"
)

// Page text
const (
	PageTitle   = "Nearword - Daily Semantic Word Game"
	PageMessage = "Guess the secret word. Closer meanings score higher."
)
