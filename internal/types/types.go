package types

// ScoredGuess is one submitted word and the service's evaluation of it.
type ScoredGuess struct {
	Word        string  `json:"word"`
	Similarity  float64 `json:"similarity"`
	Rank        int     `json:"rank"`
	Percentile  *int    `json:"percentile,omitempty"`
	IsCorrect   bool    `json:"is_correct"`
	GuessNumber int     `json:"guess_number"`
}

type StartGameRequest struct {
	Difficulty string `json:"difficulty"`
	DailyMode  bool   `json:"daily_mode"`
}

// GameResponse is returned by both the start and fetch endpoints.
type GameResponse struct {
	GameID     string        `json:"game_id"`
	Guesses    []ScoredGuess `json:"guesses"`
	GuessCount int           `json:"guess_count"`
	GameOver   bool          `json:"game_over"`
	StartedAt  string        `json:"started_at"`
}

type GuessRequest struct {
	GameID string `json:"game_id"`
	Word   string `json:"word"`
}

type GuessResponse struct {
	Word        string  `json:"word"`
	Similarity  float64 `json:"similarity"`
	Rank        int     `json:"rank"`
	Percentile  *int    `json:"percentile,omitempty"`
	GuessNumber int     `json:"guess_number"`
	IsCorrect   bool    `json:"is_correct"`
	GameOver    bool    `json:"game_over"`
}

// Scored converts the response into the ledger model.
func (r GuessResponse) Scored() ScoredGuess {
	return ScoredGuess{
		Word:        r.Word,
		Similarity:  r.Similarity,
		Rank:        r.Rank,
		Percentile:  r.Percentile,
		IsCorrect:   r.IsCorrect,
		GuessNumber: r.GuessNumber,
	}
}

type ClueResponse struct {
	Clue           string `json:"clue"`
	ClueNumber     int    `json:"clue_number"`
	RemainingClues int    `json:"remaining_clues"`
}

type GiveUpResponse struct {
	GameID     string `json:"game_id"`
	TargetWord string `json:"target_word"`
	Message    string `json:"message"`
}

// ErrorResponse is the body the service sends with non-2xx statuses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
