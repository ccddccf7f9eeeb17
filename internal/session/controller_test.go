package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"nearword/internal/clue"
	"nearword/internal/timer"
	"nearword/internal/transport"
	"nearword/internal/types"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls map[string]int

	healthErr error
	startErr  error
	guessErr  error
	clueErr   error
	giveUpErr error
	fetchErr  error

	games   []string
	resumed []types.ScoredGuess
	scores  map[string]types.GuessResponse
	target  string
	clueNo  int
	fetched *types.GameResponse

	// block, when set, holds guess requests until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		calls:  make(map[string]int),
		games:  []string{"game-1", "game-2", "game-3"},
		target: "wolf",
		scores: map[string]types.GuessResponse{
			"dog":  {Word: "dog", Similarity: 45.2, Rank: 120},
			"cat":  {Word: "cat", Similarity: 62.0, Rank: 40},
			"wolf": {Word: "wolf", Similarity: 100, Rank: 1, IsCorrect: true, GameOver: true},
		},
	}
}

func (f *fakeTransport) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeTransport) hit(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.calls[op]
}

func (f *fakeTransport) CheckHealth(ctx context.Context) error {
	f.hit(transport.OpHealth)
	return f.healthErr
}

func (f *fakeTransport) StartSession(ctx context.Context, difficulty string, daily bool) (*types.GameResponse, error) {
	n := f.hit(transport.OpStart)
	if f.startErr != nil {
		return nil, f.startErr
	}
	resp := &types.GameResponse{
		GameID:    f.games[(n-1)%len(f.games)],
		Guesses:   f.resumed,
		StartedAt: "2026-10-16T08:00:00Z",
	}
	resp.GuessCount = len(f.resumed)
	return resp, nil
}

func (f *fakeTransport) SubmitGuess(ctx context.Context, gameID, word string) (*types.GuessResponse, error) {
	n := f.hit(transport.OpGuess)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.guessErr != nil {
		return nil, f.guessErr
	}
	resp, ok := f.scores[word]
	if !ok {
		return nil, &transport.Error{Op: transport.OpGuess, Status: http.StatusBadRequest, Detail: "Word not in vocabulary"}
	}
	resp.GuessNumber = n
	return &resp, nil
}

func (f *fakeTransport) FetchSession(ctx context.Context, gameID string) (*types.GameResponse, error) {
	f.hit(transport.OpFetch)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetched, nil
}

func (f *fakeTransport) RequestClue(ctx context.Context, gameID string) (*types.ClueResponse, error) {
	f.hit(transport.OpClue)
	if f.clueErr != nil {
		return nil, f.clueErr
	}
	f.mu.Lock()
	f.clueNo++
	n := f.clueNo
	f.mu.Unlock()
	return &types.ClueResponse{Clue: "hint " + string(rune('0'+n)), ClueNumber: n, RemainingClues: clue.MaxClues - n}, nil
}

func (f *fakeTransport) GiveUp(ctx context.Context, gameID string) (*types.GiveUpResponse, error) {
	f.hit(transport.OpGiveUp)
	if f.giveUpErr != nil {
		return nil, f.giveUpErr
	}
	return &types.GiveUpResponse{GameID: gameID, TargetWord: f.target, Message: "The word was wolf"}, nil
}

type harness struct {
	ft      *fakeTransport
	clock   *timer.Manual
	ctrl    *Controller
	mu      sync.Mutex
	parties []Celebration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{ft: newFakeTransport(), clock: timer.NewManual(time.Unix(1_700_000_000, 0))}
	h.ctrl = New(h.ft, Options{
		Clock: h.clock,
		OnCelebrate: func(c Celebration) {
			h.mu.Lock()
			h.parties = append(h.parties, c)
			h.mu.Unlock()
		},
	})
	return h
}

func (h *harness) celebrations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.parties)
}

func startedHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	if err := h.ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return h
}

func guessWords(v View) []string {
	out := make([]string, len(v.Guesses))
	for i, g := range v.Guesses {
		out[i] = g.Word
	}
	return out
}

func TestNewControllerIsUninitialized(t *testing.T) {
	h := newHarness(t)
	v := h.ctrl.View()
	if v.Lifecycle != Uninitialized || v.SessionID != "" || len(v.Guesses) != 0 {
		t.Errorf("initial view = %+v", v)
	}
	if v.CluesRemaining != clue.MaxClues {
		t.Errorf("CluesRemaining = %d", v.CluesRemaining)
	}
}

func TestInitializeStartsDailyGame(t *testing.T) {
	h := startedHarness(t)
	v := h.ctrl.View()
	if v.Lifecycle != Active || v.SessionID != "game-1" || v.InFlight {
		t.Fatalf("view = %+v", v)
	}
	want := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	if !v.StartedAt.Equal(want) {
		t.Errorf("StartedAt = %v, want %v", v.StartedAt, want)
	}
	if h.ft.count(transport.OpHealth) != 1 || h.ft.count(transport.OpStart) != 1 {
		t.Errorf("calls = %v", h.ft.calls)
	}
}

func TestInitializeResumesServerGuesses(t *testing.T) {
	h := newHarness(t)
	h.ft.resumed = []types.ScoredGuess{
		{Word: "dog", Similarity: 45.2, Rank: 120, GuessNumber: 1},
		{Word: "cat", Similarity: 62, Rank: 40, GuessNumber: 2},
	}
	if err := h.ctrl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := h.ctrl.View()
	if v.GuessCount != 2 || v.TopGuess == nil || v.TopGuess.Word != "cat" {
		t.Errorf("view = %+v", v)
	}
}

func TestUnreachable(t *testing.T) {
	h := newHarness(t)
	h.ft.healthErr = &transport.Error{Op: transport.OpHealth, Err: errors.New("connection refused")}
	err := h.ctrl.Initialize(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Initialize error = %v, want ErrUnreachable", err)
	}
	v := h.ctrl.View()
	if v.Lifecycle != Unreachable || v.LastError != UnreachableMessage {
		t.Errorf("view = %+v", v)
	}
	if h.ft.count(transport.OpStart) != 0 {
		t.Error("start attempted after failed health check")
	}

	if err := h.ctrl.SubmitGuess(context.Background(), "dog"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("SubmitGuess while unreachable = %v", err)
	}
	if h.ft.count(transport.OpGuess) != 0 {
		t.Error("guess sent while unreachable")
	}
	if h.ctrl.View().Lifecycle != Unreachable {
		t.Error("lifecycle changed by rejected guess")
	}

	h.ft.healthErr = nil
	if err := h.ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("manual retry failed: %v", err)
	}
	if h.ctrl.View().Lifecycle != Active {
		t.Errorf("lifecycle after retry = %v", h.ctrl.View().Lifecycle)
	}
}

func TestStartFailure(t *testing.T) {
	h := newHarness(t)
	h.ft.startErr = &transport.Error{Op: transport.OpStart, Status: 500, Detail: "Daily word not ready"}
	err := h.ctrl.Initialize(context.Background())
	var rerr *RequestError
	if !errors.As(err, &rerr) || rerr.Message != "Daily word not ready" {
		t.Fatalf("Initialize error = %v", err)
	}
	v := h.ctrl.View()
	if v.Lifecycle != Uninitialized || v.LastError != "Daily word not ready" || v.InFlight {
		t.Errorf("view = %+v", v)
	}
}

func TestGuessScenario(t *testing.T) {
	h := startedHarness(t)
	ctx := context.Background()

	if err := h.ctrl.SubmitGuess(ctx, "dog"); err != nil {
		t.Fatal(err)
	}
	v := h.ctrl.View()
	if len(v.Guesses) != 1 || v.TopGuess == nil || v.TopGuess.Word != "dog" {
		t.Fatalf("after dog: %+v", v)
	}

	if err := h.ctrl.SubmitGuess(ctx, "cat"); err != nil {
		t.Fatal(err)
	}
	if got := guessWords(h.ctrl.View()); len(got) != 2 || got[0] != "cat" || got[1] != "dog" {
		t.Fatalf("after cat: %v", got)
	}

	if err := h.ctrl.SubmitGuess(ctx, "dog"); err != nil {
		t.Fatal(err)
	}
	v = h.ctrl.View()
	if len(v.Guesses) != 2 {
		t.Errorf("resubmission added an entry: %v", guessWords(v))
	}
	if v.GuessCount != 3 {
		t.Errorf("GuessCount = %d, want 3", v.GuessCount)
	}
	if v.Lifecycle != Active {
		t.Errorf("Lifecycle = %v", v.Lifecycle)
	}
}

func TestGuessIsNormalized(t *testing.T) {
	h := startedHarness(t)
	if err := h.ctrl.SubmitGuess(context.Background(), "  CaT \n"); err != nil {
		t.Fatal(err)
	}
	if got := guessWords(h.ctrl.View()); len(got) != 1 || got[0] != "cat" {
		t.Errorf("guesses = %v", got)
	}
}

func TestEmptyGuessIsRejectedLocally(t *testing.T) {
	h := startedHarness(t)
	for _, in := range []string{"", "   ", "\t\n"} {
		if err := h.ctrl.SubmitGuess(context.Background(), in); !errors.Is(err, ErrEmptyGuess) {
			t.Errorf("SubmitGuess(%q) = %v", in, err)
		}
	}
	if h.ft.count(transport.OpGuess) != 0 {
		t.Error("empty guess reached the transport")
	}
	if h.ctrl.View().LastError != "" {
		t.Error("validation failure surfaced as an error banner")
	}
}

func TestFailedGuessLeavesStateUntouched(t *testing.T) {
	h := startedHarness(t)
	ctx := context.Background()
	if err := h.ctrl.SubmitGuess(ctx, "dog"); err != nil {
		t.Fatal(err)
	}
	before := h.ctrl.View()

	err := h.ctrl.SubmitGuess(ctx, "qwzx")
	var rerr *RequestError
	if !errors.As(err, &rerr) || rerr.Message != "Word not in vocabulary" {
		t.Fatalf("error = %v", err)
	}
	after := h.ctrl.View()
	if after.GuessCount != before.GuessCount || len(after.Guesses) != len(before.Guesses) {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if after.Lifecycle != Active || after.InFlight {
		t.Errorf("lifecycle = %v inFlight = %v", after.Lifecycle, after.InFlight)
	}
	if after.LastError != "Word not in vocabulary" {
		t.Errorf("LastError = %q", after.LastError)
	}

	h.ft.guessErr = errors.New("socket closed")
	_ = h.ctrl.SubmitGuess(ctx, "cat")
	if got := h.ctrl.View().LastError; got != transport.GenericFailure {
		t.Errorf("LastError = %q, want generic", got)
	}

	h.ft.guessErr = nil
	if err := h.ctrl.SubmitGuess(ctx, "cat"); err != nil {
		t.Fatal(err)
	}
	if h.ctrl.View().LastError != "" {
		t.Error("LastError not cleared by a successful request")
	}
}

func TestCorrectGuessFinishesAndCelebratesLater(t *testing.T) {
	h := startedHarness(t)
	if err := h.ctrl.SubmitGuess(context.Background(), "wolf"); err != nil {
		t.Fatal(err)
	}
	v := h.ctrl.View()
	if v.Lifecycle != Finished || v.TargetWord != "wolf" {
		t.Fatalf("view = %+v", v)
	}
	if h.celebrations() != 0 {
		t.Fatal("celebration delivered synchronously")
	}
	h.clock.Advance(DefaultCelebrationDelay)
	if h.celebrations() != 1 {
		t.Fatalf("celebrations = %d, want 1", h.celebrations())
	}
	if h.parties[0].Word != "wolf" || h.parties[0].Guesses != 1 {
		t.Errorf("celebration = %+v", h.parties[0])
	}

	if err := h.ctrl.SubmitGuess(context.Background(), "cat"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("guess after finish = %v", err)
	}
}

func TestCelebrationDroppedAfterReset(t *testing.T) {
	h := startedHarness(t)
	if err := h.ctrl.SubmitGuess(context.Background(), "wolf"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Minute)
	if h.celebrations() != 0 {
		t.Error("celebration from a replaced session was delivered")
	}
}

func TestClueCap(t *testing.T) {
	h := startedHarness(t)
	ctx := context.Background()
	for i := 1; i <= clue.MaxClues; i++ {
		if err := h.ctrl.RequestClue(ctx); err != nil {
			t.Fatalf("clue %d: %v", i, err)
		}
		v := h.ctrl.View()
		if v.CluesUsed != i || v.ActiveClue == "" {
			t.Fatalf("after clue %d: %+v", i, v)
		}
	}
	if err := h.ctrl.RequestClue(ctx); !errors.Is(err, ErrClueLimit) {
		t.Fatalf("fourth clue = %v, want ErrClueLimit", err)
	}
	if n := h.ft.count(transport.OpClue); n != clue.MaxClues {
		t.Errorf("transport clue calls = %d, want %d", n, clue.MaxClues)
	}
	if v := h.ctrl.View(); v.CluesUsed != clue.MaxClues || v.CluesRemaining != 0 {
		t.Errorf("view = %+v", v)
	}
}

func TestClueExpiresAndPublishes(t *testing.T) {
	h := startedHarness(t)
	if err := h.ctrl.RequestClue(context.Background()); err != nil {
		t.Fatal(err)
	}
	ch, cancel := h.ctrl.Subscribe()
	defer cancel()
	<-ch

	h.clock.Advance(clue.DisplayDuration)
	select {
	case v := <-ch:
		if v.ActiveClue != "" || v.CluesUsed != 1 {
			t.Errorf("after expiry: %+v", v)
		}
	default:
		t.Fatal("no snapshot published on clue expiry")
	}
}

func TestFailedClueKeepsCounter(t *testing.T) {
	h := startedHarness(t)
	h.ft.clueErr = &transport.Error{Op: transport.OpClue, Status: 429, Detail: "Slow down"}
	err := h.ctrl.RequestClue(context.Background())
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v", err)
	}
	v := h.ctrl.View()
	if v.CluesUsed != 0 || v.ActiveClue != "" || v.LastError != "Slow down" || v.Lifecycle != Active {
		t.Errorf("view = %+v", v)
	}
}

func TestReentrancyGuard(t *testing.T) {
	h := startedHarness(t)
	h.ft.block = make(chan struct{})
	h.ft.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SubmitGuess(context.Background(), "dog") }()
	<-h.ft.entered

	v := h.ctrl.View()
	if !v.InFlight || v.Lifecycle != AwaitingResult {
		t.Errorf("in-flight view = %+v", v)
	}
	if err := h.ctrl.SubmitGuess(context.Background(), "cat"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent guess = %v, want ErrBusy", err)
	}
	if err := h.ctrl.RequestClue(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent clue = %v, want ErrBusy", err)
	}
	if _, err := h.ctrl.GiveUp(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent give up = %v, want ErrBusy", err)
	}
	if err := h.ctrl.Initialize(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent initialize = %v, want ErrBusy", err)
	}

	close(h.ft.block)
	if err := <-done; err != nil {
		t.Fatalf("blocked guess: %v", err)
	}
	if h.ft.count(transport.OpGuess) != 1 || h.ft.count(transport.OpClue) != 0 {
		t.Errorf("calls = %v", h.ft.calls)
	}
}

func TestStaleResponseIgnoredAfterClose(t *testing.T) {
	h := startedHarness(t)
	h.ft.block = make(chan struct{})
	h.ft.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SubmitGuess(context.Background(), "cat") }()
	<-h.ft.entered
	h.ctrl.Close()
	close(h.ft.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("stale guess = %v, want ErrStale", err)
	}
	v := h.ctrl.View()
	if len(v.Guesses) != 0 || v.Lifecycle != Uninitialized {
		t.Errorf("stale response applied: %+v", v)
	}
}

func TestGiveUpRevealsAndRestarts(t *testing.T) {
	h := startedHarness(t)
	ctx := context.Background()
	if err := h.ctrl.SubmitGuess(ctx, "dog"); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.RequestClue(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := h.ctrl.GiveUp(ctx)
	if err != nil {
		t.Fatalf("GiveUp: %v", err)
	}
	if res.TargetWord != "wolf" || res.SessionID != "game-1" {
		t.Errorf("result = %+v", res)
	}
	v := h.ctrl.View()
	if v.Lifecycle != Active || v.SessionID != "game-2" {
		t.Fatalf("after give up: %+v", v)
	}
	if len(v.Guesses) != 0 || v.CluesUsed != 0 || v.TargetWord != "" {
		t.Errorf("new session carried old state: %+v", v)
	}
	if v.Revealed == nil || v.Revealed.TargetWord != "wolf" {
		t.Errorf("Revealed = %+v", v.Revealed)
	}
}

func TestGiveUpRequiresActiveSession(t *testing.T) {
	h := newHarness(t)
	if _, err := h.ctrl.GiveUp(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("GiveUp without session = %v", err)
	}
	if h.ft.count(transport.OpGiveUp) != 0 {
		t.Error("give up sent without session")
	}
}

func TestGiveUpFailure(t *testing.T) {
	h := startedHarness(t)
	h.ft.giveUpErr = &transport.Error{Op: transport.OpGiveUp, Status: 404, Detail: "Game not found"}
	if _, err := h.ctrl.GiveUp(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	v := h.ctrl.View()
	if v.Lifecycle != Active || v.SessionID != "game-1" || v.LastError != "Game not found" {
		t.Errorf("view = %+v", v)
	}
	if h.ft.count(transport.OpStart) != 1 {
		t.Error("new game started after failed give up")
	}
}

func TestRefreshRebuildsLedger(t *testing.T) {
	h := startedHarness(t)
	ctx := context.Background()
	if err := h.ctrl.SubmitGuess(ctx, "dog"); err != nil {
		t.Fatal(err)
	}
	h.ft.fetched = &types.GameResponse{
		GameID: "game-1",
		Guesses: []types.ScoredGuess{
			{Word: "dog", Similarity: 45.2, Rank: 120, GuessNumber: 1},
			{Word: "cat", Similarity: 62, Rank: 40, GuessNumber: 2},
		},
		GuessCount: 2,
	}
	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	v := h.ctrl.View()
	if got := guessWords(v); len(got) != 2 || got[0] != "cat" {
		t.Errorf("guesses = %v", got)
	}
	if v.SessionID != "game-1" || v.GuessCount != 2 {
		t.Errorf("view = %+v", v)
	}

	h.ft.fetchErr = errors.New("boom")
	if err := h.ctrl.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := guessWords(h.ctrl.View()); len(got) != 2 {
		t.Errorf("failed refresh changed ledger: %v", got)
	}
}

func TestViewsAreImmutable(t *testing.T) {
	h := startedHarness(t)
	if err := h.ctrl.SubmitGuess(context.Background(), "dog"); err != nil {
		t.Fatal(err)
	}
	v := h.ctrl.View()
	v.Guesses[0].Word = "mutated"
	if h.ctrl.View().Guesses[0].Word != "dog" {
		t.Error("mutating a snapshot leaked into the controller")
	}
	if err := h.ctrl.SubmitGuess(context.Background(), "cat"); err != nil {
		t.Fatal(err)
	}
	if len(v.Guesses) != 1 {
		t.Error("earlier snapshot changed after a later transition")
	}
}

func TestNormalizeGuess(t *testing.T) {
	cases := map[string]string{
		"Dog":     "dog",
		"  CAT  ": "cat",
		"ÉCOLE":   "école",
		"":        "",
	}
	for in, want := range cases {
		if got := NormalizeGuess(in); got != want {
			t.Errorf("NormalizeGuess(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLifecycleString(t *testing.T) {
	if Active.String() != "active" || Unreachable.String() != "unreachable" {
		t.Error("unexpected names")
	}
	if Lifecycle(42).String() != "lifecycle(42)" {
		t.Errorf("out of range = %q", Lifecycle(42).String())
	}
}
