// Package session drives one game against the remote service and publishes its view.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"nearword/internal/clue"
	"nearword/internal/ledger"
	"nearword/internal/timer"
	"nearword/internal/transport"
	"nearword/internal/types"
)

// DefaultCelebrationDelay is how long after a winning guess the celebration is delivered.
const DefaultCelebrationDelay = 500 * time.Millisecond

// Transport is the remote game service as seen by the controller.
type Transport interface {
	CheckHealth(ctx context.Context) error
	StartSession(ctx context.Context, difficulty string, daily bool) (*types.GameResponse, error)
	SubmitGuess(ctx context.Context, gameID, word string) (*types.GuessResponse, error)
	FetchSession(ctx context.Context, gameID string) (*types.GameResponse, error)
	RequestClue(ctx context.Context, gameID string) (*types.ClueResponse, error)
	GiveUp(ctx context.Context, gameID string) (*types.GiveUpResponse, error)
}

type Options struct {
	Difficulty       string
	Clock            timer.Clock
	ClueDisplay      time.Duration
	CelebrationDelay time.Duration
	// OnCelebrate runs on a timer goroutine after a winning guess, unless the session was replaced.
	OnCelebrate func(Celebration)
}

// Controller owns the single active session. All methods are safe for concurrent use;
// at most one service request runs at a time and overlapping calls fail with ErrBusy.
type Controller struct {
	transport   Transport
	difficulty  string
	clock       timer.Clock
	celebrate   time.Duration
	onCelebrate func(Celebration)

	mu          sync.Mutex
	gen         uint64
	lifecycle   Lifecycle
	sessionID   string
	startedAt   time.Time
	targetWord  string
	guessCount  int
	ledger      *ledger.Ledger
	clues       *clue.Throttle
	inFlight    bool
	lastError   string
	revealed    *GiveUpResult
	celebration timer.Timer
	version     uint64
	subs        subscribers

	view atomic.Pointer[View]
}

func New(t Transport, opts Options) *Controller {
	c := &Controller{
		transport:   t,
		difficulty:  opts.Difficulty,
		clock:       opts.Clock,
		celebrate:   opts.CelebrationDelay,
		onCelebrate: opts.OnCelebrate,
		ledger:      ledger.New(),
	}
	if c.difficulty == "" {
		c.difficulty = "medium"
	}
	if c.clock == nil {
		c.clock = timer.System()
	}
	if c.celebrate <= 0 {
		c.celebrate = DefaultCelebrationDelay
	}
	c.clues = clue.New(c.clock, opts.ClueDisplay, c.clueExpired)
	c.mu.Lock()
	c.publishLocked()
	c.mu.Unlock()
	return c
}

// NormalizeGuess trims and lower-cases a guess.
func NormalizeGuess(input string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(input))
}

// View returns the latest snapshot.
func (c *Controller) View() View {
	return c.view.Load().clone()
}

// Subscribe returns a channel that receives the current snapshot and then every new one.
// A slow reader only sees the most recent snapshot. cancel closes the channel.
func (c *Controller) Subscribe() (<-chan View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ch := c.subs.add(*c.view.Load())
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			c.subs.remove(id)
			c.mu.Unlock()
		})
	}
}

// Initialize checks the service, then starts a daily game, replacing any prior session.
// A failed health check leaves the controller Unreachable; nothing is retried.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.resetLocked()
	c.revealed = nil
	c.lifecycle = Connecting
	c.inFlight = true
	gen := c.gen
	c.publishLocked()
	c.mu.Unlock()

	if err := c.transport.CheckHealth(ctx); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return ErrStale
		}
		c.inFlight = false
		c.lifecycle = Unreachable
		c.lastError = UnreachableMessage
		c.publishLocked()
		logrus.Warnf("game server health check failed: %v", err)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	return c.start(ctx, gen)
}

// start requests a new daily game. The caller has set inFlight and owns generation gen.
func (c *Controller) start(ctx context.Context, gen uint64) error {
	resp, err := c.transport.StartSession(ctx, c.difficulty, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.inFlight = false
	if err != nil {
		c.lifecycle = Uninitialized
		return c.failLocked(transport.OpStart, err)
	}
	c.applyGameLocked(resp, true)
	logrus.WithField("session", c.sessionID).Infof("daily game started (%d guesses resumed)", c.ledger.Count())
	c.publishLocked()
	return nil
}

// SubmitGuess sends a normalized guess and records the result.
func (c *Controller) SubmitGuess(ctx context.Context, text string) error {
	word := NormalizeGuess(text)
	if word == "" {
		return ErrEmptyGuess
	}
	gen, id, err := c.begin(nil)
	if err != nil {
		return err
	}

	resp, err := c.transport.SubmitGuess(ctx, id, word)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.inFlight = false
	if err != nil {
		c.lifecycle = Active
		return c.failLocked(transport.OpGuess, err)
	}

	g := resp.Scored()
	repeat := c.ledger.Contains(g.Word)
	c.ledger.Upsert(g)
	if resp.GuessNumber > 0 {
		c.guessCount = resp.GuessNumber
	} else {
		c.guessCount++
	}
	log := logrus.WithFields(logrus.Fields{"session": id, "guess": c.guessCount, "repeat": repeat})
	log.Infof("guessed %q: similarity %.2f, rank %d", g.Word, g.Similarity, g.Rank)

	switch {
	case resp.IsCorrect:
		c.lifecycle = Finished
		c.targetWord = g.Word
		c.scheduleCelebrationLocked(Celebration{SessionID: id, Word: g.Word, Guesses: c.guessCount})
		log.Infof("player found the word in %d guesses", c.guessCount)
	case resp.GameOver:
		c.lifecycle = Finished
	default:
		c.lifecycle = Active
	}
	c.publishLocked()
	return nil
}

// RequestClue reveals the next hint. It never contacts the service once the cap is reached.
func (c *Controller) RequestClue(ctx context.Context) error {
	gen, id, err := c.begin(func() error {
		if !c.clues.CanRequest() {
			return ErrClueLimit
		}
		return nil
	})
	if err != nil {
		return err
	}

	resp, err := c.transport.RequestClue(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.inFlight = false
	c.lifecycle = Active
	if err != nil {
		return c.failLocked(transport.OpClue, err)
	}
	c.clues.Reveal(resp.Clue, resp.ClueNumber)
	logrus.WithField("session", id).Infof("clue %d revealed, %d remaining", resp.ClueNumber, resp.RemainingClues)
	c.publishLocked()
	return nil
}

// GiveUp abandons the game, reveals its word and immediately starts a new daily game.
// Calling it is the player's confirmation.
func (c *Controller) GiveUp(ctx context.Context) (*GiveUpResult, error) {
	gen, id, err := c.begin(nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.GiveUp(ctx, id)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		c.inFlight = false
		c.lifecycle = Active
		rerr := c.failLocked(transport.OpGiveUp, err)
		c.mu.Unlock()
		return nil, rerr
	}
	result := &GiveUpResult{SessionID: id, TargetWord: resp.TargetWord, Message: resp.Message}
	c.targetWord = resp.TargetWord
	c.lifecycle = Finished
	c.revealed = result
	c.publishLocked()
	logrus.WithField("session", id).Infof("player gave up, word was %q", resp.TargetWord)

	c.resetLocked()
	c.lifecycle = Connecting
	gen = c.gen
	c.publishLocked()
	c.mu.Unlock()

	return result, c.start(ctx, gen)
}

// Refresh reloads the session from the service and rebuilds the ledger from it.
func (c *Controller) Refresh(ctx context.Context) error {
	gen, id, err := c.begin(nil)
	if err != nil {
		return err
	}

	resp, err := c.transport.FetchSession(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.inFlight = false
	if err != nil {
		c.lifecycle = Active
		return c.failLocked(transport.OpFetch, err)
	}
	c.applyGameLocked(resp, false)
	c.publishLocked()
	return nil
}

// Close abandons the session locally. Pending responses and timers are ignored afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.inFlight = false
	c.publishLocked()
}

func (c *Controller) guardLocked() error {
	if c.inFlight {
		return ErrBusy
	}
	if c.lifecycle != Active || c.sessionID == "" {
		return ErrNoActiveSession
	}
	return nil
}

// begin claims the in-flight slot for a request against the active session.
// check, if set, runs under the lock after the common guards.
func (c *Controller) begin(check func() error) (uint64, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return 0, "", err
	}
	if check != nil {
		if err := check(); err != nil {
			return 0, "", err
		}
	}
	c.inFlight = true
	c.lifecycle = AwaitingResult
	c.lastError = ""
	c.publishLocked()
	return c.gen, c.sessionID, nil
}

func (c *Controller) failLocked(op string, err error) error {
	msg := transport.UserMessage(err)
	c.lastError = msg
	c.publishLocked()
	logrus.WithField("session", c.sessionID).Warnf("%s failed: %v", op, err)
	return &RequestError{Op: op, Message: msg, Err: err}
}

// resetLocked drops all per-session state and invalidates anything tied to the old generation.
func (c *Controller) resetLocked() {
	c.gen++
	if c.celebration != nil {
		c.celebration.Stop()
		c.celebration = nil
	}
	c.clues.Reset()
	c.ledger.Reset()
	c.lifecycle = Uninitialized
	c.sessionID = ""
	c.startedAt = time.Time{}
	c.targetWord = ""
	c.guessCount = 0
	c.lastError = ""
}

// applyGameLocked replaces session data with a start or fetch response.
func (c *Controller) applyGameLocked(resp *types.GameResponse, fresh bool) {
	next := ledger.New()
	for _, g := range resp.Guesses {
		next.Upsert(g)
	}
	c.ledger = next
	c.guessCount = max(resp.GuessCount, next.LastGuessNumber())

	if fresh {
		c.sessionID = resp.GameID
		c.startedAt = c.clock.Now()
		if ts, err := time.Parse(time.RFC3339, resp.StartedAt); err == nil {
			c.startedAt = ts
		}
	}

	c.lifecycle = Active
	if resp.GameOver {
		c.lifecycle = Finished
		if won, ok := lo.Find(resp.Guesses, func(g types.ScoredGuess) bool { return g.IsCorrect }); ok {
			c.targetWord = won.Word
		}
	}
}

func (c *Controller) scheduleCelebrationLocked(cel Celebration) {
	if c.celebration != nil {
		c.celebration.Stop()
	}
	gen := c.gen
	c.celebration = c.clock.AfterFunc(c.celebrate, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.celebration = nil
		hook := c.onCelebrate
		c.mu.Unlock()
		if hook != nil {
			hook(cel)
		}
	})
}

func (c *Controller) clueExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.version++
	v := View{
		Version:        c.version,
		Lifecycle:      c.lifecycle,
		SessionID:      c.sessionID,
		StartedAt:      c.startedAt,
		TargetWord:     c.targetWord,
		Guesses:        c.ledger.Ordered(),
		GuessCount:     c.guessCount,
		CluesUsed:      c.clues.Used(),
		CluesRemaining: c.clues.Remaining(),
		ActiveClue:     c.clues.Active(),
		InFlight:       c.inFlight,
		LastError:      c.lastError,
	}
	if top, ok := c.ledger.Top(); ok {
		v.TopGuess = &top
	}
	if c.revealed != nil {
		r := *c.revealed
		v.Revealed = &r
	}
	c.view.Store(&v)
	c.subs.send(v)
}
