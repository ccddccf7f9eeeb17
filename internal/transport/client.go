// Package transport talks to the remote game service over HTTP with JSON bodies.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"nearword/internal/types"
)

const (
	OpHealth = "health"
	OpStart  = "start"
	OpGuess  = "guess"
	OpFetch  = "fetch"
	OpClue   = "clue"
	OpGiveUp = "give_up"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID attaches id to ctx; it is forwarded as X-Request-Id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Options configure a Client. Zero values pick defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// RPS and Burst bound outgoing requests; RPS <= 0 disables the limiter.
	RPS     float64
	Burst   int
	Metrics *Metrics
}

// Client is the HTTP implementation of the game service contract.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	metrics *Metrics
}

// New returns a Client for the service rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:    u,
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c, nil
}

// CheckHealth succeeds on any 2xx from GET /.
func (c *Client) CheckHealth(ctx context.Context) error {
	return c.do(ctx, OpHealth, http.MethodGet, "/", nil, nil)
}

func (c *Client) StartSession(ctx context.Context, difficulty string, daily bool) (*types.GameResponse, error) {
	var out types.GameResponse
	body := types.StartGameRequest{Difficulty: difficulty, DailyMode: daily}
	if err := c.do(ctx, OpStart, http.MethodPost, "/game/start", body, &out); err != nil {
		return nil, err
	}
	if out.GameID == "" {
		return nil, &Error{Op: OpStart, Err: fmt.Errorf("response missing game_id")}
	}
	return &out, nil
}

// SubmitGuess sends word as given; callers normalize it first.
func (c *Client) SubmitGuess(ctx context.Context, gameID, word string) (*types.GuessResponse, error) {
	var out types.GuessResponse
	body := types.GuessRequest{GameID: gameID, Word: word}
	if err := c.do(ctx, OpGuess, http.MethodPost, "/game/guess", body, &out); err != nil {
		return nil, err
	}
	if out.Word == "" {
		return nil, &Error{Op: OpGuess, Err: fmt.Errorf("response missing word")}
	}
	return &out, nil
}

func (c *Client) FetchSession(ctx context.Context, gameID string) (*types.GameResponse, error) {
	var out types.GameResponse
	if err := c.do(ctx, OpFetch, http.MethodGet, "/game/"+url.PathEscape(gameID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestClue(ctx context.Context, gameID string) (*types.ClueResponse, error) {
	var out types.ClueResponse
	if err := c.do(ctx, OpClue, http.MethodPost, "/game/"+url.PathEscape(gameID)+"/clue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GiveUp(ctx context.Context, gameID string) (*types.GiveUpResponse, error) {
	var out types.GiveUpResponse
	if err := c.do(ctx, OpGiveUp, http.MethodPost, "/game/"+url.PathEscape(gameID)+"/give-up", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(op, start, err) }()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return &Error{Op: op, Err: werr}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, merr := json.Marshal(in)
		if merr != nil {
			return &Error{Op: op, Err: merr}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	reqID := RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logrus.WithFields(logrus.Fields{"op": op, "request_id": reqID})
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warnf("game service unreachable: %v", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e types.ErrorResponse
		_ = json.Unmarshal(data, &e)
		log.Warnf("game service returned %d: %s", resp.StatusCode, e.Detail)
		return &Error{Op: op, Status: resp.StatusCode, Detail: e.Detail}
	}

	log.Debugf("game service %s %s -> %d", method, path, resp.StatusCode)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
