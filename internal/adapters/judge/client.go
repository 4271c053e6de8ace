// Package judge implements the external judging-service client.
//
// All calls share a single pacing slot (minimum spacing between any two
// requests, across all callers) and a small fixed retry budget. Failures
// surface as ErrUnavailable and are always transient to callers.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
	"github.com/okian/cfduel/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBaseURL      = "https://codeforces.com/api"
	defaultMinInterval  = 2 * time.Second // judge guideline: ~1 call per 2s
	defaultAttempts     = 2
	defaultRetryBackoff = time.Second
	defaultHTTPTimeout  = 30 * time.Second

	acceptedVerdict = "OK"
)

// Client talks to the judge REST API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	attempts     int
	retryBackoff time.Duration
	logger       logger.Logger

	// Pacing state: one shared slot across all callers.
	paceMu      sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the judge API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMinInterval sets the global inter-request spacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.minInterval = d
		}
	}
}

// WithAttempts sets how many times a call is tried before giving up.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryBackoff sets the sleep between failed attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryBackoff = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a judge client with default configuration.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		attempts:     defaultAttempts,
		retryBackoff: defaultRetryBackoff,
		minInterval:  defaultMinInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Named("judge")
	}

	return c
}

// apiEnvelope is the judge response wrapper.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type submission struct {
	Verdict             string     `json:"verdict"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	Problem             apiProblem `json:"problem"`
}

type apiProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

func (p apiProblem) toModel() model.Problem {
	return model.Problem{
		ContestID: p.ContestID,
		Index:     p.Index,
		Name:      p.Name,
		Rating:    p.Rating,
		Tags:      p.Tags,
	}
}

type problemsetResult struct {
	Problems []apiProblem `json:"problems"`
}

// Submissions returns the handle's earliest accepted solve time per
// problem id.
func (c *Client) Submissions(ctx context.Context, handle string) (model.SubmissionHistory, error) {
	handle = strings.TrimSpace(handle)
	endpoint := "user.status"
	raw, err := c.get(ctx, endpoint, url.Values{"handle": {handle}})
	if err != nil {
		return nil, err
	}

	var subs []submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		metrics.RecordJudgeError(endpoint)
		return nil, fmt.Errorf("decode %s result: %w", endpoint, ErrUnavailable)
	}

	solved := make(model.SubmissionHistory)
	for _, sub := range subs {
		if sub.Verdict != acceptedVerdict {
			continue
		}
		pid := sub.Problem.toModel().ID()
		t := sub.CreationTimeSeconds
		if prev, ok := solved[pid]; !ok || (t > 0 && t < prev) {
			solved[pid] = t
		}
	}
	return solved, nil
}

// Problemset returns the full problem catalog.
func (c *Client) Problemset(ctx context.Context) ([]model.Problem, error) {
	endpoint := "problemset.problems"
	raw, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result problemsetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		metrics.RecordJudgeError(endpoint)
		return nil, fmt.Errorf("decode %s result: %w", endpoint, ErrUnavailable)
	}

	problems := make([]model.Problem, 0, len(result.Problems))
	for _, p := range result.Problems {
		problems = append(problems, p.toModel())
	}
	return problems, nil
}

// get runs one paced, retried GET against the judge API and returns the
// raw result payload.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	metrics.RecordJudgeRequest(endpoint)
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			metrics.RecordJudgeRetry()
			if err := sleepCtx(ctx, c.retryBackoff); err != nil {
				return nil, err
			}
		}

		if err := c.waitSlot(ctx); err != nil {
			return nil, err
		}

		env, err := c.doOnce(ctx, u)
		if err != nil {
			lastErr = err
			c.logger.Warn(ctx, "judge request failed",
				logger.String("endpoint", endpoint),
				logger.Int("attempt", attempt+1),
				logger.Error(err),
			)
			continue
		}
		if env.Status != "OK" {
			// the API answered and rejected the call; retrying won't help
			metrics.RecordJudgeError(endpoint)
			return nil, fmt.Errorf("judge status %q (%s): %w", env.Status, env.Comment, ErrUnavailable)
		}
		return env.Result, nil
	}

	metrics.RecordJudgeError(endpoint)
	return nil, fmt.Errorf("%s after %d attempts: %w (%v)", endpoint, c.attempts, ErrUnavailable, lastErr)
}

func (c *Client) doOnce(ctx context.Context, u string) (*apiEnvelope, error) {
	start := time.Now()
	defer func() {
		metrics.RecordJudgeLatency(float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// waitSlot enforces the shared inter-request spacing. The pacing mutex is
// held while sleeping so concurrent callers queue behind the slot.
func (c *Client) waitSlot(ctx context.Context) error {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()

	wait := c.minInterval - time.Since(c.lastCall)
	if wait > 0 {
		metrics.RecordJudgePacingDelay(float64(wait.Milliseconds()))
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	c.lastCall = time.Now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
