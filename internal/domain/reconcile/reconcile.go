// Package reconcile attributes newly accepted solves to duel sessions.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/metrics"
)

// Fetcher supplies fresh submission histories. Results are never cached
// across passes; stale data causes incorrect attribution.
type Fetcher interface {
	Submissions(ctx context.Context, handle string) (model.SubmissionHistory, error)
}

// Engine runs reconciliation passes over sessions.
type Engine struct {
	fetcher Fetcher
	now     func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock overrides the engine clock, e.g. for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Reconcile fetches both handles' histories and applies them to the
// session. It returns the newly resolved problems and whether the session
// should be finalized (all resolved or time exceeded). A fetch failure
// leaves the session untouched; the condition is transient, never terminal.
func (e *Engine) Reconcile(ctx context.Context, s *model.DuelSession) ([]model.Resolution, bool, error) {
	start := e.now()
	subs1, err := e.fetcher.Submissions(ctx, s.Handles[0])
	if err != nil {
		return nil, false, fmt.Errorf("submissions for %s: %w", s.Handles[0], err)
	}
	subs2, err := e.fetcher.Submissions(ctx, s.Handles[1])
	if err != nil {
		return nil, false, fmt.Errorf("submissions for %s: %w", s.Handles[1], err)
	}

	s.Lock()
	defer s.Unlock()

	if s.Ended {
		return nil, false, nil
	}

	now := e.now()
	resolved, shouldFinalize := Apply(s, subs1, subs2, now)

	metrics.RecordReconcilePass()
	metrics.RecordReconcileLatency(float64(now.Sub(start).Milliseconds()))
	for _, r := range resolved {
		metrics.RecordProblemResolved(string(r.Outcome.Kind))
	}

	return resolved, shouldFinalize, nil
}

// Apply walks the session's unresolved problems against both histories
// and locks in outcomes. Callers must hold the session lock.
//
// Attribution rules:
//   - neither solved: skip
//   - exactly one solved: that handle takes the full point value
//   - both solved: the strictly earlier accepted time wins outright;
//     equal times lock the problem as a tie worth zero
//   - both solved but a timestamp is missing: both handles are awarded
//     full points (documented degenerate fallback)
//
// Scores only grow, and a handle's ScoreReachedAt stamp is written on its
// first increase and never moved.
func Apply(s *model.DuelSession, subs1, subs2 model.SubmissionHistory, now time.Time) ([]model.Resolution, bool) {
	h1, h2 := s.Handles[0], s.Handles[1]

	var resolved []model.Resolution
	for idx, p := range s.Problems {
		pid := p.ID()
		state := s.PerProblem[pid]
		if state.Outcome.Resolved() {
			continue
		}

		t1, ok1 := subs1[pid]
		t2, ok2 := subs2[pid]
		if !ok1 && !ok2 {
			continue
		}

		pts := s.Points[idx]
		switch {
		case ok1 && !ok2:
			awardWin(s, state, h1, t1, pts, now)
		case ok2 && !ok1:
			awardWin(s, state, h2, t2, pts, now)
		case t1 > 0 && t2 > 0 && t1 < t2:
			awardWin(s, state, h1, t1, pts, now)
		case t1 > 0 && t2 > 0 && t2 < t1:
			awardWin(s, state, h2, t2, pts, now)
		case t1 > 0 && t2 > 0:
			// same second: locked as a tie, nobody scores
			state.Outcome = model.Tied()
			state.FirstSolveTime = t1
			pts = 0
		default:
			// both solved, timestamps missing: award both
			state.Outcome = model.DualAward()
			state.FirstSolveTime = now.Unix()
			s.Scores[h1] += pts
			s.Scores[h2] += pts
			s.StampScore(h1, now)
			s.StampScore(h2, now)
		}

		resolved = append(resolved, model.Resolution{
			Index:     idx,
			ProblemID: pid,
			Name:      p.Name,
			Rating:    s.Ratings[idx],
			Outcome:   state.Outcome,
			Points:    pts,
		})
	}

	shouldFinalize := s.AllResolved() || s.Expired(now)
	return resolved, shouldFinalize
}

func awardWin(s *model.DuelSession, state *model.ProblemState, handle string, solveTime int64, pts int, now time.Time) {
	state.Outcome = model.WonBy(handle)
	state.FirstSolveTime = solveTime
	s.Scores[handle] += pts
	s.StampScore(handle, now)
}
