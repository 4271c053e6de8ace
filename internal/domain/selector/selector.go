// Package selector picks unsolved duel problems from the judge catalog.
package selector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/cfduel/internal/domain/model"
)

// Rating offsets tried, in order, when a rating has no qualifying problem.
var fallbackOffsets = []int{100, -100, 200, -200, 300, -300, 400, -400, 500, -500} //nolint:gochecknoglobals // fixed search schedule

// Tags that disqualify a problem from duels.
var defaultBadTags = []string{"output-only", "*special problem", "challenge", "expression parsing"} //nolint:gochecknoglobals // fixed default set

// Fetcher supplies the judge data the selector works from.
type Fetcher interface {
	// Submissions returns a handle's earliest-accepted map.
	Submissions(ctx context.Context, handle string) (model.SubmissionHistory, error)

	// Problemset returns the full problem catalog.
	Problemset(ctx context.Context) ([]model.Problem, error)
}

// Selector picks one unsolved, allowed problem per requested rating,
// with a nearby-rating fallback search. Selection either fully succeeds
// or fails; partial picks are never returned.
type Selector struct {
	fetcher Fetcher
	badTags map[string]struct{}
	offsets []int

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithBadTags replaces the disallowed tag set.
func WithBadTags(tags []string) Option {
	return func(s *Selector) {
		if len(tags) > 0 {
			s.badTags = tagSet(tags)
		}
	}
}

// WithOffsets replaces the fallback rating offsets.
func WithOffsets(offsets []int) Option {
	return func(s *Selector) {
		if len(offsets) > 0 {
			s.offsets = offsets
		}
	}
}

// WithRandSource sets the shuffle source, e.g. for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Selector) {
		if src != nil {
			s.rng = rand.New(src) //nolint:gosec // selection shuffle, not crypto
		}
	}
}

// New creates a Selector backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Selector {
	s := &Selector{
		fetcher: fetcher,
		badTags: tagSet(defaultBadTags),
		offsets: fallbackOffsets,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection shuffle, not crypto
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// Select fetches both histories and the catalog, then picks one problem
// per rating in order. Each pick excludes earlier picks, disallowed tags,
// and problems either handle has already solved. A rating with no exact
// match retries at the fallback offsets; if all fail the whole selection
// fails with ErrInsufficientProblems.
func (s *Selector) Select(ctx context.Context, handle1, handle2 string, ratings []int) ([]model.Problem, error) {
	subs1, err := s.fetcher.Submissions(ctx, handle1)
	if err != nil {
		return nil, fmt.Errorf("submissions for %s: %w", handle1, err)
	}
	subs2, err := s.fetcher.Submissions(ctx, handle2)
	if err != nil {
		return nil, fmt.Errorf("submissions for %s: %w", handle2, err)
	}
	catalog, err := s.fetcher.Problemset(ctx)
	if err != nil {
		return nil, fmt.Errorf("problemset: %w", err)
	}

	selected := make([]model.Problem, 0, len(ratings))
	excluded := make(map[string]struct{}, len(ratings))
	for _, rating := range ratings {
		p, ok := s.pick(catalog, rating, excluded, subs1, subs2)
		if !ok {
			for _, offset := range s.offsets {
				p, ok = s.pick(catalog, rating+offset, excluded, subs1, subs2)
				if ok {
					break
				}
			}
			if !ok {
				return nil, fmt.Errorf("rating %d: %w", rating, ErrInsufficientProblems)
			}
		}
		excluded[p.ID()] = struct{}{}
		selected = append(selected, p)
	}
	return selected, nil
}

// pick returns one qualifying problem of the exact rating, chosen
// uniformly at random to avoid positional bias.
func (s *Selector) pick(catalog []model.Problem, rating int, excluded map[string]struct{}, subs1, subs2 model.SubmissionHistory) (model.Problem, bool) {
	candidates := make([]model.Problem, 0, 64)
	for _, p := range catalog {
		if p.Rating == rating {
			candidates = append(candidates, p)
		}
	}
	s.shuffle(candidates)

	for _, p := range candidates {
		pid := p.ID()
		if p.HasAnyTag(s.badTags) {
			continue
		}
		if _, ok := excluded[pid]; ok {
			continue
		}
		if subs1.Solved(pid) || subs2.Solved(pid) {
			continue
		}
		return p, true
	}
	return model.Problem{}, false
}

func (s *Selector) shuffle(problems []model.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(problems), func(i, j int) {
		problems[i], problems[j] = problems[j], problems[i]
	})
}
