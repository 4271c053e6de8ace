package model

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidArguments reports malformed rating/time parameters.
var ErrInvalidArguments = errors.New("invalid rating or time arguments")

// Rating schedule defaults for the zero-argument duel form.
const (
	defaultMinRating    = 800
	defaultMaxRating    = 2400
	defaultProblemCount = 5
	ratingStep          = 100
)

// OutcomeKind tags the resolution state of a duel problem.
type OutcomeKind string

const (
	// OutcomeUnresolved means neither handle has an accepted solve yet.
	OutcomeUnresolved OutcomeKind = "unresolved"
	// OutcomeWon means exactly one handle was first to solve.
	OutcomeWon OutcomeKind = "won"
	// OutcomeTied means both handles solved at the same second; no points.
	OutcomeTied OutcomeKind = "tied"
	// OutcomeDualAward is the degenerate both-solved-no-timestamps fallback;
	// both handles receive full points.
	OutcomeDualAward OutcomeKind = "dual"
)

// Outcome is the tagged resolution of a single duel problem. It transitions
// away from unresolved exactly once and never reverts.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner string      `json:"winner,omitempty"` // set only for OutcomeWon
}

// Unresolved returns the initial outcome.
func Unresolved() Outcome { return Outcome{Kind: OutcomeUnresolved} }

// WonBy returns an outcome attributing the problem to handle.
func WonBy(handle string) Outcome { return Outcome{Kind: OutcomeWon, Winner: handle} }

// Tied returns the equal-timestamp outcome.
func Tied() Outcome { return Outcome{Kind: OutcomeTied} }

// DualAward returns the both-awarded fallback outcome.
func DualAward() Outcome { return Outcome{Kind: OutcomeDualAward} }

// Resolved reports whether the outcome is locked.
func (o Outcome) Resolved() bool { return o.Kind != OutcomeUnresolved }

// ProblemState tracks the per-problem resolution inside a session.
// FirstSolveTime is unix seconds; zero means not recorded.
type ProblemState struct {
	Outcome        Outcome `json:"outcome"`
	FirstSolveTime int64   `json:"first_solve_time,omitempty"`
}

// PairKey is the order-independent identity of a duel: (min, max) of the
// two user ids.
type PairKey struct {
	Lo string `json:"lo"`
	Hi string `json:"hi"`
}

// NewPairKey builds a PairKey from two user ids in either order.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// Contains reports whether userID is one of the pair members.
func (k PairKey) Contains(userID string) bool {
	return k.Lo == userID || k.Hi == userID
}

// DuelSession is the central mutable entity: a timed two-party competition
// over a fixed problem set. All mutation after creation happens under the
// session lock so reconciliation and finalization never interleave.
type DuelSession struct {
	mu sync.Mutex

	ID             string
	Users          [2]string
	Handles        [2]string
	Problems       []Problem
	Ratings        []int
	Points         []int
	PerProblem     map[string]*ProblemState
	Scores         map[string]int
	ScoreReachedAt map[string]int64 // unix seconds; first-write-wins
	StartTime      time.Time
	TimeLimit      time.Duration
	Ended          bool
	Channel        string
}

// NewDuelSession constructs a session over the selected problems.
// The problems slice order matches ratings; points default per position.
func NewDuelSession(users, handles [2]string, problems []Problem, ratings []int, timeLimit time.Duration, channel string) *DuelSession {
	per := make(map[string]*ProblemState, len(problems))
	for _, p := range problems {
		per[p.ID()] = &ProblemState{Outcome: Unresolved()}
	}
	return &DuelSession{
		ID:             uuid.NewString(),
		Users:          users,
		Handles:        handles,
		Problems:       problems,
		Ratings:        ratings,
		Points:         PointsForCount(len(problems)),
		PerProblem:     per,
		Scores:         map[string]int{handles[0]: 0, handles[1]: 0},
		ScoreReachedAt: make(map[string]int64, 2),
		StartTime:      time.Now(),
		TimeLimit:      timeLimit,
		Channel:        channel,
	}
}

// Lock serializes mutation of the session.
func (s *DuelSession) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *DuelSession) Unlock() { s.mu.Unlock() }

// Key returns the unordered pair key for the session.
func (s *DuelSession) Key() PairKey {
	return NewPairKey(s.Users[0], s.Users[1])
}

// Elapsed returns the time since the session started.
func (s *DuelSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// TimeLeft returns the remaining time budget, floored at zero.
func (s *DuelSession) TimeLeft(now time.Time) time.Duration {
	left := s.TimeLimit - s.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the session exceeded its time budget.
func (s *DuelSession) Expired(now time.Time) bool {
	return s.Elapsed(now) >= s.TimeLimit
}

// AllResolved reports whether every problem outcome is locked.
// Callers must hold the session lock.
func (s *DuelSession) AllResolved() bool {
	for _, st := range s.PerProblem {
		if !st.Outcome.Resolved() {
			return false
		}
	}
	return true
}

// StampScore records the first time a handle's score increased.
// First write wins; later increases never move the stamp.
func (s *DuelSession) StampScore(handle string, now time.Time) {
	if _, ok := s.ScoreReachedAt[handle]; !ok {
		s.ScoreReachedAt[handle] = now.Unix()
	}
}

// Verdict is the finalization result of a session.
type Verdict struct {
	Winner     string `json:"winner,omitempty"` // empty means draw
	ByTieBreak bool   `json:"by_tie_break,omitempty"`
}

// DecideWinner computes the winner: higher score wins; equal scores fall
// back to the earlier ScoreReachedAt stamp; both absent or equal is a draw.
// Callers must hold the session lock.
func (s *DuelSession) DecideWinner() Verdict {
	h1, h2 := s.Handles[0], s.Handles[1]
	s1, s2 := s.Scores[h1], s.Scores[h2]
	switch {
	case s1 > s2:
		return Verdict{Winner: h1}
	case s2 > s1:
		return Verdict{Winner: h2}
	}

	t1, ok1 := s.ScoreReachedAt[h1]
	t2, ok2 := s.ScoreReachedAt[h2]
	switch {
	case ok1 && (!ok2 || t1 < t2):
		return Verdict{Winner: h1, ByTieBreak: true}
	case ok2 && (!ok1 || t2 < t1):
		return Verdict{Winner: h2, ByTieBreak: true}
	}
	return Verdict{}
}

// PointsForCount returns the default point schedule: the classic
// 100..500 ladder for five problems, otherwise 100*(i+1) per position.
func PointsForCount(n int) []int {
	points := make([]int, n)
	for i := range points {
		points[i] = 100 * (i + 1)
	}
	return points
}

// RatingsFromArgs derives the rating list and time limit (minutes) from
// command arguments:
//   - two args:  base, time  -> [base, base+100, ... base+400]
//   - four args: min, max, num, time -> num evenly stepped ratings
//   - no args:   800..2400 in 5 steps, defaultTimeMin
func RatingsFromArgs(args []int, defaultTimeMin int) ([]int, int, error) {
	switch len(args) {
	case 2:
		base, timeMin := args[0], args[1]
		if base <= 0 || timeMin <= 0 {
			return nil, 0, ErrInvalidArguments
		}
		ratings := make([]int, defaultProblemCount)
		for i := range ratings {
			ratings[i] = base + i*ratingStep
		}
		return ratings, timeMin, nil
	case 4:
		minRating, maxRating, num, timeMin := args[0], args[1], args[2], args[3]
		if minRating <= 0 || maxRating < minRating || num < 1 || timeMin <= 0 {
			return nil, 0, ErrInvalidArguments
		}
		return steppedRatings(minRating, maxRating, num), timeMin, nil
	case 0:
		if defaultTimeMin <= 0 {
			return nil, 0, ErrInvalidArguments
		}
		return steppedRatings(defaultMinRating, defaultMaxRating, defaultProblemCount), defaultTimeMin, nil
	default:
		return nil, 0, ErrInvalidArguments
	}
}

func steppedRatings(minRating, maxRating, num int) []int {
	if num == 1 {
		return []int{minRating}
	}
	step := (maxRating - minRating) / (num - 1)
	ratings := make([]int, num)
	for i := range ratings {
		ratings[i] = minRating + i*step
	}
	return ratings
}
