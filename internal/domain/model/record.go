package model

import "time"

// RecentDuelRecord is the immutable archival snapshot of a finalized
// session. It must round-trip through persistence unchanged.
type RecentDuelRecord struct {
	ID         string                  `json:"id"`
	Users      [2]string               `json:"users"`
	Handles    [2]string               `json:"handles"`
	Ratings    []int                   `json:"ratings"`
	Points     []int                   `json:"points"`
	Scores     map[string]int          `json:"scores"`
	PerProblem map[string]ProblemState `json:"per_problem"`
	Verdict    Verdict                 `json:"verdict"`
	StartTime  int64                   `json:"start_time"`
	EndTime    int64                   `json:"end_time"`
}

// NewRecentRecord snapshots a finalized session. Callers must hold the
// session lock.
func NewRecentRecord(s *DuelSession, endTime time.Time) RecentDuelRecord {
	per := make(map[string]ProblemState, len(s.PerProblem))
	for pid, st := range s.PerProblem {
		per[pid] = *st
	}
	scores := make(map[string]int, len(s.Scores))
	for h, sc := range s.Scores {
		scores[h] = sc
	}
	return RecentDuelRecord{
		ID:         s.ID,
		Users:      s.Users,
		Handles:    s.Handles,
		Ratings:    append([]int(nil), s.Ratings...),
		Points:     append([]int(nil), s.Points...),
		Scores:     scores,
		PerProblem: per,
		Verdict:    s.DecideWinner(),
		StartTime:  s.StartTime.Unix(),
		EndTime:    endTime.Unix(),
	}
}

// Duration returns the wall-clock duel length.
func (r RecentDuelRecord) Duration() time.Duration {
	return time.Duration(r.EndTime-r.StartTime) * time.Second
}
