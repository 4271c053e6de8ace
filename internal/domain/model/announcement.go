package model

import "time"

// AnnouncementKind classifies announcement payloads.
type AnnouncementKind string

const (
	// AnnounceStarted is sent when a duel begins.
	AnnounceStarted AnnouncementKind = "started"
	// AnnounceUpdate is sent when reconciliation resolves new problems.
	AnnounceUpdate AnnouncementKind = "update"
	// AnnounceFinal is sent exactly once when a duel is finalized.
	AnnounceFinal AnnouncementKind = "final"
)

// Resolution describes one newly resolved problem from a reconciliation
// pass, in announcement-ready form.
type Resolution struct {
	Index     int     `json:"index"`
	ProblemID string  `json:"problem_id"`
	Name      string  `json:"name"`
	Rating    int     `json:"rating"`
	Outcome   Outcome `json:"outcome"`
	Points    int     `json:"points"` // zero for ties
}

// Announcement is the payload handed to the session's channel collaborator.
// Delivery is asynchronous; producing one must never block session mutation.
type Announcement struct {
	Channel     string           `json:"channel"`
	Kind        AnnouncementKind `json:"kind"`
	DuelID      string           `json:"duel_id"`
	Handles     [2]string        `json:"handles"`
	Resolutions []Resolution     `json:"resolutions,omitempty"`
	Scores      map[string]int   `json:"scores,omitempty"`
	Verdict     *Verdict         `json:"verdict,omitempty"` // final only
	TimeLeft    time.Duration    `json:"time_left,omitempty"`
}

// ProblemStatus is the read-only per-problem view used by snapshots.
type ProblemStatus struct {
	Index     int     `json:"index"`
	ProblemID string  `json:"problem_id"`
	Name      string  `json:"name"`
	Rating    int     `json:"rating"`
	Points    int     `json:"points"`
	Outcome   Outcome `json:"outcome"`
	Link      string  `json:"link,omitempty"` // omitted once locked
}

// SessionSnapshot is a read-only copy of a session's observable state.
type SessionSnapshot struct {
	DuelID   string          `json:"duel_id"`
	Users    [2]string       `json:"users"`
	Handles  [2]string       `json:"handles"`
	Problems []ProblemStatus `json:"problems"`
	Scores   map[string]int  `json:"scores"`
	TimeLeft time.Duration   `json:"time_left"`
	Ended    bool            `json:"ended"`
}

// Snapshot copies the observable session state. Callers must hold the
// session lock. Resolved problems drop their link, matching the locked
// rendering of the command surface.
func (s *DuelSession) Snapshot(now time.Time) SessionSnapshot {
	problems := make([]ProblemStatus, len(s.Problems))
	for i, p := range s.Problems {
		st := s.PerProblem[p.ID()]
		ps := ProblemStatus{
			Index:     i,
			ProblemID: p.ID(),
			Name:      p.Name,
			Rating:    s.Ratings[i],
			Points:    s.Points[i],
			Outcome:   st.Outcome,
		}
		if !st.Outcome.Resolved() {
			ps.Link = p.Link()
		}
		problems[i] = ps
	}
	scores := make(map[string]int, len(s.Scores))
	for h, sc := range s.Scores {
		scores[h] = sc
	}
	return SessionSnapshot{
		DuelID:   s.ID,
		Users:    s.Users,
		Handles:  s.Handles,
		Problems: problems,
		Scores:   scores,
		TimeLeft: s.TimeLeft(now),
		Ended:    s.Ended,
	}
}
