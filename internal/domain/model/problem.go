// Package model contains domain models passed between layers.
package model

import "fmt"

// Problem is a catalog problem as served by the judge. Immutable once
// fetched; shared read-only across sessions.
type Problem struct {
	ContestID int      `json:"contest_id"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags,omitempty"`
}

// ID returns the canonical problem id, "{contestId}-{index}".
func (p Problem) ID() string {
	return fmt.Sprintf("%d-%s", p.ContestID, p.Index)
}

// Link returns the public problem URL.
func (p Problem) Link() string {
	return fmt.Sprintf("https://codeforces.com/contest/%d/problem/%s", p.ContestID, p.Index)
}

// HasAnyTag reports whether the problem carries any of the given tags.
func (p Problem) HasAnyTag(tags map[string]struct{}) bool {
	for _, t := range p.Tags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// SubmissionHistory maps problem id to the earliest accepted solve time
// (unix seconds) for one handle. Fetched fresh on every reconciliation.
type SubmissionHistory map[string]int64

// Solved reports whether the handle has an accepted solve for pid.
func (h SubmissionHistory) Solved(pid string) bool {
	_, ok := h[pid]
	return ok
}
