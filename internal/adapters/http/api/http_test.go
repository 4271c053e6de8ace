package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/cfduel/internal/adapters/http/api"
	"github.com/okian/cfduel/internal/adapters/judge"
	"github.com/okian/cfduel/internal/adapters/registry"
	"github.com/okian/cfduel/internal/adapters/teams"
	service "github.com/okian/cfduel/internal/app"
	"github.com/okian/cfduel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubDeps struct {
	snap       model.SessionSnapshot
	resolved   []model.Resolution
	records    []model.RecentDuelRecord
	teamList   []teams.Team
	handle     string
	startErr   error
	statusErr  error
	linkErr    error
	lastUserID string
}

func (s *stubDeps) StartDuel(_ context.Context, requesterID, _, _ string, _ []int) (model.SessionSnapshot, error) {
	s.lastUserID = requesterID
	return s.snap, s.startErr
}

func (s *stubDeps) Reconcile(_ context.Context, userID string) ([]model.Resolution, model.SessionSnapshot, error) {
	s.lastUserID = userID
	return s.resolved, s.snap, s.statusErr
}

func (s *stubDeps) Status(_ context.Context, userID string) (model.SessionSnapshot, error) {
	s.lastUserID = userID
	return s.snap, s.statusErr
}

func (s *stubDeps) EndDuel(_ context.Context, userID string) (model.SessionSnapshot, error) {
	s.lastUserID = userID
	return s.snap, s.statusErr
}

func (s *stubDeps) Active(_ context.Context) []model.SessionSnapshot {
	return []model.SessionSnapshot{s.snap}
}

func (s *stubDeps) Recent(_ context.Context) ([]model.RecentDuelRecord, error) {
	return s.records, nil
}

func (s *stubDeps) LinkHandle(_ context.Context, userID, _ string) error {
	s.lastUserID = userID
	return s.linkErr
}

func (s *stubDeps) UnlinkHandle(_ context.Context, userID string) error {
	s.lastUserID = userID
	return s.linkErr
}

func (s *stubDeps) HandleOf(_ context.Context, _ string) (string, error) {
	if s.handle == "" {
		return "", service.ErrHandleNotLinked
	}
	return s.handle, nil
}

func (s *stubDeps) CreateTeam(_ context.Context, _, _ string) error { return s.linkErr }
func (s *stubDeps) JoinTeam(_ context.Context, _, _ string) error   { return s.linkErr }
func (s *stubDeps) LeaveTeam(_ context.Context, _ string) error     { return s.linkErr }
func (s *stubDeps) Teams(_ context.Context) []teams.Team            { return s.teamList }

func (s *stubDeps) MyTeam(_ context.Context, userID string) (teams.Team, error) {
	s.lastUserID = userID
	if len(s.teamList) == 0 {
		return teams.Team{}, teams.ErrNotInTeam
	}
	return s.teamList[0], nil
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func post(url string, body any) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	return http.Post(url, "application/json", bytes.NewReader(raw)) //nolint:noctx // test helper
}

func sampleSnapshot() model.SessionSnapshot {
	return model.SessionSnapshot{
		DuelID:   "duel-1",
		Users:    [2]string{"u1", "u2"},
		Handles:  [2]string{"alice", "bob"},
		Scores:   map[string]int{"alice": 100, "bob": 0},
		TimeLeft: 25 * time.Minute,
	}
}

func TestStartDuelEndpoint(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{snap: sampleSnapshot()}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a valid start request posts", func() {
			resp, err := post(srv.URL+"/duels", map[string]any{
				"requester_id": "u1",
				"opponent_id":  "u2",
				"channel":      "chan",
				"args":         []int{800, 30},
			})
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the session comes back as 201", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var got model.SessionSnapshot
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.DuelID, ShouldEqual, "duel-1")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, err := http.Post(srv.URL+"/duels", "application/json", bytes.NewReader([]byte("{"))) //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the opponent id is missing", func() {
			resp, err := post(srv.URL+"/duels", map[string]any{"requester_id": "u1"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the pair already duels", func() {
			deps.startErr = registry.ErrAlreadyActive
			resp, err := post(srv.URL+"/duels", map[string]any{"requester_id": "u1", "opponent_id": "u2"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("When the ceiling is hit", func() {
			deps.startErr = registry.ErrCapacityExceeded
			resp, err := post(srv.URL+"/duels", map[string]any{"requester_id": "u1", "opponent_id": "u2"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestCheckAndStatusEndpoints(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{
			snap: sampleSnapshot(),
			resolved: []model.Resolution{{
				ProblemID: "1-A",
				Name:      "P1",
				Outcome:   model.WonBy("alice"),
				Points:    100,
			}},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a check posts", func() {
			resp, err := post(srv.URL+"/duels/check", map[string]string{"user_id": "u1"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the resolutions come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got struct {
					Resolved []struct {
						ProblemID string `json:"problem_id"`
						Winner    string `json:"winner"`
						Points    int    `json:"points"`
					} `json:"resolved"`
				}
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Resolved, ShouldHaveLength, 1)
				So(got.Resolved[0].Winner, ShouldEqual, "alice")
				So(deps.lastUserID, ShouldEqual, "u1")
			})
		})

		Convey("When status queries an active member", func() {
			resp, err := http.Get(srv.URL + "/duels/status?user_id=u2") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When status misses the user_id", func() {
			resp, err := http.Get(srv.URL + "/duels/status") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the user has no session", func() {
			deps.statusErr = service.ErrNotInSession
			resp, err := http.Get(srv.URL + "/duels/status?user_id=u9") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the judge is unreachable mid-check", func() {
			deps.statusErr = fmt.Errorf("submissions for alice: %w", judge.ErrUnavailable)
			resp, err := post(srv.URL+"/duels/check", map[string]string{"user_id": "u1"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the outage is distinguishable from a fault", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				var got struct {
					Code string `json:"code"`
				}
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Code, ShouldEqual, "data_unavailable")
			})
		})
	})
}

func TestRecentEndpoint(t *testing.T) {
	Convey("Given archived duels", t, func() {
		deps := &stubDeps{records: []model.RecentDuelRecord{{ID: "d2"}, {ID: "d1"}}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the recent list is fetched", func() {
			resp, err := http.Get(srv.URL + "/recent") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then records come back newest first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got []model.RecentDuelRecord
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "d2")
			})
		})
	})
}

func TestHandleEndpoints(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{handle: "alice_cf"}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a handle is linked", func() {
			resp, err := post(srv.URL+"/handles", map[string]string{"user_id": "u1", "handle": "alice_cf"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		})

		Convey("When a handle is looked up", func() {
			resp, err := http.Get(srv.URL + "/handles/u1") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var got struct {
				Handle string `json:"handle"`
			}
			So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
			So(got.Handle, ShouldEqual, "alice_cf")
		})

		Convey("When an unlinked user is looked up", func() {
			deps.handle = ""
			resp, err := http.Get(srv.URL + "/handles/u9") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestTeamEndpoints(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{teamList: []teams.Team{{Name: "red", Members: []string{"u1"}}}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a team is created and listed", func() {
			resp, err := post(srv.URL+"/teams", map[string]string{"name": "red", "user_id": "u1"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			listResp, err := http.Get(srv.URL + "/teams") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer listResp.Body.Close()

			var got []teams.Team
			So(json.NewDecoder(listResp.Body).Decode(&got), ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Name, ShouldEqual, "red")
		})

		Convey("When a duplicate team is created", func() {
			deps.linkErr = teams.ErrTeamExists
			resp, err := post(srv.URL+"/teams", map[string]string{"name": "red", "user_id": "u2"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("When joining a missing team", func() {
			deps.linkErr = teams.ErrTeamNotFound
			resp, err := post(srv.URL+"/teams/join", map[string]string{"name": "ghost", "user_id": "u2"})
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a member asks for their own team", func() {
			resp, err := http.Get(srv.URL + "/teams/my?user_id=u1") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then their team comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got teams.Team
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Name, ShouldEqual, "red")
				So(deps.lastUserID, ShouldEqual, "u1")
			})
		})

		Convey("When a teamless user asks for their team", func() {
			deps.teamList = nil
			resp, err := http.Get(srv.URL + "/teams/my?user_id=u9") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the my-team query misses the user_id", func() {
			resp, err := http.Get(srv.URL + "/teams/my") //nolint:noctx // test
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}
