package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/cfduel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPairKey(t *testing.T) {
	Convey("Given two user ids", t, func() {
		Convey("When building pair keys in either order", func() {
			k1 := model.NewPairKey("alice", "bob")
			k2 := model.NewPairKey("bob", "alice")

			Convey("Then both orders produce the same key", func() {
				So(k1, ShouldResemble, k2)
				So(k1.Lo, ShouldEqual, "alice")
				So(k1.Hi, ShouldEqual, "bob")
			})

			Convey("And membership checks match both members", func() {
				So(k1.Contains("alice"), ShouldBeTrue)
				So(k1.Contains("bob"), ShouldBeTrue)
				So(k1.Contains("carol"), ShouldBeFalse)
			})
		})
	})
}

func TestRatingsFromArgs(t *testing.T) {
	Convey("Given command rating arguments", t, func() {
		Convey("When using the two-argument base form", func() {
			ratings, timeMin, err := model.RatingsFromArgs([]int{1200, 45}, 30)

			Convey("Then five ratings step up by 100 from the base", func() {
				So(err, ShouldBeNil)
				So(ratings, ShouldResemble, []int{1200, 1300, 1400, 1500, 1600})
				So(timeMin, ShouldEqual, 45)
			})
		})

		Convey("When using the four-argument range form", func() {
			ratings, timeMin, err := model.RatingsFromArgs([]int{800, 1600, 5, 60}, 30)

			Convey("Then ratings are evenly stepped across the range", func() {
				So(err, ShouldBeNil)
				So(ratings, ShouldResemble, []int{800, 1000, 1200, 1400, 1600})
				So(timeMin, ShouldEqual, 60)
			})
		})

		Convey("When using the range form with a single problem", func() {
			ratings, _, err := model.RatingsFromArgs([]int{900, 1400, 1, 20}, 30)

			Convey("Then only the minimum rating is used", func() {
				So(err, ShouldBeNil)
				So(ratings, ShouldResemble, []int{900})
			})
		})

		Convey("When using no arguments", func() {
			ratings, timeMin, err := model.RatingsFromArgs(nil, 30)

			Convey("Then the default 800..2400 schedule applies", func() {
				So(err, ShouldBeNil)
				So(ratings, ShouldResemble, []int{800, 1200, 1600, 2000, 2400})
				So(timeMin, ShouldEqual, 30)
			})
		})

		Convey("When arguments are malformed", func() {
			cases := [][]int{
				{1200},
				{1200, 30, 5},
				{0, 30},
				{1200, 0},
				{1600, 800, 5, 30},
				{800, 1600, 0, 30},
				{800, 1600, 5, -1},
			}

			Convey("Then every case fails with ErrInvalidArguments", func() {
				for _, args := range cases {
					_, _, err := model.RatingsFromArgs(args, 30)
					So(err, ShouldEqual, model.ErrInvalidArguments)
				}
			})
		})
	})
}

func TestPointsForCount(t *testing.T) {
	Convey("Given problem counts", t, func() {
		Convey("When five problems are selected", func() {
			So(model.PointsForCount(5), ShouldResemble, []int{100, 200, 300, 400, 500})
		})

		Convey("When another count is selected", func() {
			So(model.PointsForCount(3), ShouldResemble, []int{100, 200, 300})
			So(model.PointsForCount(7), ShouldResemble, []int{100, 200, 300, 400, 500, 600, 700})
		})
	})
}

func TestOutcome(t *testing.T) {
	Convey("Given outcome constructors", t, func() {
		So(model.Unresolved().Resolved(), ShouldBeFalse)
		So(model.WonBy("tourist").Resolved(), ShouldBeTrue)
		So(model.WonBy("tourist").Winner, ShouldEqual, "tourist")
		So(model.Tied().Resolved(), ShouldBeTrue)
		So(model.Tied().Winner, ShouldBeEmpty)
		So(model.DualAward().Resolved(), ShouldBeTrue)
	})
}

func newSession() *model.DuelSession {
	problems := []model.Problem{
		{ContestID: 1, Index: "A", Name: "Theatre Square", Rating: 800},
		{ContestID: 2, Index: "B", Name: "Spreadsheets", Rating: 1200},
	}
	return model.NewDuelSession(
		[2]string{"u1", "u2"},
		[2]string{"alice", "bob"},
		problems,
		[]int{800, 1200},
		30*time.Minute,
		"chan-1",
	)
}

func TestDecideWinner(t *testing.T) {
	Convey("Given a duel session", t, func() {
		s := newSession()

		Convey("When one handle has the higher score", func() {
			s.Scores["alice"] = 300
			s.Scores["bob"] = 100

			Convey("Then that handle wins outright", func() {
				v := s.DecideWinner()
				So(v.Winner, ShouldEqual, "alice")
				So(v.ByTieBreak, ShouldBeFalse)
			})
		})

		Convey("When scores are equal and one stamp is earlier", func() {
			s.Scores["alice"] = 200
			s.Scores["bob"] = 200
			s.ScoreReachedAt["alice"] = 100
			s.ScoreReachedAt["bob"] = 200

			Convey("Then the earlier stamp wins by tie-break", func() {
				v := s.DecideWinner()
				So(v.Winner, ShouldEqual, "alice")
				So(v.ByTieBreak, ShouldBeTrue)
			})
		})

		Convey("When scores are equal and only one handle has a stamp", func() {
			s.Scores["alice"] = 0
			s.Scores["bob"] = 0
			s.ScoreReachedAt["bob"] = 50

			Convey("Then the stamped handle wins by tie-break", func() {
				v := s.DecideWinner()
				So(v.Winner, ShouldEqual, "bob")
				So(v.ByTieBreak, ShouldBeTrue)
			})
		})

		Convey("When scores and stamps are both equal", func() {
			s.Scores["alice"] = 100
			s.Scores["bob"] = 100
			s.ScoreReachedAt["alice"] = 70
			s.ScoreReachedAt["bob"] = 70

			Convey("Then the duel is a draw", func() {
				So(s.DecideWinner(), ShouldResemble, model.Verdict{})
			})
		})
	})
}

func TestStampScore(t *testing.T) {
	Convey("Given a session", t, func() {
		s := newSession()
		t0 := time.Unix(1000, 0)
		t1 := time.Unix(2000, 0)

		Convey("When stamping a handle twice", func() {
			s.StampScore("alice", t0)
			s.StampScore("alice", t1)

			Convey("Then the first write wins", func() {
				So(s.ScoreReachedAt["alice"], ShouldEqual, int64(1000))
			})
		})
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given a session with one resolved problem", t, func() {
		s := newSession()
		pid := s.Problems[0].ID()
		s.PerProblem[pid].Outcome = model.WonBy("alice")
		s.Scores["alice"] = 100

		Convey("When snapshotting", func() {
			snap := s.Snapshot(s.StartTime.Add(10 * time.Minute))

			Convey("Then resolved problems have no link and scores copy over", func() {
				So(snap.Problems[0].Link, ShouldBeEmpty)
				So(snap.Problems[1].Link, ShouldNotBeEmpty)
				So(snap.Scores["alice"], ShouldEqual, 100)
				So(snap.TimeLeft, ShouldEqual, 20*time.Minute)
			})

			Convey("And mutating the snapshot leaves the session alone", func() {
				snap.Scores["alice"] = 9999
				So(s.Scores["alice"], ShouldEqual, 100)
			})
		})
	})
}

func TestRecentRecordRoundTrip(t *testing.T) {
	Convey("Given a finalized session", t, func() {
		s := newSession()
		pid := s.Problems[0].ID()
		s.PerProblem[pid].Outcome = model.WonBy("bob")
		s.PerProblem[pid].FirstSolveTime = 12345
		s.Scores["bob"] = 100
		s.ScoreReachedAt["bob"] = 12400
		end := s.StartTime.Add(15 * time.Minute)

		Convey("When archiving and reloading through JSON", func() {
			rec := model.NewRecentRecord(s, end)
			data, err := json.Marshal(rec)
			So(err, ShouldBeNil)

			var got model.RecentDuelRecord
			So(json.Unmarshal(data, &got), ShouldBeNil)

			Convey("Then the record reproduces identical state", func() {
				So(got, ShouldResemble, rec)
				So(got.Handles, ShouldResemble, [2]string{"alice", "bob"})
				So(got.Scores["bob"], ShouldEqual, 100)
				So(got.PerProblem[pid].Outcome, ShouldResemble, model.WonBy("bob"))
				So(got.Verdict.Winner, ShouldEqual, "bob")
			})

			Convey("And the duration derives from start and end", func() {
				So(rec.Duration(), ShouldEqual, 15*time.Minute)
			})
		})
	})
}
