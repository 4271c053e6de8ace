package teams_test

import (
	"testing"

	"github.com/okian/cfduel/internal/adapters/teams"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCreateAndJoin(t *testing.T) {
	Convey("Given an empty team manager", t, func() {
		m := teams.New()

		Convey("When a team is created and joined", func() {
			So(m.Create("red", "u1"), ShouldBeNil)
			So(m.Join("red", "u2"), ShouldBeNil)

			Convey("Then membership and listing reflect it", func() {
				name, ok := m.TeamOf("u2")
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "red")

				list := m.List()
				So(list, ShouldHaveLength, 1)
				So(list[0].Name, ShouldEqual, "red")
				So(list[0].Members, ShouldResemble, []string{"u1", "u2"})
			})

			Convey("Then each member sees the full team", func() {
				team, err := m.TeamFor("u2")
				So(err, ShouldBeNil)
				So(team.Name, ShouldEqual, "red")
				So(team.Members, ShouldResemble, []string{"u1", "u2"})
			})

			Convey("Then an outsider has no team to see", func() {
				_, err := m.TeamFor("u9")
				So(err, ShouldWrap, teams.ErrNotInTeam)
			})
		})

		Convey("When a duplicate team name is created", func() {
			So(m.Create("red", "u1"), ShouldBeNil)
			err := m.Create("red", "u2")

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, teams.ErrTeamExists)
			})
		})

		Convey("When an empty name is used", func() {
			So(m.Create("", "u1"), ShouldWrap, teams.ErrInvalidName)
		})

		Convey("When joining a missing team", func() {
			So(m.Join("ghost", "u1"), ShouldWrap, teams.ErrTeamNotFound)
		})
	})
}

func TestExclusiveMembership(t *testing.T) {
	Convey("Given a user already in a team", t, func() {
		m := teams.New()
		So(m.Create("red", "u1"), ShouldBeNil)
		So(m.Create("blue", "u2"), ShouldBeNil)

		Convey("When they create or join another team", func() {
			errCreate := m.Create("green", "u1")
			errJoin := m.Join("blue", "u1")

			Convey("Then both are rejected", func() {
				So(errCreate, ShouldWrap, teams.ErrAlreadyInTeam)
				So(errJoin, ShouldWrap, teams.ErrAlreadyInTeam)
			})
		})
	})
}

func TestLeaveAndDisband(t *testing.T) {
	Convey("Given a team with two members", t, func() {
		m := teams.New()
		So(m.Create("red", "u1"), ShouldBeNil)
		So(m.Join("red", "u2"), ShouldBeNil)

		Convey("When one member leaves", func() {
			So(m.Leave("u1"), ShouldBeNil)

			Convey("Then the team survives without them", func() {
				_, ok := m.TeamOf("u1")
				So(ok, ShouldBeFalse)

				list := m.List()
				So(list, ShouldHaveLength, 1)
				So(list[0].Members, ShouldResemble, []string{"u2"})
			})

			Convey("Then the last leaver disbands the team", func() {
				So(m.Leave("u2"), ShouldBeNil)
				So(m.List(), ShouldBeEmpty)

				Convey("And the name becomes reusable", func() {
					So(m.Create("red", "u3"), ShouldBeNil)
				})
			})
		})

		Convey("When a non-member leaves", func() {
			So(m.Leave("u9"), ShouldWrap, teams.ErrNotInTeam)
		})
	})
}
