package seeding

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateScore(t *testing.T) {
	Convey("Generated scores stay on the rating scale", t, func() {
		for range 500 {
			v := generateScore()
			So(v, ShouldBeBetweenOrEqual, 0, 10)
			So(math.Round(v*10)/10, ShouldEqual, v)

			d := driftScore(v)
			So(d, ShouldBeBetweenOrEqual, 0, 10)
			So(math.Abs(d-v), ShouldBeLessThanOrEqualTo, 2.05)
		}
	})

	Convey("Member names are unique across calls", t, func() {
		seen := map[string]bool{}
		for i := range 50 {
			n := memberName(i)
			So(seen[n], ShouldBeFalse)
			seen[n] = true
		}
	})
}

func TestConfigNormalize(t *testing.T) {
	Convey("Zero values get defaults", t, func() {
		var c Config
		c.normalize()
		So(c.Members, ShouldEqual, DefaultMembers)
		So(c.Books, ShouldEqual, DefaultBooks)
		So(c.Workers, ShouldEqual, 1)
		So(c.Timeout, ShouldEqual, DefaultTimeout)
	})
}

func TestCompare(t *testing.T) {
	Convey("compare reports slot disagreements", t, func() {
		So(compare("favorite", nil, nil), ShouldBeNil)
		err := compare("favorite", nil, &scoredBook{Book: book{ID: "b"}})
		So(errors.Is(err, ErrMismatch), ShouldBeTrue)
	})
}
