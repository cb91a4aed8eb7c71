package rating_test

import (
	"testing"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

func TestEffectiveScore(t *testing.T) {
	Convey("Given rating rows", t, func() {
		Convey("When both scores are present", func() {
			v, ok := rating.EffectiveScore(model.Rating{PreRating: f(3), PostRating: f(8)})

			Convey("Then the post score wins", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 8)
			})
		})

		Convey("When only the pre score is present", func() {
			v, ok := rating.EffectiveScore(model.Rating{PreRating: f(4.5)})
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 4.5)
		})

		Convey("When only a zero post score is present", func() {
			v, ok := rating.EffectiveScore(model.Rating{PreRating: f(7), PostRating: f(0)})
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0)
		})

		Convey("When neither score is present", func() {
			_, ok := rating.EffectiveScore(model.Rating{})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestAverageVisible(t *testing.T) {
	Convey("Given a set of ratings", t, func() {
		Convey("When two visible rows are scored", func() {
			avg, ok := rating.AverageVisible([]model.Rating{
				{PreRating: f(8), IsVisible: true},
				{PreRating: f(4), PostRating: f(6), IsVisible: true},
			})

			Convey("Then it should average the effective scores", func() {
				So(ok, ShouldBeTrue)
				So(avg, ShouldEqual, 7)
			})
		})

		Convey("When hidden rows are present", func() {
			avg, ok := rating.AverageVisible([]model.Rating{
				{PostRating: f(10), IsVisible: false},
				{PostRating: f(2), IsVisible: true},
			})
			So(ok, ShouldBeTrue)
			So(avg, ShouldEqual, 2)
		})

		Convey("When no row is visible", func() {
			_, ok := rating.AverageVisible([]model.Rating{
				{PostRating: f(10)},
				{PreRating: f(1)},
			})
			So(ok, ShouldBeFalse)
		})

		Convey("When visible rows carry no score", func() {
			_, ok := rating.AverageVisible([]model.Rating{{IsVisible: true}, {IsVisible: true}})
			So(ok, ShouldBeFalse)
		})

		Convey("When the input is empty", func() {
			_, ok := rating.AverageVisible(nil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the mean is not a round number", func() {
			avg, ok := rating.AverageVisible([]model.Rating{
				{PreRating: f(7), IsVisible: true},
				{PreRating: f(8), IsVisible: true},
				{PreRating: f(8), IsVisible: true},
			})

			Convey("Then it should not be rounded", func() {
				So(ok, ShouldBeTrue)
				So(avg, ShouldAlmostEqual, 23.0/3.0, 1e-12)
			})
		})
	})
}

func TestSummarizeMember(t *testing.T) {
	Convey("Given a member's ratings", t, func() {
		Convey("When rows include hidden and unscored books", func() {
			s := rating.SummarizeMember([]model.Rating{
				{BookID: "a", PreRating: f(6), IsVisible: false},
				{BookID: "b", PostRating: f(9), IsVisible: true},
				{BookID: "c"},
			})

			Convey("Then hidden rows count and unscored rows do not", func() {
				So(s.RatedBooks, ShouldEqual, 2)
				So(s.Average, ShouldNotBeNil)
				So(*s.Average, ShouldEqual, 7.5)
			})
		})

		Convey("When the member has no ratings", func() {
			s := rating.SummarizeMember(nil)
			So(s.RatedBooks, ShouldEqual, 0)
			So(s.Average, ShouldBeNil)
		})
	})
}

func TestBreakdownOf(t *testing.T) {
	Convey("Given a book's ratings", t, func() {
		b := rating.BreakdownOf([]model.Rating{
			{PreRating: f(6), PostRating: f(8), IsVisible: true},
			{PreRating: f(4), IsVisible: true},
			{PreRating: f(10), PostRating: f(10), IsVisible: false},
		})

		Convey("Then pre and post averages should be split", func() {
			So(b.Visible, ShouldEqual, 2)
			So(b.Hidden, ShouldEqual, 1)
			So(b.PreCount, ShouldEqual, 2)
			So(*b.PreAverage, ShouldEqual, 5)
			So(b.PostCount, ShouldEqual, 1)
			So(*b.PostAverage, ShouldEqual, 8)
			So(*b.Average, ShouldEqual, 6)
		})

		Convey("When nothing is visible", func() {
			empty := rating.BreakdownOf([]model.Rating{{PreRating: f(3)}})
			So(empty.PreAverage, ShouldBeNil)
			So(empty.PostAverage, ShouldBeNil)
			So(empty.Average, ShouldBeNil)
		})
	})
}

func TestByBook(t *testing.T) {
	Convey("Given rows across books", t, func() {
		groups := rating.ByBook([]model.Rating{
			{ID: "1", BookID: "a"},
			{ID: "2", BookID: "b"},
			{ID: "3", BookID: "a"},
		})
		So(len(groups), ShouldEqual, 2)
		So(groups["a"][0].ID, ShouldEqual, "1")
		So(groups["a"][1].ID, ShouldEqual, "3")
	})
}
