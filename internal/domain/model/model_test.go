package model_test

import (
	"testing"

	"github.com/okian/aptrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyFor(t *testing.T) {
	Convey("Given a listing link", t, func() {
		link := "https://www.apartments.com/the-ashland-brooklyn-ny/abc123/"

		Convey("Then the key is a stable 64 character hex digest", func() {
			key := model.KeyFor(link)
			So(key, ShouldHaveLength, 64)
			So(model.KeyFor(link), ShouldEqual, key)
		})

		Convey("Then surrounding whitespace does not change the key", func() {
			So(model.KeyFor("  "+link+"\n"), ShouldEqual, model.KeyFor(link))
		})

		Convey("Then different links produce different keys", func() {
			So(model.KeyFor(link+"x"), ShouldNotEqual, model.KeyFor(link))
		})

		Convey("Then the digest matches the known SHA-256 of the input", func() {
			So(model.KeyFor("abc"), ShouldEqual, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
		})
	})
}

func TestOutcomeRelations(t *testing.T) {
	Convey("Given an outcome where a beat b", t, func() {
		o := model.Outcome{WinnerKey: "a", LoserKey: "b"}

		So(o.Involves("a"), ShouldBeTrue)
		So(o.Involves("b"), ShouldBeTrue)
		So(o.Involves("c"), ShouldBeFalse)
		So(o.Connects("a", "b"), ShouldBeTrue)
		So(o.Connects("b", "a"), ShouldBeTrue)
		So(o.Connects("a", "c"), ShouldBeFalse)
	})
}
