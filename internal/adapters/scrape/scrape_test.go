package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"

	. "github.com/smartystreets/goconvey/convey"
)

const page = `<html><body>
<div class="carouselInner">
  <img data-src="/photos/1.jpg" src="/placeholder.gif">
  <img src="https://cdn.example.com/2.JPG">
  <img src="/photos/1.jpg">
  <img src="/logo.png">
  <img data-src="3.jpeg">
</div>
<img src="/photos/4.jpg"><img src="/photos/5.jpg"><img src="/photos/6.jpg"><img src="/photos/7.jpg">
</body></html>`

func TestExtract(t *testing.T) {
	Convey("Given a listing page", t, func() {
		doc, err := html.Parse(strings.NewReader(page))
		So(err, ShouldBeNil)
		base, _ := url.Parse("https://www.apartments.com/unit/abc/")

		Convey("When extracting without a limit", func() {
			imgs := Extract(doc, base, 0)

			Convey("Then JPEGs are resolved, de-duplicated and kept in page order", func() {
				So(imgs, ShouldResemble, []string{
					"https://www.apartments.com/photos/1.jpg",
					"https://cdn.example.com/2.JPG",
					"https://www.apartments.com/unit/abc/3.jpeg",
					"https://www.apartments.com/photos/4.jpg",
					"https://www.apartments.com/photos/5.jpg",
					"https://www.apartments.com/photos/6.jpg",
					"https://www.apartments.com/photos/7.jpg",
				})
			})
		})

		Convey("When extracting with the default cap", func() {
			imgs := Extract(doc, base, DefaultMaxImages)

			Convey("Then at most six are returned", func() {
				So(imgs, ShouldHaveLength, 6)
			})
		})
	})
}

func TestScraper_Images(t *testing.T) {
	ctx := context.Background()

	Convey("Given a listing server", t, func() {
		var ua string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua = r.Header.Get("User-Agent")
			switch r.URL.Path {
			case "/listing":
				_, _ = w.Write([]byte(page))
			case "/bare":
				_, _ = w.Write([]byte("<html><body><p>no photos</p></body></html>"))
			default:
				w.WriteHeader(http.StatusForbidden)
			}
		}))
		defer srv.Close()
		s := New(WithMaxImages(2))

		Convey("When scraping a listing", func() {
			imgs, err := s.Images(ctx, srv.URL+"/listing")

			Convey("Then the capped image list is returned with a browser user agent", func() {
				So(err, ShouldBeNil)
				So(imgs, ShouldResemble, []string{srv.URL + "/photos/1.jpg", "https://cdn.example.com/2.JPG"})
				So(ua, ShouldEqual, DefaultUserAgent)
			})
		})

		Convey("When the page has no photos", func() {
			imgs, err := s.Images(ctx, srv.URL+"/bare")

			Convey("Then an empty list is returned", func() {
				So(err, ShouldBeNil)
				So(imgs, ShouldBeEmpty)
			})
		})

		Convey("When the site refuses", func() {
			_, err := s.Images(ctx, srv.URL+"/blocked")

			Convey("Then ErrFetch is returned", func() {
				So(errors.Is(err, ErrFetch), ShouldBeTrue)
			})
		})

		Convey("When the link is not a web URL", func() {
			_, err := s.Images(ctx, "nan")

			Convey("Then ErrInvalidURL is returned", func() {
				So(errors.Is(err, ErrInvalidURL), ShouldBeTrue)
			})
		})
	})
}
