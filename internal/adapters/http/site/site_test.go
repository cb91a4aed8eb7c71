package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a mux with the site registered", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		Convey("The root serves the landing page", func() {
			w := get("/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, `href="/api-docs"`)
		})

		Convey("Stylesheets are served from /assets/", func() {
			w := get("/assets/style.css")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})

		Convey("Unknown paths are not swallowed by the root", func() {
			So(get("/some-asset").Code, ShouldEqual, http.StatusNotFound)
			So(get("/assets/missing.js").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Other methods on the root are rejected", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Registering on a nil mux panics", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
