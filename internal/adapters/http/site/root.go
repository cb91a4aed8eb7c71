// Package site serves the embedded landing page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// ErrMissingPage is returned when the embedded index cannot be read.
var ErrMissingPage = errors.New("landing page missing")

// Register attaches the landing page at "/" and its assets under /assets/.
// Any other unmatched path stays a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /{$}", NewRootHandler())
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(FS())))
}

// RootHandler serves index.html.
type RootHandler struct {
	fs http.FileSystem
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{fs: FS()}
}

// ServeHTTP writes the index page.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, err := h.fs.Open("index.html")
	if err != nil {
		http.Error(w, ErrMissingPage.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, ErrMissingPage.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}
