// Package cover turns a book's stored image URLs into an ordered list of
// candidates a renderer can try one after another.
package cover

import (
	"net/url"
	"strings"

	"github.com/okian/clerb/internal/domain/model"
)

// Zoom levels tried for catalog images, best first.
var zooms = []string{"3", "2", "1"}

// Candidates returns the de-duplicated image URLs for a book, best first.
// Catalog images expand into zoom variants ahead of the original URL.
func Candidates(b model.Book) []string {
	return FromURLs(b.CoverURL, b.ThumbnailURL)
}

// FromURLs is Candidates over raw URLs. Empty inputs are skipped.
func FromURLs(urls ...string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(urls)*(len(zooms)+1))
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, raw := range urls {
		u := Normalize(raw)
		if u == "" {
			continue
		}
		if IsCatalogImage(u) {
			for _, z := range zooms {
				add(variant(u, z))
			}
		}
		add(u)
	}
	return out
}

// Normalize forces https, whatever the scheme's case, and unescapes "&amp;". Blank input yields "".
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = strings.ReplaceAll(u, "&amp;", "&")
	const insecure = "http://"
	switch {
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case len(u) >= len(insecure) && strings.EqualFold(u[:len(insecure)], insecure):
		u = "https://" + u[len(insecure):]
	}
	return u
}

// IsCatalogImage reports whether u is served by the Google Books image hosts.
func IsCatalogImage(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "books.googleusercontent.com" {
		return true
	}
	return strings.HasPrefix(host, "books.google.")
}

// variant sets zoom and drops edge=curl, keeping other parameters in place.
func variant(u, zoom string) string {
	base, query, found := strings.Cut(u, "?")
	if !found {
		return base + "?zoom=" + zoom
	}
	parts := strings.Split(query, "&")
	kept := make([]string, 0, len(parts)+1)
	hasZoom := false
	for _, p := range parts {
		key, _, _ := strings.Cut(p, "=")
		switch key {
		case "":
			continue
		case "edge":
			if p == "edge=curl" {
				continue
			}
		case "zoom":
			if hasZoom {
				continue
			}
			p = "zoom=" + zoom
			hasZoom = true
		}
		kept = append(kept, p)
	}
	if !hasZoom {
		kept = append(kept, "zoom="+zoom)
	}
	return base + "?" + strings.Join(kept, "&")
}
