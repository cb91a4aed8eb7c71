package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	openLibraryProvider = "open_library"
	coversBaseURL       = "https://covers.openlibrary.org"
)

// CoverSize is an Open Library cover size.
type CoverSize string

const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

func (s CoverSize) orLarge() CoverSize {
	switch s {
	case CoverSmall, CoverMedium, CoverLarge:
		return s
	default:
		return CoverLarge
	}
}

// Edition is the subset of an Open Library edition record the club uses.
type Edition struct {
	Title         string `json:"title,omitempty"`
	NumberOfPages any    `json:"number_of_pages,omitempty"`
	Covers        []int  `json:"covers,omitempty"`
}

// Pages returns the edition's page count when it is known.
func (e Edition) Pages() *int {
	return ExactPageCount(e.NumberOfPages)
}

// OpenLibrary queries the Open Library edition API.
type OpenLibrary struct {
	baseURL string
	client  *httpClient
}

// NewOpenLibrary creates a client for baseURL, e.g. "https://openlibrary.org".
func NewOpenLibrary(baseURL string, opts ...Option) *OpenLibrary {
	return &OpenLibrary{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(openLibraryProvider, opts),
	}
}

// EditionByISBN returns the edition for isbn, or nil when there is none.
func (o *OpenLibrary) EditionByISBN(ctx context.Context, isbn string) (*Edition, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}
	var e Edition
	found, err := o.client.getJSON(ctx, o.baseURL+"/isbn/"+url.PathEscape(isbn)+".json",
		"catalog:openlibrary:isbn:"+isbn, &e)
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

// CoverByISBN returns the cover image URL for isbn.
func CoverByISBN(isbn string, size CoverSize) string {
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", coversBaseURL, normalizeISBN(isbn), size.orLarge())
}

// CoverByID returns the cover image URL for an Open Library cover id.
func CoverByID(coverID int, size CoverSize) string {
	return fmt.Sprintf("%s/b/id/%d-%s.jpg", coversBaseURL, coverID, size.orLarge())
}

func normalizeISBN(isbn string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == 'X', r == 'x':
			return r
		default:
			return -1
		}
	}, isbn)
}
