package catalog

import (
	"context"
	"net/url"
	"strings"
)

const (
	googleProvider   = "google_books"
	searchMaxResults = 8
	unknownAuthor    = "Unknown"
)

// Volume is a Google Books search hit.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo carries the bibliographic fields used by the club.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors,omitempty"`
	Description         string               `json:"description,omitempty"`
	PageCount           any                  `json:"pageCount,omitempty"`
	PublishedDate       string               `json:"publishedDate,omitempty"`
	ImageLinks          *ImageLinks          `json:"imageLinks,omitempty"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers,omitempty"`
}

type ImageLinks struct {
	Thumbnail      string `json:"thumbnail,omitempty"`
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
}

type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// Author joins the volume's authors, or returns "Unknown".
func (v Volume) Author() string {
	if len(v.VolumeInfo.Authors) == 0 {
		return unknownAuthor
	}
	return strings.Join(v.VolumeInfo.Authors, ", ")
}

// ISBN prefers ISBN-13 over ISBN-10.
func (v Volume) ISBN() string {
	var isbn10 string
	for _, id := range v.VolumeInfo.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// Pages returns the volume's page count when it is known.
func (v Volume) Pages() *int {
	return ExactPageCount(v.VolumeInfo.PageCount)
}

// CoverURL upgrades the volume's thumbnail to https and the larger zoom
// level. It returns "" when the volume has no image.
func CoverURL(v Volume) string {
	links := v.VolumeInfo.ImageLinks
	if links == nil {
		return ""
	}
	u := links.Thumbnail
	if u == "" {
		u = links.SmallThumbnail
	}
	if u == "" {
		return ""
	}
	u = strings.Replace(u, "http://", "https://", 1)
	return strings.Replace(u, "zoom=1", "zoom=2", 1)
}

// ThumbnailURL returns the small thumbnail over https.
func ThumbnailURL(v Volume) string {
	links := v.VolumeInfo.ImageLinks
	if links == nil {
		return ""
	}
	u := links.SmallThumbnail
	if u == "" {
		u = links.Thumbnail
	}
	return strings.Replace(u, "http://", "https://", 1)
}

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	baseURL string
	key     string
	client  *httpClient
}

// NewGoogleBooks creates a client for baseURL, e.g.
// "https://www.googleapis.com/books/v1". key may be empty.
func NewGoogleBooks(baseURL, key string, opts ...Option) *GoogleBooks {
	return &GoogleBooks{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  newHTTPClient(googleProvider, opts),
	}
}

type searchResponse struct {
	Items []Volume `json:"items"`
}

// Search returns up to eight volumes for q. A blank query returns nothing
// without contacting the provider.
func (g *GoogleBooks) Search(ctx context.Context, q string) ([]Volume, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Volume{}, nil
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", "8")
	if g.key != "" {
		params.Set("key", g.key)
	}

	var resp searchResponse
	found, err := g.client.getJSON(ctx, g.baseURL+"/volumes?"+params.Encode(),
		"catalog:google:search:"+strings.ToLower(q), &resp)
	if err != nil {
		return nil, err
	}
	if !found || resp.Items == nil {
		return []Volume{}, nil
	}
	if len(resp.Items) > searchMaxResults {
		resp.Items = resp.Items[:searchMaxResults]
	}
	return resp.Items, nil
}

// Volume fetches one volume by id. It returns nil when the provider does not
// know the id.
func (g *GoogleBooks) Volume(ctx context.Context, id string) (*Volume, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	endpoint := g.baseURL + "/volumes/" + url.PathEscape(id)
	if g.key != "" {
		endpoint += "?key=" + url.QueryEscape(g.key)
	}

	var v Volume
	found, err := g.client.getJSON(ctx, endpoint, "catalog:google:volume:"+id, &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}
