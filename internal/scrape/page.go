// Package scrape turns Letterboxd markup into typed records.
//
// The upstream site serves a lazy-loaded DOM that differs from what a
// browser renders, so selectors here target the raw document, and several
// counts live behind supplementary csi endpoints rather than the page
// itself. Every extractor is fail-soft: a missing or renamed element makes
// that one field absent and never aborts the surrounding record.
package scrape

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// FilmPage is an immutable parse context for one film detail page. It is
// built once and read by every field extractor, so extractor calls have no
// ordering dependencies between them.
type FilmPage struct {
	url    string
	header *goquery.Selection
	body   *goquery.Selection
	footer *goquery.Selection
	script *embeddedScript
}

// embeddedScript mirrors the ld+json metadata block embedded in the page.
// It is more reliable than the surrounding HTML for the fields it carries.
type embeddedScript struct {
	URL               string        `json:"url"`
	Image             string        `json:"image"`
	AggregateRating   *aggregate    `json:"aggregateRating"`
	ProductionCompany []namedEntity `json:"productionCompany"`
}

type aggregate struct {
	RatingValue float64 `json:"ratingValue"`
	RatingCount int     `json:"ratingCount"`
	ReviewCount int     `json:"reviewCount"`
}

type namedEntity struct {
	Name string `json:"name"`
}

// NewFilmPage parses a detail page body into a FilmPage context.
//
// The header and tabbed-content regions are required: without them the
// page is not a film page (or the lazy DOM came back empty) and the parse
// is abandoned with a PageStructureError. The embedded metadata block is
// optional; when it is absent or malformed the extractors that depend on
// it report absence instead.
func NewFilmPage(url string, body []byte) (*FilmPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &letterboxd.PageStructureError{URL: url, Region: "document"}
	}

	header := doc.Find("section.film-header-group").First()
	if header.Length() == 0 {
		header = doc.Find("section#featured-film-header").First()
	}
	if header.Length() == 0 {
		return nil, &letterboxd.PageStructureError{URL: url, Region: "header"}
	}

	content := doc.Find("div#tabbed-content").First()
	if content.Length() == 0 {
		return nil, &letterboxd.PageStructureError{URL: url, Region: "tabbed-content"}
	}

	return &FilmPage{
		url:    url,
		header: header,
		body:   content,
		footer: doc.Find("p.text-link.text-footer").First(),
		script: parseEmbeddedScript(doc),
	}, nil
}

// parseEmbeddedScript reads the ld+json block. The JSON payload sits
// between CDATA comment markers, so the text is sliced between the first
// closing and the next opening marker before unmarshaling.
func parseEmbeddedScript(doc *goquery.Document) *embeddedScript {
	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if raw == "" {
		return nil
	}
	if i := strings.Index(raw, "*/"); i >= 0 {
		raw = raw[i+2:]
	}
	if i := strings.Index(raw, "/*"); i >= 0 {
		raw = raw[:i]
	}
	var script embeddedScript
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &script); err != nil {
		return nil
	}
	return &script
}

// HasMetadataBlock reports whether the embedded metadata block parsed.
func (p *FilmPage) HasMetadataBlock() bool {
	return p.script != nil
}
