package scrape

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// CatalogPage is the parse context for one page of a ranked list.
type CatalogPage struct {
	doc *goquery.Document
}

// NewCatalogPage parses a catalog page body.
func NewCatalogPage(body []byte) (*CatalogPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &CatalogPage{doc: doc}, nil
}

// Meta extracts list-level fields from fixed marker elements. Each field
// is independently fail-soft: a missing marker leaves it at its zero
// value, and parsing continues.
func (p *CatalogPage) Meta() letterboxd.CatalogMeta {
	meta := letterboxd.CatalogMeta{
		Name:        strings.TrimSpace(p.doc.Find("h1.title-1").First().Text()),
		PublishedAt: timestampIn(p.doc, "span.published"),
		LastUpdate:  timestampIn(p.doc, "span.updated"),
	}
	pages := p.doc.Find("div.paginate-pages li")
	if pages.Length() > 0 {
		if total, err := strconv.Atoi(strings.TrimSpace(pages.Last().Text())); err == nil {
			meta.TotalPages = total
		}
	}
	if meta.TotalPages == 0 {
		meta.TotalPages = 1
	}
	return meta
}

// Entries enumerates the ranked items on this page. startRank seeds the
// fallback rank for poster containers missing a visible list number (rank
// markers disappear on lists rendered without numbering).
func (p *CatalogPage) Entries(startRank int) []letterboxd.CatalogEntryRef {
	var entries []letterboxd.CatalogEntryRef
	p.doc.Find("li.poster-container").Each(func(i int, li *goquery.Selection) {
		poster := li.Find("div.film-poster").First()
		if poster.Length() == 0 {
			return
		}
		entry := letterboxd.CatalogEntryRef{Rank: startRank + i}
		if text := strings.TrimSpace(li.Find("p.list-number").First().Text()); text != "" {
			if rank, err := strconv.Atoi(strings.ReplaceAll(text, ",", "")); err == nil {
				entry.Rank = rank
			}
		}
		entry.FilmID, _ = poster.Attr("data-film-id")
		entry.Slug, _ = poster.Attr("data-film-slug")
		entry.TargetPath, _ = poster.Attr("data-target-link")
		if entry.TargetPath == "" && entry.Slug != "" {
			entry.TargetPath = "/film/" + entry.Slug + "/"
		}
		if entry.FilmID == "" {
			entry.FilmID = entry.Slug
		}
		if entry.FilmID == "" {
			return
		}
		entries = append(entries, entry)
	})
	return entries
}

// ExtraPages resolves the additional page paths from the pagination
// control. The current page renders as a bare span, so it is excluded.
// A missing pagination container means a single-page list, not an error.
func (p *CatalogPage) ExtraPages() []string {
	var pages []string
	p.doc.Find("div.paginate-pages ul li").Each(func(_ int, li *goquery.Selection) {
		if href, ok := li.Find("a").First().Attr("href"); ok && href != "" {
			pages = append(pages, href)
		}
	})
	return pages
}

// timestampIn reads the datetime attribute of a time element under the
// given marker span.
func timestampIn(doc *goquery.Document, selector string) *time.Time {
	raw, ok := doc.Find(selector + " time").First().Attr("datetime")
	if !ok {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
