package headless

import (
	"bytes"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// tabbedContentMarker is the region every film detail page must carry in
// its lazy DOM; when it is absent the page came back hollow and a rendered
// fetch is worth one retry.
var tabbedContentMarker = []byte(`id="tabbed-content"`)

// Detector promotes hollow detail pages to a rendered fetch.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// ShouldRender reports whether the fetched body warrants a rendered retry.
func (Detector) ShouldRender(resp letterboxd.FetchResponse) bool {
	if resp.Rendered || resp.StatusCode != 200 {
		return false
	}
	if len(resp.Body) == 0 {
		return true
	}
	return !bytes.Contains(resp.Body, tabbedContentMarker)
}
