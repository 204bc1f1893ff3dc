package letterboxd

import (
	"fmt"
	"strings"
)

// FetchError reports a failed page fetch: network error, timeout, or a
// non-success status. It is scoped to one entry and never aborts a pass.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PageStructureError reports that a required page region was entirely
// absent, so the detail-page parse for that entry was abandoned.
type PageStructureError struct {
	URL    string
	Region string
}

func (e *PageStructureError) Error() string {
	return fmt.Sprintf("page %s: missing %s region", e.URL, e.Region)
}

// ValidationError reports an assembled film that failed schema validation
// before persistence. The payload stays out of the message; callers log it.
type ValidationError struct {
	Slug    string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("film %q: missing required fields: %s", e.Slug, strings.Join(e.Missing, ", "))
}

// Validate checks the identifying fields required before a film may be
// persisted. Descriptive fields stay optional (fail-soft extraction).
func (f Film) Validate() error {
	var missing []string
	if f.ID == "" {
		missing = append(missing, "film_id")
	}
	if f.Slug == "" {
		missing = append(missing, "film_slug")
	}
	if f.Title == "" {
		missing = append(missing, "film_title")
	}
	if f.Year <= 0 {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return &ValidationError{Slug: f.Slug, Missing: missing}
	}
	return nil
}
