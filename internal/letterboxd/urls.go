package letterboxd

import "strings"

// DefaultBaseURL is the upstream site root.
const DefaultBaseURL = "https://letterboxd.com"

// FilmPageURL returns the detail page URL for a film slug.
func FilmPageURL(base, slug string) string {
	return trimBase(base) + "/film/" + slug + "/"
}

// StatsURL returns the supplementary stats fragment endpoint. Watch, list
// and like counts are served here before the page DOM is populated.
func StatsURL(base, slug string) string {
	return trimBase(base) + "/csi/film/" + slug + "/stats/"
}

// RatingHistogramURL returns the rating histogram fragment endpoint.
func RatingHistogramURL(base, slug string) string {
	return trimBase(base) + "/csi/film/" + slug + "/rating-histogram/"
}

// ResolveTarget joins a site-relative path (e.g. a poster container's
// data-target-link) onto the base URL. Absolute URLs pass through.
func ResolveTarget(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return trimBase(base) + path
}

func trimBase(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}
