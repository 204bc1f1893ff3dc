package scrape

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// castStopWord appears as a trailing toggle link inside the cast list.
const castStopWord = "Show All…"

// Title returns the film title from the header region.
func (p *FilmPage) Title() (string, bool) {
	title := strings.TrimSpace(p.header.Find("h1").First().Text())
	return title, title != ""
}

// Year returns the release year. Newer pages carry it in div.releaseyear,
// older ones in small.number.
func (p *FilmPage) Year() (int, bool) {
	text := strings.TrimSpace(p.header.Find("div.releaseyear").First().Text())
	if text == "" {
		text = strings.TrimSpace(p.header.Find("small.number").First().Text())
	}
	year, err := strconv.Atoi(text)
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

// Cast returns the billed cast in page order.
func (p *FilmPage) Cast() ([]string, bool) {
	list := p.body.Find("div.cast-list").First()
	if list.Length() == 0 {
		return nil, false
	}
	var cast []string
	list.Find("p a.text-slug").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name != "" && name != castStopWord {
			cast = append(cast, name)
		}
	})
	return cast, true
}

// Crew returns the role -> contributors mapping in page order. A role
// heading whose sibling block is missing is kept with nil names rather
// than omitted.
func (p *FilmPage) Crew() ([]letterboxd.CrewRole, bool) {
	div := p.body.Find("div.-crewroles").First()
	if div.Length() == 0 {
		return nil, false
	}
	var crew []letterboxd.CrewRole
	div.Find("h3").Each(func(_ int, heading *goquery.Selection) {
		label := strings.TrimSpace(heading.Find("span.crewrole").First().Text())
		if label == "" {
			label = strings.TrimSpace(heading.Text())
		}
		if label == "" {
			return
		}
		role := letterboxd.CrewRole{Role: normalizeRole(label)}
		// The contributor block is the next div sibling before the next
		// role heading; decorative elements may sit in between.
		sibling := heading.Next()
		for sibling.Length() > 0 && goquery.NodeName(sibling) != "div" && goquery.NodeName(sibling) != "h3" {
			sibling = sibling.Next()
		}
		if sibling.Length() > 0 && goquery.NodeName(sibling) == "div" {
			names := make([]string, 0, 2)
			sibling.Find("p a").Each(func(_ int, a *goquery.Selection) {
				if name := strings.TrimSpace(a.Text()); name != "" {
					names = append(names, name)
				}
			})
			role.Names = names
		}
		crew = append(crew, role)
	})
	return crew, true
}

// Genres returns genre names from the genres tab. Anchors whose target is
// outside the genre namespace (themes, nanogenres) are excluded.
func (p *FilmPage) Genres() ([]string, bool) {
	tab := p.body.Find("div#tab-genres").First()
	if tab.Length() == 0 {
		return nil, false
	}
	var genres []string
	tab.Find("a.text-slug").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "/films/genre") {
			return
		}
		if name := strings.TrimSpace(a.Text()); name != "" {
			genres = append(genres, name)
		}
	})
	return genres, len(genres) > 0
}

// Runtime returns the runtime in minutes from the footer text. The footer
// reads like "250 mins  More at IMDb TMDb" with non-breaking spaces; the
// absence of the minutes marker is an extraction miss, not an error.
func (p *FilmPage) Runtime() (int, bool) {
	if p.footer.Length() == 0 {
		return 0, false
	}
	text := normalizeText(p.footer.Text())
	idx := strings.Index(text, "mins")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(text[:idx])
	if len(fields) == 0 {
		return 0, false
	}
	mins, err := strconv.Atoi(strings.ReplaceAll(fields[len(fields)-1], ",", ""))
	if err != nil || mins <= 0 {
		return 0, false
	}
	return mins, true
}

// ProductionCompanies returns producer names from the metadata block.
func (p *FilmPage) ProductionCompanies() ([]string, bool) {
	if p.script == nil || len(p.script.ProductionCompany) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(p.script.ProductionCompany))
	for _, company := range p.script.ProductionCompany {
		if company.Name != "" {
			names = append(names, company.Name)
		}
	}
	return names, len(names) > 0
}

// Rating returns the aggregate rating value from the metadata block. Films
// without embedded aggregate data fall back to the classic histogram
// rating, which the caller computes from the histogram endpoint.
func (p *FilmPage) Rating() (float64, bool) {
	if p.script == nil || p.script.AggregateRating == nil {
		return 0, false
	}
	return p.script.AggregateRating.RatingValue, true
}

// RatingCount returns the aggregate rating count from the metadata block.
func (p *FilmPage) RatingCount() (int, bool) {
	if p.script == nil || p.script.AggregateRating == nil {
		return 0, false
	}
	return p.script.AggregateRating.RatingCount, true
}

// ReviewCount returns the review count from the metadata block.
func (p *FilmPage) ReviewCount() (int, bool) {
	if p.script == nil || p.script.AggregateRating == nil {
		return 0, false
	}
	return p.script.AggregateRating.ReviewCount, true
}

// Poster returns the poster image URL from the metadata block.
func (p *FilmPage) Poster() (string, bool) {
	if p.script == nil || p.script.Image == "" {
		return "", false
	}
	return p.script.Image, true
}

// Slug derives the film slug from the canonical URL in the metadata block
// (scheme://host/film/<slug>/).
func (p *FilmPage) Slug() (string, bool) {
	if p.script == nil {
		return "", false
	}
	parts := strings.Split(p.script.URL, "/")
	if len(parts) < 5 || parts[4] == "" {
		return "", false
	}
	return parts[4], true
}

// ExtractFilm runs every page-local extractor and assembles the film plus
// the stats fields available on the page itself. Watch/list/like counts
// and the classic rating require the csi endpoints and are filled in by
// the caller. The returned slice names the fields that came back absent.
func ExtractFilm(p *FilmPage, id string) (letterboxd.Film, letterboxd.FilmStats, []string) {
	var (
		film    letterboxd.Film
		stats   letterboxd.FilmStats
		missing []string
	)
	miss := func(field string) { missing = append(missing, field) }

	if slug, ok := p.Slug(); ok {
		film.Slug = slug
	} else {
		miss("film_slug")
	}
	film.ID = id
	if film.ID == "" {
		film.ID = film.Slug
	}
	if title, ok := p.Title(); ok {
		film.Title = title
	} else {
		miss("film_title")
	}
	if year, ok := p.Year(); ok {
		film.Year = year
	} else {
		miss("year")
	}
	if genres, ok := p.Genres(); ok {
		film.Genres = genres
	} else {
		miss("genre")
	}
	if runtime, ok := p.Runtime(); ok {
		film.Runtime = runtime
	} else {
		miss("runtime")
	}
	if cast, ok := p.Cast(); ok {
		film.Cast = cast
	} else {
		miss("cast")
	}
	if companies, ok := p.ProductionCompanies(); ok {
		film.ProductionCompanies = companies
	} else {
		miss("production_company")
	}
	if crew, ok := p.Crew(); ok {
		film.Crew = crew
	} else {
		miss("crew")
	}
	if poster, ok := p.Poster(); ok {
		film.PosterURL = poster
	} else {
		miss("poster")
	}
	if rating, ok := p.Rating(); ok {
		stats.Rating = &rating
	} else {
		miss("rating")
	}
	if count, ok := p.RatingCount(); ok {
		stats.RatingCount = &count
	} else {
		miss("rating_count")
	}
	if count, ok := p.ReviewCount(); ok {
		stats.ReviewCount = &count
	} else {
		miss("review_count")
	}
	return film, stats, missing
}

// normalizeRole lowercases a role label and joins words with underscores,
// matching the role keys the store has always used.
func normalizeRole(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// normalizeText strips the encoding artifacts the upstream markup mixes
// into text nodes so tokenizing works on plain spaces.
func normalizeText(s string) string {
	replacer := strings.NewReplacer(
		" ", " ", // no-break space
		" ", " ", // narrow no-break space
		"​", "", // zero-width space
	)
	return strings.TrimSpace(replacer.Replace(s))
}
