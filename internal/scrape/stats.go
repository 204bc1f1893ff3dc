package scrape

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var notNumeric = regexp.MustCompile(`[^0-9]`)

// StatsCounts holds the counts served by the stats csi fragment. Each
// field is independently optional.
type StatsCounts struct {
	WatchCount          *int
	ListAppearanceCount *int
	LikeCount           *int
}

// ParseStatsFragment reads watch/list/like counts from the stats fragment.
// The exact counts live in the anchor title attributes ("1,234,567
// members"); the visible text is abbreviated.
func ParseStatsFragment(body []byte) (StatsCounts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return StatsCounts{}, err
	}
	return StatsCounts{
		WatchCount:          statCount(doc, "li.filmstat-watches"),
		ListAppearanceCount: statCount(doc, "li.filmstat-lists"),
		LikeCount:           statCount(doc, "li.filmstat-likes"),
	}, nil
}

func statCount(doc *goquery.Document, selector string) *int {
	title, ok := doc.Find(selector + " a").First().Attr("title")
	if !ok {
		return nil
	}
	digits := notNumeric.ReplaceAllString(title, "")
	if digits == "" {
		return nil
	}
	count, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &count
}

// ClassicRating reconstructs a rating from the rating-histogram fragment,
// used for films whose metadata block carries no aggregate rating. The
// fragment renders ten bars, half a star up to five stars; each bar's
// anchor title leads with the exact count ("1,234 ★★ ratings (4%)"). The
// value is the count-weighted mean of the bucket star values. A histogram
// with zero total ratings yields absence.
func ClassicRating(body []byte) (float64, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	bars := doc.Find("li.rating-histogram-bar")
	if bars.Length() == 0 {
		return 0, false
	}
	var weighted, total float64
	bars.Each(func(i int, bar *goquery.Selection) {
		stars := float64(i+1) * 0.5
		title, ok := bar.Find("a").First().Attr("title")
		if !ok {
			return
		}
		count, ok := leadingCount(title)
		if !ok {
			return
		}
		weighted += float64(count) * stars
		total += float64(count)
	})
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

// leadingCount parses the integer that opens a histogram bar title,
// tolerating thousands separators.
func leadingCount(title string) (int, bool) {
	title = strings.TrimSpace(title)
	end := 0
	for end < len(title) {
		c := title[end]
		if (c < '0' || c > '9') && c != ',' {
			break
		}
		end++
	}
	if end == 0 {
		return 0, false
	}
	count, err := strconv.Atoi(strings.ReplaceAll(title[:end], ",", ""))
	if err != nil {
		return 0, false
	}
	return count, true
}
