package headless

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

func TestShouldRender(t *testing.T) {
	detector := NewDetector()

	cases := []struct {
		name string
		resp letterboxd.FetchResponse
		want bool
	}{
		{
			name: "hollow body",
			resp: letterboxd.FetchResponse{StatusCode: 200, Body: []byte(`<html><body><p>loading</p></body></html>`)},
			want: true,
		},
		{
			name: "empty body",
			resp: letterboxd.FetchResponse{StatusCode: 200},
			want: true,
		},
		{
			name: "complete page",
			resp: letterboxd.FetchResponse{StatusCode: 200, Body: []byte(`<div id="tabbed-content"></div>`)},
			want: false,
		},
		{
			name: "already rendered",
			resp: letterboxd.FetchResponse{StatusCode: 200, Rendered: true},
			want: false,
		},
		{
			name: "non-200",
			resp: letterboxd.FetchResponse{StatusCode: 404},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, detector.ShouldRender(tc.resp))
		})
	}
}
