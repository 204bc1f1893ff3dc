package headless

import (
	"context"
	"errors"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// Noop is a Fetcher used when headless rendering is disabled.
type Noop struct{}

// NewNoop creates a Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails, pushing the caller down the skip path.
func (Noop) Fetch(_ context.Context, request letterboxd.FetchRequest) (letterboxd.FetchResponse, error) {
	return letterboxd.FetchResponse{}, &letterboxd.FetchError{
		URL: request.URL,
		Err: errors.New("headless rendering disabled"),
	}
}
