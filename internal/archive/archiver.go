// Package archive copies poster images for newly persisted films into a
// blob store, so history keeps an artwork reference even after upstream
// rotates its CDN URLs.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// Archiver downloads poster URLs and stores them as blobs keyed by slug.
type Archiver struct {
	fetcher letterboxd.Fetcher
	blobs   letterboxd.BlobStore
	prefix  string
	logger  *zap.Logger
}

// New constructs an Archiver. A nil blob store disables archival.
func New(fetcher letterboxd.Fetcher, blobs letterboxd.BlobStore, prefix string, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		fetcher: fetcher,
		blobs:   blobs,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger,
	}
}

// ArchivePoster fetches the film's poster and stores it. Failures are
// logged and returned but never block the sync pass; the caller treats
// archival as best effort.
func (a *Archiver) ArchivePoster(ctx context.Context, film letterboxd.Film) (string, error) {
	if a == nil || a.blobs == nil || film.PosterURL == "" {
		return "", nil
	}
	resp, err := a.fetcher.Fetch(ctx, letterboxd.FetchRequest{URL: film.PosterURL})
	if err != nil {
		return "", fmt.Errorf("fetch poster for %s: %w", film.Slug, err)
	}
	blobPath := a.blobPath(film)
	uri, err := a.blobs.PutObject(ctx, blobPath, contentTypeFor(film.PosterURL), resp.Body)
	if err != nil {
		return "", fmt.Errorf("store poster for %s: %w", film.Slug, err)
	}
	a.logger.Debug("poster archived",
		zap.String("film_slug", film.Slug),
		zap.String("uri", uri),
	)
	return uri, nil
}

func (a *Archiver) blobPath(film letterboxd.Film) string {
	name := film.Slug
	if name == "" {
		name = film.ID
	}
	ext := path.Ext(film.PosterURL)
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	if a.prefix == "" {
		return name + ext
	}
	return a.prefix + "/" + name + ext
}

func contentTypeFor(url string) string {
	switch strings.ToLower(path.Ext(url)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
