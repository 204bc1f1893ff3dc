// Command top250d runs the ranked-list scraper service: an HTTP API that
// syncs configured Letterboxd catalogs into the document store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jmcruz14/top250-scraper/internal/api"
	"github.com/jmcruz14/top250-scraper/internal/archive"
	gcsblob "github.com/jmcruz14/top250-scraper/internal/archive/gcs"
	localblob "github.com/jmcruz14/top250-scraper/internal/archive/local"
	systemclock "github.com/jmcruz14/top250-scraper/internal/clock/system"
	"github.com/jmcruz14/top250-scraper/internal/config"
	collyfetcher "github.com/jmcruz14/top250-scraper/internal/fetcher/colly"
	"github.com/jmcruz14/top250-scraper/internal/fetcher/headless"
	uuidgen "github.com/jmcruz14/top250-scraper/internal/id/uuid"
	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
	"github.com/jmcruz14/top250-scraper/internal/logging"
	"github.com/jmcruz14/top250-scraper/internal/metrics"
	"github.com/jmcruz14/top250-scraper/internal/policy/ratelimit"
	pubsubpublisher "github.com/jmcruz14/top250-scraper/internal/publisher/pubsub"
	"github.com/jmcruz14/top250-scraper/internal/store"
	memstore "github.com/jmcruz14/top250-scraper/internal/store/memory"
	pgstore "github.com/jmcruz14/top250-scraper/internal/store/postgres"
	enginesync "github.com/jmcruz14/top250-scraper/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, closeStore, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	records := store.NewRecords(gateway)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	})

	var renderer letterboxd.Fetcher = headless.NewNoop()
	if cfg.Headless.Enabled {
		chrome, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Upstream.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("start headless fetcher: %w", err)
		}
		defer chrome.Close()
		renderer = chrome
		logger.Info("headless render fallback enabled",
			zap.Int("max_parallel", cfg.Headless.MaxParallel))
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Politeness.RPS,
		DefaultBurst: cfg.Politeness.Burst,
	})

	publisher, closePub, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePub()

	archiver, err := buildArchiver(ctx, cfg, fetcher, logger)
	if err != nil {
		return err
	}

	engine := enginesync.New(
		records,
		fetcher,
		renderer,
		headless.NewDetector(),
		limiter,
		publisher,
		archiver,
		systemclock.New(),
		uuidgen.New(),
		enginesync.Config{
			BaseURL: cfg.Upstream.BaseURL,
			Workers: cfg.Scraper.Workers,
			Topic:   cfg.PubSub.TopicName,
		},
		logger,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(engine, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}

// buildGateway selects the document store. An empty DSN falls back to the
// in-memory gateway, which is only useful for local development.
func buildGateway(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Gateway, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set, using in-memory store; data will not survive restarts")
		return memstore.New(), func() {}, nil
	}
	gw, err := pgstore.New(ctx, pgstore.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect document store: %w", err)
	}
	if err := gw.EnsureSchema(ctx); err != nil {
		gw.Close()
		return nil, nil, fmt.Errorf("ensure store schema: %w", err)
	}
	logger.Info("postgres document store ready")
	return gw, gw.Close, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (letterboxd.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		logger.Info("pubsub not configured, snapshot events disabled")
		return nil, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	logger.Info("pubsub publisher ready",
		zap.String("project", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.TopicName))
	return pubsubpublisher.New(client), func() { _ = client.Close() }, nil
}

// buildArchiver picks a blob store for poster archival: GCS when a bucket
// is configured, the local filesystem otherwise. Disabled entirely when
// posters.enabled is false.
func buildArchiver(ctx context.Context, cfg config.Config, fetcher letterboxd.Fetcher, logger *zap.Logger) (*archive.Archiver, error) {
	if !cfg.Posters.Enabled {
		return nil, nil
	}
	var (
		blobs letterboxd.BlobStore
		err   error
	)
	switch {
	case cfg.Posters.GCSBucket != "":
		client, cerr := storage.NewClient(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("create storage client: %w", cerr)
		}
		blobs, err = gcsblob.New(client, gcsblob.Config{Bucket: cfg.Posters.GCSBucket})
	case cfg.Posters.LocalDir != "":
		blobs, err = localblob.New(localblob.Config{BaseDir: cfg.Posters.LocalDir})
	default:
		return nil, fmt.Errorf("posters.enabled requires gcs_bucket or local_dir")
	}
	if err != nil {
		return nil, fmt.Errorf("build blob store: %w", err)
	}
	logger.Info("poster archival enabled", zap.String("prefix", cfg.Posters.Prefix))
	return archive.New(fetcher, blobs, cfg.Posters.Prefix, logger), nil
}
