// Package main wires together the adfiller service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/api"
	"github.com/JakeFAU/adfiller/internal/archive"
	"github.com/JakeFAU/adfiller/internal/checkpoint"
	localcheckpoint "github.com/JakeFAU/adfiller/internal/checkpoint/local"
	memorycheckpoint "github.com/JakeFAU/adfiller/internal/checkpoint/memory"
	pgcheckpoint "github.com/JakeFAU/adfiller/internal/checkpoint/postgres"
	redischeckpoint "github.com/JakeFAU/adfiller/internal/checkpoint/redis"
	"github.com/JakeFAU/adfiller/internal/clock"
	"github.com/JakeFAU/adfiller/internal/config"
	"github.com/JakeFAU/adfiller/internal/crawler"
	"github.com/JakeFAU/adfiller/internal/dispatcher"
	"github.com/JakeFAU/adfiller/internal/extract"
	"github.com/JakeFAU/adfiller/internal/fetcher"
	collyfetcher "github.com/JakeFAU/adfiller/internal/fetcher/colly"
	"github.com/JakeFAU/adfiller/internal/logging"
	"github.com/JakeFAU/adfiller/internal/metrics"
	"github.com/JakeFAU/adfiller/internal/pipeline"
	"github.com/JakeFAU/adfiller/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/adfiller/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/adfiller/internal/publisher/pubsub"
	"github.com/JakeFAU/adfiller/internal/receivers"
	"github.com/JakeFAU/adfiller/internal/render"
	"github.com/JakeFAU/adfiller/internal/retry"
	"github.com/JakeFAU/adfiller/internal/router"
	"github.com/JakeFAU/adfiller/internal/scheduler"
	gcsstorage "github.com/JakeFAU/adfiller/internal/storage/gcs"
	localstorage "github.com/JakeFAU/adfiller/internal/storage/local"
	memorystorage "github.com/JakeFAU/adfiller/internal/storage/memory"
	"github.com/JakeFAU/adfiller/internal/telemetry"
	"github.com/JakeFAU/adfiller/internal/transport/logsink"
	"github.com/JakeFAU/adfiller/internal/transport/telegram"
)

var version = "dev"

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("adfiller exited with error", zap.Error(err))
	}
	if syncErr := logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

type closer func() error

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) (err error) {
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn("close failed", zap.Error(cerr))
			}
		}
	}()

	metrics.Init()
	if cfg.Tracing.Enabled {
		tp, terr := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName:    "adfiller",
			ServiceVersion: version,
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if terr != nil {
			return terr
		}
		closers = append(closers, func() error { return tp.Shutdown(context.Background()) })
	}

	seed := cfg.Crawler.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // request shaping and search jitter only.
	rnd := rand.New(rand.NewSource(seed))

	shaper, err := fetcher.NewShaper(cfg.Crawler.BaseURL, cfg.Crawler.UserAgents, rand.New(rand.NewSource(rnd.Int63())))
	if err != nil {
		return fmt.Errorf("build shaper: %w", err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		Burst:             1,
		OnDelay:           metrics.ObserveRateLimitDelay,
	})
	pageFetcher, err := collyfetcher.New(collyfetcher.Config{Timeout: cfg.Crawler.Timeout}, shaper, limiter, logger.Named("fetcher"))
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	store, closeStore, err := newCheckpointStore(ctx, cfg.Checkpoint)
	if err != nil {
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	crawlCfg := cfg.CrawlerSettings()
	crawlCfg.StartID = checkpoint.Load(ctx, store, crawlCfg.BaseID, logger.Named("checkpoint"))
	systemClock := clock.New()
	crawl, err := crawler.New(crawlCfg, pageFetcher, extract.New(systemClock), store,
		rand.New(rand.NewSource(rnd.Int63())), logger.Named("crawler"))
	if err != nil {
		return fmt.Errorf("build crawler: %w", err)
	}

	categories, err := router.New(cfg.Categories)
	if err != nil {
		return fmt.Errorf("build category map: %w", err)
	}
	receiverSource, err := receivers.NewStatic(cfg.Receivers, categories.Has)
	if err != nil {
		return fmt.Errorf("build receivers: %w", err)
	}

	sender, err := newSender(cfg.Delivery, logger)
	if err != nil {
		return err
	}
	dispatch, err := dispatcher.New(
		categories,
		render.New(cfg.Delivery.MessageLimit, cfg.Delivery.Margin),
		sender,
		retry.Fixed{MaxAttempts: cfg.Delivery.MaxAttempts, Pause: cfg.Delivery.Pause},
		logger.Named("dispatcher"),
	)
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	var closePub closer
	deps := pipeline.Deps{
		Crawler:    crawl,
		Dispatcher: dispatch,
		Receivers:  receiverSource,
		Clock:      systemClock,
		Rand:       rand.New(rand.NewSource(rnd.Int63())),
	}
	deps.Publisher, closePub, err = newPublisher(ctx, cfg.Publisher)
	if err != nil {
		return err
	}
	if closePub != nil {
		closers = append(closers, closePub)
	}
	archiver, closeArchive, err := newArchiver(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if archiver != nil {
		deps.Archiver = archiver
	}
	if closeArchive != nil {
		closers = append(closers, closeArchive)
	}

	pipe, err := pipeline.New(deps, pipeline.Config{
		ErrorPauseMin: cfg.Crawler.ErrorPauseMin,
		ErrorPauseMax: cfg.Crawler.ErrorPauseMax,
	}, logger.Named("pipeline"))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	sched, err := scheduler.New(cfg.Crawler.Interval, pipe.Tick, logger.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	var srv *http.Server
	serverErr := make(chan error, 1)
	if cfg.Server.Enabled {
		apiServer := api.NewServer(pipe, categories, receiverSource, api.Options{APIKey: cfg.Server.APIKey}, logger.Named("api"))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	sched.Start(ctx)
	logger.Info("adfiller started",
		zap.Int64("start_id", crawlCfg.StartID),
		zap.Duration("interval", cfg.Crawler.Interval),
		zap.Strings("categories", categories.Names()),
		zap.Int("receivers", len(cfg.Receivers)),
	)

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		logger.Error("http server error", zap.Error(err))
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := sched.Stop(shutdownCtx); stopErr != nil {
		logger.Warn("scheduler stop error", zap.Error(stopErr))
	}
	if srv != nil {
		if shutErr := srv.Shutdown(shutdownCtx); shutErr != nil {
			logger.Error("server shutdown error", zap.Error(shutErr))
		}
	}
	logger.Info("shutdown complete")
	return err
}

func newCheckpointStore(ctx context.Context, cfg config.CheckpointConfig) (ad.CheckpointStore, closer, error) {
	switch cfg.Provider {
	case "local":
		s, err := localcheckpoint.New(localcheckpoint.Config{Path: cfg.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("build local checkpoint: %w", err)
		}
		return s, nil, nil
	case "redis":
		s, err := redischeckpoint.New(ctx, redischeckpoint.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build redis checkpoint: %w", err)
		}
		return s, s.Close, nil
	case "postgres":
		s, err := pgcheckpoint.New(ctx, pgcheckpoint.Config{
			DSN:   cfg.Postgres.DSN,
			Table: cfg.Postgres.Table,
			Name:  cfg.Postgres.Name,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build postgres checkpoint: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	case "memory":
		return memorycheckpoint.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint provider %q", cfg.Provider)
	}
}

func newSender(cfg config.DeliveryConfig, logger *zap.Logger) (ad.Sender, error) {
	switch cfg.Provider {
	case "telegram":
		s, err := telegram.New(telegram.Config{
			Token:    cfg.Token,
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
		}, logger.Named("telegram"))
		if err != nil {
			return nil, fmt.Errorf("build telegram sender: %w", err)
		}
		return s, nil
	case "log":
		return logsink.New(logger.Named("logsink")), nil
	default:
		return nil, fmt.Errorf("unknown delivery provider %q", cfg.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.PublisherConfig) (ad.Publisher, closer, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil, nil
	case "memory":
		return memorypublisher.New(), nil, nil
	case "pubsub":
		p, err := pubsubpublisher.Dial(ctx, pubsubpublisher.Config{ProjectID: cfg.ProjectID, Topic: cfg.Topic})
		if err != nil {
			return nil, nil, fmt.Errorf("build pubsub publisher: %w", err)
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown publisher provider %q", cfg.Provider)
	}
}

func newArchiver(ctx context.Context, cfg config.ArchiveConfig) (*archive.Archiver, closer, error) {
	var (
		store ad.BlobStore
		done  closer
	)
	switch cfg.Provider {
	case "none":
		return nil, nil, nil
	case "memory":
		store = memorystorage.NewBlobStore()
	case "local":
		s, err := localstorage.New(localstorage.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("build local archive: %w", err)
		}
		store = s
	case "gcs":
		s, err := gcsstorage.Dial(ctx, gcsstorage.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, nil, fmt.Errorf("build gcs archive: %w", err)
		}
		store, done = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown archive provider %q", cfg.Provider)
	}
	a, err := archive.New(store, cfg.Prefix)
	if err != nil {
		return nil, done, err
	}
	return a, done, nil
}
