// Package pipeline runs one discovery and distribution cycle per tick: crawl,
// route, deliver, then publish and archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/crawler"
	"github.com/JakeFAU/adfiller/internal/dispatcher"
	"github.com/JakeFAU/adfiller/internal/logging"
	"github.com/JakeFAU/adfiller/internal/retry"
)

var tracer = otel.Tracer("github.com/JakeFAU/adfiller/internal/pipeline")

// ErrTickInFlight is returned when a tick starts while another is running.
var ErrTickInFlight = errors.New("tick already in progress")

// Crawler is the identifier walk.
type Crawler interface {
	Tick(ctx context.Context) (crawler.Result, error)
	State() crawler.State
}

// Dispatcher delivers an ad to its receivers.
type Dispatcher interface {
	Dispatch(ctx context.Context, a ad.Ad, receivers []ad.Receiver) dispatcher.Report
}

// Archiver stores ad snapshots.
type Archiver interface {
	Archive(ctx context.Context, a ad.Ad) (string, error)
}

// Deps are the pipeline collaborators. Publisher and Archiver are optional.
type Deps struct {
	Crawler    Crawler
	Dispatcher Dispatcher
	Receivers  ad.ReceiverSource
	Publisher  ad.Publisher
	Archiver   Archiver
	Clock      ad.Clock
	Rand       *rand.Rand
}

// Config tunes the pause taken after a transport error and the retries of
// the publish and archive side effects.
type Config struct {
	ErrorPauseMin time.Duration
	ErrorPauseMax time.Duration
	// SideEffectRetry defaults to DefaultSideEffectRetry.
	SideEffectRetry retry.Policy
}

// DefaultSideEffectRetry retries publish and archive writes briefly.
var DefaultSideEffectRetry = retry.Exponential{MaxAttempts: 3, Base: 250 * time.Millisecond, Max: 2 * time.Second}

// Stats are cumulative counters since start.
type Stats struct {
	Ticks            int64     `json:"ticks"`
	SkippedPaused    int64     `json:"skipped_paused"`
	TransportErrors  int64     `json:"transport_errors"`
	Missing          int64     `json:"missing"`
	Fresh            int64     `json:"fresh"`
	Stale            int64     `json:"stale"`
	AutoSkipped      int64     `json:"auto_skipped"`
	AdsDistributed   int64     `json:"ads_distributed"`
	Deliveries       int64     `json:"deliveries"`
	DeliveryFailures int64     `json:"delivery_failures"`
	LastAdID         int64     `json:"last_ad_id,omitempty"`
	LastTickAt       time.Time `json:"last_tick_at,omitempty"`
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Paused bool          `json:"paused"`
	State  crawler.State `json:"state"`
	Stats  Stats         `json:"stats"`
}

// Pipeline serializes ticks and owns the pause flag.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	tickMu sync.Mutex
	paused atomic.Bool

	statusMu sync.RWMutex
	state    crawler.State
	stats    Stats
}

// New validates deps and returns a Pipeline.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if deps.Crawler == nil || deps.Dispatcher == nil || deps.Receivers == nil {
		return nil, fmt.Errorf("pipeline requires crawler, dispatcher and receivers")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("pipeline requires a clock")
	}
	if deps.Rand == nil {
		return nil, fmt.Errorf("pipeline requires a random source")
	}
	if cfg.ErrorPauseMax < cfg.ErrorPauseMin {
		return nil, fmt.Errorf("error pause max %s is below min %s", cfg.ErrorPauseMax, cfg.ErrorPauseMin)
	}
	if cfg.SideEffectRetry == nil {
		cfg.SideEffectRetry = DefaultSideEffectRetry
	}
	return &Pipeline{
		deps:   deps,
		cfg:    cfg,
		logger: logging.OrNop(logger),
		state:  deps.Crawler.State(),
	}, nil
}

// Pause stops ticks from touching the crawl state until Resume.
func (p *Pipeline) Pause() {
	if !p.paused.Swap(true) {
		p.logger.Info("pipeline paused")
	}
}

// Resume re-enables ticks.
func (p *Pipeline) Resume() {
	if p.paused.Swap(false) {
		p.logger.Info("pipeline resumed")
	}
}

// Status snapshots the pause flag, crawl state and counters.
func (p *Pipeline) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return Status{Paused: p.paused.Load(), State: p.state, Stats: p.stats}
}

// Tick runs one cycle. A transport error is returned after the error pause.
func (p *Pipeline) Tick(ctx context.Context) error {
	if p.paused.Load() {
		p.update(func(s *Stats) { s.SkippedPaused++ })
		return nil
	}
	if !p.tickMu.TryLock() {
		return ErrTickInFlight
	}
	defer p.tickMu.Unlock()

	res, err := p.deps.Crawler.Tick(ctx)
	p.record(res)
	if err != nil {
		pause := p.errorPause()
		p.logger.Debug("pausing after transport error", zap.Duration("pause", pause))
		if sleepErr := retry.Sleep(ctx, pause); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
		return err
	}
	if res.Ad == nil {
		return nil
	}
	return p.distribute(ctx, *res.Ad)
}

func (p *Pipeline) distribute(ctx context.Context, a ad.Ad) error {
	ctx, span := tracer.Start(ctx, "pipeline.distribute",
		trace.WithAttributes(attribute.Int64("ad.id", a.ID), attribute.Int("ad.subcategory_id", a.SubcategoryID)))
	defer span.End()

	list, err := p.deps.Receivers.Receivers(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load receivers: %w", err)
	}
	report := p.deps.Dispatcher.Dispatch(ctx, a, list)
	p.update(func(s *Stats) {
		s.AdsDistributed++
		s.Deliveries += int64(len(report.Delivered))
		s.DeliveryFailures += int64(len(report.Failed))
		s.LastAdID = a.ID
	})

	if p.deps.Publisher != nil {
		var id string
		err := retry.Do(ctx, p.cfg.SideEffectRetry, func(ctx context.Context, _ int) error {
			var perr error
			id, perr = p.deps.Publisher.Publish(ctx, a)
			return perr
		})
		if err != nil {
			p.logger.Warn("publish failed", zap.Int64("ad_id", a.ID), zap.Error(err))
		} else {
			p.logger.Debug("ad published", zap.Int64("ad_id", a.ID), zap.String("message_id", id))
		}
	}
	if p.deps.Archiver != nil {
		var uri string
		err := retry.Do(ctx, p.cfg.SideEffectRetry, func(ctx context.Context, _ int) error {
			var aerr error
			uri, aerr = p.deps.Archiver.Archive(ctx, a)
			return aerr
		})
		if err != nil {
			p.logger.Warn("archive failed", zap.Int64("ad_id", a.ID), zap.Error(err))
		} else {
			p.logger.Debug("ad archived", zap.Int64("ad_id", a.ID), zap.String("uri", uri))
		}
	}
	p.logger.Info("ad distributed",
		zap.Int64("ad_id", a.ID),
		zap.Strings("categories", report.Categories),
		zap.Int("delivered", len(report.Delivered)),
		zap.Int("failed", len(report.Failed)),
	)
	return nil
}

func (p *Pipeline) record(res crawler.Result) {
	state := p.deps.Crawler.State()
	now := p.deps.Clock.Now()
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.state = state
	p.stats.Ticks++
	p.stats.LastTickAt = now
	switch res.Outcome {
	case crawler.OutcomeTransportError:
		p.stats.TransportErrors++
	case crawler.OutcomeMissing:
		p.stats.Missing++
	case crawler.OutcomeFresh:
		p.stats.Fresh++
	case crawler.OutcomeStale:
		p.stats.Stale++
		if res.Skipped {
			p.stats.AutoSkipped++
		}
	}
}

func (p *Pipeline) update(fn func(*Stats)) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	fn(&p.stats)
}

// errorPause draws uniformly from [ErrorPauseMin, ErrorPauseMax]. Ticks are
// serialized so the random source is not shared.
func (p *Pipeline) errorPause() time.Duration {
	span := p.cfg.ErrorPauseMax - p.cfg.ErrorPauseMin
	if span <= 0 {
		return p.cfg.ErrorPauseMin
	}
	//nolint:gosec // pacing jitter only.
	return p.cfg.ErrorPauseMin + time.Duration(p.deps.Rand.Int63n(int64(span)+1))
}
