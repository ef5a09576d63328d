package crawler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/extract"
	"github.com/JakeFAU/adfiller/internal/logging"
	"github.com/JakeFAU/adfiller/internal/metrics"
)

// Outcome classifies a single probe.
type Outcome int

const (
	// OutcomeTransportError means the fetch failed; state is unchanged.
	OutcomeTransportError Outcome = iota
	// OutcomeMissing means the page held no ad.
	OutcomeMissing
	// OutcomeFresh means the ad is inside the freshness window and is held back.
	OutcomeFresh
	// OutcomeStale means the ad aged past the window; it is checkpointed.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeMissing:
		return "missing"
	case OutcomeFresh:
		return "fresh"
	case OutcomeStale:
		return "stale"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the identifier walk state.
type State struct {
	CurrentID         int64 `json:"current_id"`
	LastSuccessID     int64 `json:"last_success_id"`
	Increment         int   `json:"increment"`
	ConsecutiveMisses int   `json:"consecutive_misses"`
}

// Result describes one tick.
type Result struct {
	Outcome  Outcome
	ProbedID int64
	// Ad is set only for stale ads that should be distributed.
	Ad *ad.Ad
	// Skipped is true when a stale ad was dropped because it was posted automatically.
	Skipped bool
}

// Crawler owns the walk state. Ticks must be serialized by the caller.
type Crawler struct {
	cfg       Config
	fetcher   ad.PageFetcher
	extractor ad.Extractor
	store     ad.CheckpointStore
	rnd       *rand.Rand
	logger    *zap.Logger
	state     State
}

// New builds a Crawler positioned at cfg.StartID, or cfg.BaseID when unset.
func New(
	cfg Config,
	fetcher ad.PageFetcher,
	extractor ad.Extractor,
	store ad.CheckpointStore,
	rnd *rand.Rand,
	logger *zap.Logger,
) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil || extractor == nil || store == nil {
		return nil, fmt.Errorf("crawler requires fetcher, extractor and checkpoint store")
	}
	if rnd == nil {
		return nil, fmt.Errorf("crawler requires a random source")
	}
	start := cfg.StartID
	if start == 0 {
		start = cfg.BaseID
	}
	c := &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		rnd:       rnd,
		logger:    logging.OrNop(logger),
		state: State{
			CurrentID:     start,
			LastSuccessID: start,
			Increment:     1,
		},
	}
	c.publishState()
	return c, nil
}

// State returns a snapshot of the walk state.
func (c *Crawler) State() State {
	return c.state
}

// Tick probes the current identifier and advances the walk. A non-nil error is
// always a transport error and leaves the state untouched.
func (c *Crawler) Tick(ctx context.Context) (Result, error) {
	id := c.state.CurrentID
	res := Result{ProbedID: id}

	page, err := c.fetcher.Fetch(ctx, id)
	if err != nil {
		res.Outcome = OutcomeTransportError
		metrics.ObserveTick(res.Outcome.String())
		c.logger.Warn("fetch failed", zap.Int64("current_id", id), zap.Error(err))
		return res, fmt.Errorf("fetch ad %d: %w", id, err)
	}

	found, err := c.extractor.Extract(page)
	switch {
	case err != nil:
		if !errors.Is(err, extract.ErrNoAd) {
			c.logger.Debug("extract failed", zap.Int64("current_id", id), zap.Error(err))
		}
		res.Outcome = OutcomeMissing
		c.onMissing()
	case found.AgeHours <= c.cfg.MaxHours:
		res.Outcome = OutcomeFresh
		c.onFresh(found)
	default:
		res.Outcome = OutcomeStale
		c.onStale(ctx, id, found)
		if found.IsAuto && c.cfg.IgnoreAuto {
			res.Skipped = true
		} else {
			res.Ad = &found
		}
	}

	metrics.ObserveTick(res.Outcome.String())
	c.publishState()
	return res, nil
}

func (c *Crawler) onMissing() {
	s := &c.state
	switch {
	case s.CurrentID == s.LastSuccessID:
		//nolint:gosec // walk randomization only.
		s.CurrentID = c.cfg.BaseID + int64(c.rnd.Intn(c.cfg.ReseedSpread+1))
		c.logger.Info("reseeding walk near base id",
			zap.Int64("last_success_id", s.LastSuccessID),
			zap.Int64("current_id", s.CurrentID),
		)
	case s.ConsecutiveMisses < c.cfg.MaxMisses:
		s.CurrentID += int64(s.Increment)
		s.ConsecutiveMisses++
		c.logger.Debug("page missing",
			zap.Int64("current_id", s.CurrentID),
			zap.Int("increment", s.Increment),
			zap.Int("misses", s.ConsecutiveMisses),
		)
	default:
		c.logger.Info("miss limit reached, retreating to last success",
			zap.Int64("last_success_id", s.LastSuccessID),
			zap.Int("misses", s.ConsecutiveMisses),
		)
		s.CurrentID = s.LastSuccessID
		s.ConsecutiveMisses = 0
		s.Increment = 1
	}
}

func (c *Crawler) onFresh(found ad.Ad) {
	s := &c.state
	s.ConsecutiveMisses = 0
	s.Increment = 1
	s.CurrentID = s.LastSuccessID + 1
	c.logger.Debug("ad too fresh, holding",
		zap.Int64("ad_id", found.ID),
		zap.Float64("age_hours", found.AgeHours),
		zap.Int64("current_id", s.CurrentID),
	)
}

func (c *Crawler) onStale(ctx context.Context, id int64, found ad.Ad) {
	s := &c.state
	s.LastSuccessID = id
	if err := c.store.Save(ctx, id); err != nil {
		metrics.ObserveCheckpointFailure()
		c.logger.Warn("checkpoint not saved", zap.Int64("last_success_id", id), zap.Error(err))
	}
	s.CurrentID += int64(s.Increment)
	//nolint:gosec // walk randomization only.
	r := Multipliers[c.rnd.Intn(len(Multipliers))]
	s.Increment = int(math.Round(float64(s.Increment) * r))
	s.ConsecutiveMisses = 0
	c.logger.Info("stale ad found",
		zap.Int64("ad_id", found.ID),
		zap.Float64("age_hours", found.AgeHours),
		zap.Bool("is_auto", found.IsAuto),
		zap.Int64("current_id", s.CurrentID),
		zap.Int("increment", s.Increment),
	)
}

func (c *Crawler) publishState() {
	metrics.SetCrawlState(c.state.CurrentID, c.state.LastSuccessID, c.state.Increment, c.state.ConsecutiveMisses)
}
