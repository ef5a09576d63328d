// Package collyfetcher implements ad.PageFetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/fetcher"
	"github.com/JakeFAU/adfiller/internal/logging"
	"github.com/JakeFAU/adfiller/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	Timeout time.Duration
}

// Shaper picks the URL and user agent for each request.
type Shaper interface {
	URL(id int64) string
	UserAgent() string
}

// Limiter paces requests. A nil Limiter disables pacing.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fetcher implements ad.PageFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	shaper        Shaper
	limiter       Limiter
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, shaper Shaper, limiter Limiter, logger *zap.Logger) (*Fetcher, error) {
	if shaper == nil {
		return nil, fmt.Errorf("shaper is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	// The same id is re-probed while a fresh ad ages, so visits must not be deduplicated.
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		shaper:        shaper,
		limiter:       limiter,
		baseCollector: c,
		logger:        logging.OrNop(logger),
	}, nil
}

// Fetch executes a single HTTP GET for the ad page with the given id.
// Network failures and non-2xx statuses are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, id int64) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	var (
		body     []byte
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.shaper.UserAgent()
	f.configureCollectorHooks(collector, &body, &fetchErr)

	url := f.shaper.URL(id)
	start := time.Now()
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	metrics.ObserveFetch(len(body), time.Since(start))
	f.logger.Debug("ad page fetched",
		zap.Int64("ad_id", id),
		zap.String("url", url),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			*fetchErr = &fetcher.StatusError{Code: r.StatusCode}
			return
		}
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 && (r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices) {
			*fetchErr = &fetcher.StatusError{Code: r.StatusCode}
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
