// Package dispatcher renders an ad once and delivers it to every matching
// receiver with bounded retries.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/logging"
	"github.com/JakeFAU/adfiller/internal/metrics"
	"github.com/JakeFAU/adfiller/internal/render"
	"github.com/JakeFAU/adfiller/internal/retry"
)

// Delivery retry defaults.
const (
	DefaultAttempts = 10
	DefaultPause    = 500 * time.Millisecond
)

// ErrExhausted marks a receiver whose delivery retries ran out.
var ErrExhausted = retry.ErrExhausted

// Router selects the categories and receivers for a subcategory.
type Router interface {
	Match(subID int) []string
	Receivers(list []ad.Receiver, subID int) []ad.Receiver
}

// Renderer formats an ad for delivery.
type Renderer interface {
	Render(a ad.Ad) render.Message
}

// Failure is one receiver that could not be reached.
type Failure struct {
	Receiver ad.Receiver
	Err      error
}

// Report summarizes a dispatch.
type Report struct {
	AdID       int64
	Categories []string
	Delivered  []ad.Receiver
	Failed     []Failure
}

// Dispatcher delivers ads sequentially, one receiver at a time.
type Dispatcher struct {
	router   Router
	renderer Renderer
	sender   ad.Sender
	policy   retry.Policy
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(router Router, renderer Renderer, sender ad.Sender, policy retry.Policy, logger *zap.Logger) (*Dispatcher, error) {
	if router == nil || renderer == nil || sender == nil {
		return nil, fmt.Errorf("dispatcher requires router, renderer and sender")
	}
	if policy == nil {
		policy = retry.Fixed{MaxAttempts: DefaultAttempts, Pause: DefaultPause}
	}
	return &Dispatcher{
		router:   router,
		renderer: renderer,
		sender:   sender,
		policy:   policy,
		logger:   logging.OrNop(logger),
	}, nil
}

// Dispatch sends a to every receiver subscribed to a matching category. One
// receiver's failure never prevents delivery to the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, a ad.Ad, receivers []ad.Receiver) Report {
	report := Report{AdID: a.ID, Categories: d.router.Match(a.SubcategoryID)}
	targets := d.router.Receivers(receivers, a.SubcategoryID)
	if len(targets) == 0 {
		d.logger.Debug("no receivers for ad",
			zap.Int64("ad_id", a.ID),
			zap.Int("subcategory_id", a.SubcategoryID),
		)
		return report
	}
	for _, category := range report.Categories {
		metrics.ObserveDistributed(category)
	}

	msg := d.renderer.Render(a)
	for _, r := range targets {
		attempts := 0
		err := retry.Do(ctx, d.policy, func(ctx context.Context, attempt int) error {
			attempts = attempt
			if msg.PhotoURL != "" {
				return d.sender.SendPhoto(ctx, r.ID, msg.PhotoURL, msg.Caption)
			}
			return d.sender.SendText(ctx, r.ID, msg.Text)
		})
		if err != nil {
			metrics.ObserveDelivery("failed", attempts)
			d.logger.Warn("delivery failed",
				zap.Int64("ad_id", a.ID),
				zap.String("receiver", r.ID),
				zap.String("category", r.Category),
				zap.Int("attempt", attempts),
				zap.Bool("exhausted", errors.Is(err, ErrExhausted)),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, Failure{Receiver: r, Err: err})
			continue
		}
		metrics.ObserveDelivery("delivered", attempts)
		d.logger.Info("ad delivered",
			zap.Int64("ad_id", a.ID),
			zap.String("receiver", r.ID),
			zap.String("category", r.Category),
			zap.Int("attempt", attempts),
		)
		report.Delivered = append(report.Delivered, r)
	}
	return report
}
