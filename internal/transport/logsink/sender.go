// Package logsink is a dry-run ad.Sender that logs messages instead of
// delivering them.
package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/logging"
)

// Sender writes every message to the logger.
type Sender struct {
	logger *zap.Logger
}

// New returns a log-only Sender.
func New(logger *zap.Logger) *Sender {
	return &Sender{logger: logging.OrNop(logger)}
}

// SendText logs the message.
func (s *Sender) SendText(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("dry-run text", zap.String("receiver", destination), zap.String("message", message))
	return nil
}

// SendPhoto logs the caption and image.
func (s *Sender) SendPhoto(ctx context.Context, destination, imageURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("dry-run photo",
		zap.String("receiver", destination),
		zap.String("image_url", imageURL),
		zap.String("message", caption),
	)
	return nil
}
