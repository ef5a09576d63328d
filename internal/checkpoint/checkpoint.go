// Package checkpoint persists the last successfully processed ad identifier.
// Backends live in subpackages; Load applies the fallback rules shared by all.
package checkpoint

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/logging"
)

// ErrNotFound is returned by backends that hold no checkpoint yet.
var ErrNotFound = errors.New("checkpoint not found")

// Load reads the stored identifier, falling back to fallback when the store is
// empty, unreadable, or holds a non-positive value.
func Load(ctx context.Context, store ad.CheckpointStore, fallback int64, logger *zap.Logger) int64 {
	logger = logging.OrNop(logger)
	id, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("no checkpoint stored, starting at base id", zap.Int64("base_id", fallback))
		return fallback
	case err != nil:
		logger.Warn("checkpoint unreadable, starting at base id", zap.Int64("base_id", fallback), zap.Error(err))
		return fallback
	case id <= 0:
		logger.Warn("checkpoint out of range, starting at base id",
			zap.Int64("checkpoint", id), zap.Int64("base_id", fallback))
		return fallback
	}
	logger.Info("resuming from checkpoint", zap.Int64("last_success_id", id))
	return id
}
