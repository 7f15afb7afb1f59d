// Package ratelimit implements fixed-window request budgets per
// (guild, channel, user, feature) on top of the cache counter store.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/guildwatch/internal/cache"
)

// FeatureLLMMention gates language-model replies triggered by mentions.
const FeatureLLMMention = "llm_mention"

// Limiter admits at most MaxHits calls per Window for each key.
type Limiter struct {
	store   cache.Store
	window  time.Duration
	maxHits int64
	logger  *slog.Logger
}

// NewLimiter creates a Limiter. window is rounded down to whole seconds by
// the store.
func NewLimiter(store cache.Store, window time.Duration, maxHits int, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Limiter{
		store:   store,
		window:  window,
		maxHits: int64(maxHits),
		logger:  logger.With("component", "rate_limiter"),
	}
}

// Key builds the counter key for one (feature, guild, channel, user) triple.
func Key(feature string, guildID, channelID, userID uint64) string {
	return fmt.Sprintf("ratelimit:%s:%d:%d:%d", feature, guildID, channelID, userID)
}

// WithinLimit records a hit and reports whether it is within budget. Store
// failures admit the call: the feature must keep working while the cache
// backend is down.
func (l *Limiter) WithinLimit(ctx context.Context, guildID, channelID, userID uint64, feature string) bool {
	key := Key(feature, guildID, channelID, userID)

	count, err := l.store.IncrementWithWindow(ctx, key, l.window)
	if err != nil {
		l.logger.WarnContext(ctx, "Rate limit check failed, allowing request",
			"feature", feature, "guild_id", guildID, "channel_id", channelID, "user_id", userID, "error", err)
		rateLimitDecisions.WithLabelValues(feature, "fail_open").Inc()
		return true
	}

	if count > l.maxHits {
		rateLimitBlocks.WithLabelValues(feature).Inc()
		rateLimitDecisions.WithLabelValues(feature, "blocked").Inc()
		l.logger.DebugContext(ctx, "Rate limit exceeded",
			"feature", feature, "guild_id", guildID, "channel_id", channelID, "user_id", userID,
			"count", count, "max_hits", l.maxHits)
		return false
	}

	rateLimitDecisions.WithLabelValues(feature, "allowed").Inc()
	return true
}
