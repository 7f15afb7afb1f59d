// Package llmchat keeps the per-channel conversation used for mention
// replies. Recent turns live in the database and are cached in the
// counter/KV store.
package llmchat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/edgard/guildwatch/internal/cache"
	"github.com/edgard/guildwatch/internal/database"
	apperrors "github.com/edgard/guildwatch/internal/errors"
)

const (
	// HistoryLimit is the number of turns sent to the model.
	HistoryLimit = 20
	// HistoryTTL bounds how long a cached history is served.
	HistoryTTL = 10 * time.Minute
)

// History reads and appends channel conversation turns.
type History struct {
	store  database.Store
	cache  cache.Store
	logger *slog.Logger
}

// NewHistory creates a History. A nil cache disables caching.
func NewHistory(store database.Store, c cache.Store, logger *slog.Logger) *History {
	if c == nil {
		c = cache.NewNoopStore()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &History{
		store:  store,
		cache:  c,
		logger: logger.With("component", "llmchat"),
	}
}

// Key returns the cache key of a channel's history.
func Key(guildID, channelID uint64) string {
	return fmt.Sprintf("llmchat:history:%d:%d", guildID, channelID)
}

// Recent returns up to HistoryLimit turns in chronological order.
func (h *History) Recent(ctx context.Context, guildID, channelID uint64) ([]database.ChatMessage, error) {
	key := Key(guildID, channelID)

	if cached, ok := h.fromCache(ctx, key); ok {
		return cached, nil
	}

	messages, err := h.store.GetRecentChatMessages(ctx, guildID, channelID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	raw, err := msgpack.Marshal(messages)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to encode chat history for cache", "key", key, "error", err)
		return messages, nil
	}
	if err := h.cache.Set(ctx, key, raw, HistoryTTL); err != nil {
		h.logger.WarnContext(ctx, "Failed to cache chat history", "key", key, "error", err)
	}
	return messages, nil
}

func (h *History) fromCache(ctx context.Context, key string) ([]database.ChatMessage, bool) {
	raw, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.WarnContext(ctx, "Chat history cache read failed", "key", key, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var messages []database.ChatMessage
	if err := msgpack.Unmarshal(raw, &messages); err != nil {
		err = apperrors.NewMalformedRecord("cached chat history", err)
		h.logger.WarnContext(ctx, "Discarding undecodable chat history", "key", key, "error", err)
		if delErr := h.cache.Del(ctx, key); delErr != nil {
			h.logger.WarnContext(ctx, "Failed to drop chat history cache entry", "key", key, "error", delErr)
		}
		return nil, false
	}
	return messages, true
}

// Append persists one turn and invalidates the cached history.
func (h *History) Append(ctx context.Context, message *database.ChatMessage) error {
	if err := h.store.SaveChatMessage(ctx, message); err != nil {
		return fmt.Errorf("failed to save chat turn: %w", err)
	}
	key := Key(message.GuildID, message.ChannelID)
	if err := h.cache.Del(ctx, key); err != nil {
		h.logger.WarnContext(ctx, "Failed to invalidate chat history cache", "key", key, "error", err)
	}
	return nil
}
