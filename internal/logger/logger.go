// Package logger provides structured logging for guildwatch using slog.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// NewLogger creates a new slog Logger with the specified level and format
// and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// EventHandler handles a single gateway event with a bounded context.
type EventHandler[E any] func(ctx context.Context, s *discordgo.Session, event E)

// Middleware adapts next to a discordgo handler. Each event gets its own
// context limited to timeout, and its receipt and duration are logged.
func Middleware[E any](log *slog.Logger, timeout time.Duration, next EventHandler[E]) func(*discordgo.Session, E) {
	return func(s *discordgo.Session, event E) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		startTime := time.Now()
		logEntry := log.With(eventAttrs(event)...)
		logEntry.DebugContext(ctx, "Processing event")

		next(ctx, s, event)

		logEntry.DebugContext(ctx, "Finished processing event", "duration", time.Since(startTime))
	}
}

func eventAttrs(event any) []any {
	attrs := []any{"event_type", strings.TrimPrefix(fmt.Sprintf("%T", event), "*discordgo.")}
	switch e := event.(type) {
	case *discordgo.MessageCreate:
		attrs = append(attrs, messageAttrs(e.Message)...)
	case *discordgo.MessageUpdate:
		attrs = append(attrs, messageAttrs(e.Message)...)
	case *discordgo.MessageDelete:
		attrs = append(attrs, messageAttrs(e.Message)...)
	case *discordgo.MessageDeleteBulk:
		attrs = append(attrs, "guild_id", e.GuildID, "channel_id", e.ChannelID, "message_count", len(e.Messages))
	}
	return attrs
}

func messageAttrs(m *discordgo.Message) []any {
	if m == nil {
		return nil
	}
	attrs := []any{"guild_id", m.GuildID, "channel_id", m.ChannelID, "message_id", m.ID}
	if m.Author != nil {
		attrs = append(attrs, "user_id", m.Author.ID)
	}
	if m.Content != "" {
		attrs = append(attrs, "text_preview", truncateString(m.Content, 50))
	}
	return attrs
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
