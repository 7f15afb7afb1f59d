package activity

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Attribution defaults.
const (
	DefaultAuditLogLimit     = 25
	DefaultAttributionWindow = 20 * time.Second
)

// AuditEntry is one "message deleted" record from the platform audit log.
type AuditEntry struct {
	ActorID   uint64
	TargetID  uint64 // author of the deleted message
	ChannelID uint64
	Timestamp time.Time
}

// AuditTrail is the platform side of deletion attribution.
type AuditTrail interface {
	// RecentMessageDeletes returns up to limit message-delete entries, newest first.
	RecentMessageDeletes(ctx context.Context, guildID uint64, limit int) ([]AuditEntry, error)
	// MessageTime returns the creation time encoded in a message id.
	MessageTime(messageID uint64) (time.Time, error)
}

// Attributor guesses who deleted a message by correlating it with the audit
// log. When nothing matches, the author is assumed to have deleted their own
// message; the result is a display aid, not a security record.
type Attributor struct {
	trail  AuditTrail
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewAttributor creates an Attributor. Non-positive limit and window fall back to defaults.
func NewAttributor(trail AuditTrail, limit int, window time.Duration, logger *slog.Logger) *Attributor {
	if limit <= 0 {
		limit = DefaultAuditLogLimit
	}
	if window <= 0 {
		window = DefaultAttributionWindow
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Attributor{
		trail:  trail,
		limit:  limit,
		window: window,
		logger: logger.With("component", "attributor"),
	}
}

// Attribute returns the id of the user that most likely deleted the message.
func (a *Attributor) Attribute(ctx context.Context, guildID, channelID, messageID, authorID uint64) uint64 {
	if a.trail == nil {
		return authorID
	}

	created, err := a.trail.MessageTime(messageID)
	if err != nil {
		a.logger.WarnContext(ctx, "Cannot derive message time, assuming self-deletion",
			"message_id", messageID, "error", err)
		return authorID
	}

	entries, err := a.trail.RecentMessageDeletes(ctx, guildID, a.limit)
	if err != nil {
		a.logger.WarnContext(ctx, "Audit log query failed, assuming self-deletion",
			"guild_id", guildID, "error", err)
		return authorID
	}

	for _, e := range entries {
		if e.ChannelID != channelID || e.TargetID != authorID {
			continue
		}
		delta := e.Timestamp.Sub(created)
		if delta < 0 {
			delta = -delta
		}
		if delta <= a.window {
			a.logger.DebugContext(ctx, "Deletion attributed from audit log",
				"message_id", messageID, "actor_id", e.ActorID)
			return e.ActorID
		}
	}
	return authorID
}
