package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/activity"
)

// auditLogSource is the subset of *discordgo.Session used for audit queries.
type auditLogSource interface {
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
}

// AuditTrail reads message deletions from the guild audit log.
type AuditTrail struct {
	source auditLogSource
}

var _ activity.AuditTrail = (*AuditTrail)(nil)

// NewAuditTrail creates an AuditTrail backed by source, usually a *discordgo.Session.
func NewAuditTrail(source auditLogSource) *AuditTrail {
	return &AuditTrail{source: source}
}

func (a *AuditTrail) RecentMessageDeletes(ctx context.Context, guildID uint64, limit int) ([]activity.AuditEntry, error) {
	log, err := a.source.GuildAuditLog(FormatID(guildID), "", "", int(discordgo.AuditLogActionMessageDelete), limit,
		discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit log: %w", err)
	}
	if log == nil {
		return nil, nil
	}

	entries := make([]activity.AuditEntry, 0, len(log.AuditLogEntries))
	for _, e := range log.AuditLogEntries {
		if e == nil || e.Options == nil {
			continue
		}
		entry, ok := convertAuditEntry(e)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func convertAuditEntry(e *discordgo.AuditLogEntry) (activity.AuditEntry, bool) {
	actor, err := ParseID(e.UserID)
	if err != nil {
		return activity.AuditEntry{}, false
	}
	target, err := ParseID(e.TargetID)
	if err != nil {
		return activity.AuditEntry{}, false
	}
	channel, err := ParseID(e.Options.ChannelID)
	if err != nil {
		return activity.AuditEntry{}, false
	}
	ts, err := discordgo.SnowflakeTimestamp(e.ID)
	if err != nil {
		return activity.AuditEntry{}, false
	}
	return activity.AuditEntry{ActorID: actor, TargetID: target, ChannelID: channel, Timestamp: ts.UTC()}, true
}

func (a *AuditTrail) MessageTime(messageID uint64) (time.Time, error) {
	return discordgo.SnowflakeTimestamp(FormatID(messageID))
}
