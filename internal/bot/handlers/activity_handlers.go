package handlers

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/discord"
	"github.com/edgard/guildwatch/internal/logger"
)

// NewMessageCreateHandler stores the baseline snapshot of new guild messages.
func NewMessageCreateHandler(deps HandlerDeps) logger.EventHandler[*discordgo.MessageCreate] {
	log := deps.Logger.With("handler", "message_create")
	return func(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageCreate) {
		if e == nil {
			return
		}
		obs, ok := discord.Observation(e.Message)
		if !ok || obs.IsBot {
			return
		}
		if err := deps.Activity.RecordCreate(ctx, obs); err != nil {
			log.ErrorContext(ctx, "Failed to record message create", "message_id", obs.MessageID, "error", err)
		}
	}
}

// NewMessageUpdateHandler classifies edits against the stored snapshot.
// Partial updates are completed by fetching the message.
func NewMessageUpdateHandler(deps HandlerDeps) logger.EventHandler[*discordgo.MessageUpdate] {
	log := deps.Logger.With("handler", "message_update")
	return func(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageUpdate) {
		if e == nil || e.Message == nil || e.GuildID == "" {
			return
		}

		msg := e.Message
		if msg.Author == nil {
			fetched, err := deps.Messenger.ChannelMessage(msg.ChannelID, msg.ID, discordgo.WithContext(ctx))
			if err != nil {
				log.WarnContext(ctx, "Failed to fetch updated message", "channel_id", msg.ChannelID, "message_id", msg.ID, "error", err)
				return
			}
			// REST messages carry no guild id.
			fetched.GuildID = e.GuildID
			msg = fetched
		}

		obs, ok := discord.Observation(msg)
		if !ok || obs.IsBot {
			return
		}
		event, err := deps.Activity.RecordObservation(ctx, obs)
		if err != nil {
			log.ErrorContext(ctx, "Failed to record message update", "message_id", obs.MessageID, "error", err)
			return
		}
		if event != nil {
			log.DebugContext(ctx, "Message change recorded", "message_id", obs.MessageID, "event_kind", event.Kind)
		}
	}
}

// NewMessageDeleteHandler records single message deletions.
func NewMessageDeleteHandler(deps HandlerDeps) logger.EventHandler[*discordgo.MessageDelete] {
	log := deps.Logger.With("handler", "message_delete")
	return func(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageDelete) {
		if e == nil || e.Message == nil {
			return
		}
		key, ok := discord.MessageKey(e.GuildID, e.ChannelID, e.ID)
		if !ok {
			return
		}
		if _, err := deps.Activity.RecordDeletion(ctx, key); err != nil {
			log.ErrorContext(ctx, "Failed to record message deletion", "message_id", key.MessageID, "error", err)
		}
	}
}

// NewMessageDeleteBulkHandler records every message of a bulk deletion.
func NewMessageDeleteBulkHandler(deps HandlerDeps) logger.EventHandler[*discordgo.MessageDeleteBulk] {
	log := deps.Logger.With("handler", "message_delete_bulk")
	return func(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageDeleteBulk) {
		if e == nil {
			return
		}
		for _, id := range e.Messages {
			key, ok := discord.MessageKey(e.GuildID, e.ChannelID, id)
			if !ok {
				continue
			}
			if _, err := deps.Activity.RecordDeletion(ctx, key); err != nil {
				log.ErrorContext(ctx, "Failed to record bulk deletion", "message_id", key.MessageID, "error", err)
			}
		}
	}
}
