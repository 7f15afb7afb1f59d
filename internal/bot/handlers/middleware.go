// Package handlers contains the Discord gateway event handlers, along with
// their registration logic and middleware.
package handlers

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/logger"
)

// HumansInGuilds drops messages sent by bots or webhooks and messages
// outside a guild before they reach next.
func HumansInGuilds(next logger.EventHandler[*discordgo.MessageCreate]) logger.EventHandler[*discordgo.MessageCreate] {
	return func(ctx context.Context, s *discordgo.Session, e *discordgo.MessageCreate) {
		if e == nil || e.Message == nil || e.Author == nil {
			return
		}
		if e.Author.Bot || e.WebhookID != "" || e.GuildID == "" {
			return
		}
		next(ctx, s, e)
	}
}
