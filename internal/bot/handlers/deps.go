package handlers

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/activity"
	"github.com/edgard/guildwatch/internal/config"
	"github.com/edgard/guildwatch/internal/gemini"
	"github.com/edgard/guildwatch/internal/llmchat"
	"github.com/edgard/guildwatch/internal/ratelimit"
)

// Messenger is the subset of *discordgo.Session the handlers call.
type Messenger interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// HandlerDeps provides dependencies for gateway event handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Messenger Messenger
	// BotUser returns the connected bot account, or nil before the session is ready.
	BotUser  func() *discordgo.User
	Activity *activity.Service
	Limiter  *ratelimit.Limiter
	History  *llmchat.History
	// GeminiClient is nil when mention replies are disabled.
	GeminiClient gemini.Client
}
