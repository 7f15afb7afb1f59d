package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/database"
	"github.com/edgard/guildwatch/internal/discord"
	"github.com/edgard/guildwatch/internal/gemini"
	"github.com/edgard/guildwatch/internal/logger"
	"github.com/edgard/guildwatch/internal/ratelimit"
)

type mentionHandler struct {
	deps HandlerDeps
}

// NewMentionHandler creates a handler that answers messages mentioning the
// bot with a Gemini reply. Callers are throttled per guild, channel and user.
func NewMentionHandler(deps HandlerDeps) logger.EventHandler[*discordgo.MessageCreate] {
	return mentionHandler{deps}.Handle
}

func (h mentionHandler) Handle(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageCreate) {
	deps := h.deps
	log := deps.Logger.With("handler", "mention")

	if deps.GeminiClient == nil || e == nil || e.Message == nil {
		return
	}
	me := deps.BotUser()
	if me == nil {
		log.WarnContext(ctx, "Bot user unknown, cannot check mentions")
		return
	}
	if !mentionsUser(e.Message, me.ID) {
		return
	}

	obs, ok := discord.Observation(e.Message)
	if !ok {
		return
	}

	// Bare pings are answered without charging the rate limit budget.
	prompt := stripMention(e.Content, me.ID)
	if prompt == "" {
		h.reply(ctx, e.Message, deps.Config.Messages.EmptyPrompt)
		return
	}

	if !deps.Limiter.WithinLimit(ctx, obs.GuildID, obs.ChannelID, obs.AuthorID, ratelimit.FeatureLLMMention) {
		log.InfoContext(ctx, "Mention dropped by rate limit",
			"guild_id", obs.GuildID, "channel_id", obs.ChannelID, "user_id", obs.AuthorID)
		return
	}

	if err := deps.Messenger.ChannelTyping(e.ChannelID, discordgo.WithContext(ctx)); err != nil {
		log.DebugContext(ctx, "Failed to send typing indicator", "channel_id", e.ChannelID, "error", err)
	}

	history, err := deps.History.Recent(ctx, obs.GuildID, obs.ChannelID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load chat history", "channel_id", obs.ChannelID, "error", err)
		history = nil
	}

	authorName := discord.DisplayName(e.Message)
	botName := me.GlobalName
	if botName == "" {
		botName = me.Username
	}

	timeout := time.Duration(deps.Config.Gemini.TimeoutSeconds) * time.Second
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	text, err := deps.GeminiClient.GenerateReply(genCtx, history, prompt, authorName, botName)
	cancel()
	switch {
	case errors.Is(err, gemini.ErrEmptyReply):
		log.WarnContext(ctx, "Gemini returned an empty reply", "channel_id", obs.ChannelID)
		text = deps.Config.Messages.LLMEmpty
	case err != nil:
		log.ErrorContext(ctx, "Failed to generate reply", "channel_id", obs.ChannelID, "error", err)
		h.reply(ctx, e.Message, deps.Config.Messages.LLMError)
		return
	}

	// The prompt joins the history only once it has an answer.
	h.appendTurn(ctx, &database.ChatMessage{
		GuildID:     obs.GuildID,
		ChannelID:   obs.ChannelID,
		UserID:      obs.AuthorID,
		DisplayName: authorName,
		Role:        database.RoleUser,
		Content:     prompt,
	})

	text = truncateMessage(text)
	if !h.reply(ctx, e.Message, text) {
		return
	}

	botID, err := discord.ParseID(me.ID)
	if err != nil {
		log.WarnContext(ctx, "Invalid bot user id, skipping reply history", "bot_id", me.ID)
		return
	}
	h.appendTurn(ctx, &database.ChatMessage{
		GuildID:     obs.GuildID,
		ChannelID:   obs.ChannelID,
		UserID:      botID,
		DisplayName: botName,
		Role:        database.RoleAssistant,
		Content:     text,
	})
}

// reply answers m and reports whether the message was sent.
func (h mentionHandler) reply(ctx context.Context, m *discordgo.Message, text string) bool {
	_, err := h.deps.Messenger.ChannelMessageSendReply(m.ChannelID, text, m.Reference(), discordgo.WithContext(ctx))
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send reply", "handler", "mention", "channel_id", m.ChannelID, "error", err)
		return false
	}
	return true
}

func (h mentionHandler) appendTurn(ctx context.Context, turn *database.ChatMessage) {
	if err := h.deps.History.Append(ctx, turn); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to save chat turn", "handler", "mention", "role", turn.Role, "error", err)
	}
}
