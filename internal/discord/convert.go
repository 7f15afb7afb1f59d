package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/edgard/guildwatch/internal/activity"
	"github.com/edgard/guildwatch/internal/database"
)

// Observation converts a guild message. It returns false for direct
// messages and messages without an author.
func Observation(m *discordgo.Message) (activity.Observation, bool) {
	if m == nil || m.GuildID == "" || m.Author == nil {
		return activity.Observation{}, false
	}

	var (
		obs activity.Observation
		err error
	)
	if obs.GuildID, err = ParseID(m.GuildID); err != nil {
		return obs, false
	}
	if obs.ChannelID, err = ParseID(m.ChannelID); err != nil {
		return obs, false
	}
	if obs.MessageID, err = ParseID(m.ID); err != nil {
		return obs, false
	}
	if obs.AuthorID, err = ParseID(m.Author.ID); err != nil {
		return obs, false
	}

	obs.Content = m.Content
	obs.IsBot = m.Author.Bot || m.WebhookID != ""
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		obs.Attachments = append(obs.Attachments, activity.Attachment{
			Filename: a.Filename,
			URL:      a.URL,
			IsMedia:  activity.IsMediaFilename(a.Filename),
		})
	}
	return obs, true
}

// MessageKey converts the identity of a guild message. It returns false for
// direct messages.
func MessageKey(guildID, channelID, messageID string) (database.MessageKey, bool) {
	if guildID == "" {
		return database.MessageKey{}, false
	}
	var (
		key database.MessageKey
		err error
	)
	if key.GuildID, err = ParseID(guildID); err != nil {
		return key, false
	}
	if key.ChannelID, err = ParseID(channelID); err != nil {
		return key, false
	}
	if key.MessageID, err = ParseID(messageID); err != nil {
		return key, false
	}
	return key, true
}

// DisplayName returns the name a member is shown as in the guild.
func DisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return ""
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
