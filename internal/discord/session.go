// Package discord adapts discordgo to the platform-agnostic activity types.
package discord

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Intents required to observe guild messages and their content.
// MessageContent is the only privileged intent requested.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

// NewSession creates a bot session. The gateway is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return s, nil
}

// ParseID parses a snowflake string.
func ParseID(id string) (uint64, error) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return v, nil
}

// FormatID formats a snowflake for the REST API.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
