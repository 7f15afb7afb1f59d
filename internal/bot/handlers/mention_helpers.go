package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// maxMessageLength is Discord's limit for a message body.
const maxMessageLength = 2000

// mentionsUser reports whether m mentions the user with id.
func mentionsUser(m *discordgo.Message, id string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == id {
			return true
		}
	}
	return false
}

// stripMention removes both mention forms of id from content.
func stripMention(content, id string) string {
	content = strings.ReplaceAll(content, "<@"+id+">", "")
	content = strings.ReplaceAll(content, "<@!"+id+">", "")
	return strings.TrimSpace(content)
}

// truncateMessage cuts s to Discord's message limit on a rune boundary.
func truncateMessage(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	cut := maxMessageLength - len("…")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
