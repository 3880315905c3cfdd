package discord

import (
	"fmt"
	"strings"
)

// Mention formats a user ID the way Discord renders a user mention
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// UserIDFromMention extracts the user ID from "<@id>" or "<@!id>"
func UserIDFromMention(mention string) (string, bool) {
	if !strings.HasPrefix(mention, "<@") || !strings.HasSuffix(mention, ">") {
		return "", false
	}
	id := strings.TrimPrefix(mention[2:len(mention)-1], "!")
	if id == "" {
		return "", false
	}
	return id, true
}

// NormalizeMentions rewrites nickname mentions ("<@!id>") as plain ones
func NormalizeMentions(text string) string {
	return strings.ReplaceAll(text, "<@!", "<@")
}

// MessageLink links to a message in a guild channel
func MessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
