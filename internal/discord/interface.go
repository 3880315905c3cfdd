package discord

import (
	"context"

	"github.com/vapor/penny-bot/internal/models"
)

// MessageStore reads and writes chat messages
type MessageStore interface {
	GetMessage(ctx context.Context, channelID, messageID string) (*models.ChatMessage, error)
	// CreateMessage sends a message, replying to replyToMessageID when set, and
	// returns the new message ID
	CreateMessage(ctx context.Context, channelID, content, replyToMessageID string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
}

// PermissionOracle answers channel permission questions
type PermissionOracle interface {
	UserHasPermission(userID, channelID string, permission int64) bool
	BotUserID() string
}

// DirectMessenger sends private messages to users
type DirectMessenger interface {
	SendDM(ctx context.Context, userID, content string) error
}
