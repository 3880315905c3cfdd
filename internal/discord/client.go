package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/models"
)

// ErrMessageNotFound is returned when a message was deleted or never existed
var ErrMessageNotFound = errors.New("message not found")

const (
	PermissionSendMessages = discordgo.PermissionSendMessages
	PermissionViewChannel  = discordgo.PermissionViewChannel
)

// Client implements the Discord collaborators on top of a discordgo session
type Client struct {
	session *discordgo.Session
}

var (
	_ MessageStore     = (*Client)(nil)
	_ PermissionOracle = (*Client)(nil)
	_ DirectMessenger  = (*Client)(nil)
)

// NewClient wraps an existing session
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// GetMessage fetches a message, returning ErrMessageNotFound on 404
func (c *Client) GetMessage(ctx context.Context, channelID, messageID string) (*models.ChatMessage, error) {
	message, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrMessageNotFound, channelID, messageID)
		}
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	if message.Author == nil {
		return nil, fmt.Errorf("message %s has no author", messageID)
	}

	return &models.ChatMessage{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		AuthorID:  message.Author.ID,
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}, nil
}

// CreateMessage sends content to a channel. Only user mentions ping.
func (c *Client) CreateMessage(ctx context.Context, channelID, content, replyToMessageID string) (string, error) {
	send := &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if replyToMessageID != "" {
		send.Reference = &discordgo.MessageReference{
			MessageID: replyToMessageID,
			ChannelID: channelID,
		}
	}

	message, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return message.ID, nil
}

// EditMessage replaces the content of a message the bot sent
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}

// UserHasPermission checks the state cache first and falls back to REST
func (c *Client) UserHasPermission(userID, channelID string, permission int64) bool {
	permissions, err := c.session.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		permissions, err = c.session.UserChannelPermissions(userID, channelID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,
				"channel_id": channelID,
			}).Warnf("Failed to resolve channel permissions: %v", err)
			return false
		}
	}
	return permissions&permission == permission
}

// BotUserID is the ID of the connected bot user
func (c *Client) BotUserID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

// SendDM opens a DM channel with a user and sends content to it
func (c *Client) SendDM(ctx context.Context, userID, content string) error {
	channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %s: %w", userID, err)
	}

	if _, err := c.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM to %s: %w", userID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
