// Package responder decides where the bot's coin responses go and sends
// them, falling back to the thanks channel when the bot can't speak in place.
package responder

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/monitoring"
)

// Target is the channel a response goes to
type Target struct {
	ChannelID string
	// Forced is set when the response is redirected to the thanks channel
	Forced bool
}

// Responder sends thanks and failure responses
type Responder struct {
	config      *config.Config
	messages    discord.MessageStore
	permissions discord.PermissionOracle
	monitoring  *monitoring.Service
}

// New creates a responder
func New(cfg *config.Config, messages discord.MessageStore, permissions discord.PermissionOracle, monitoringService *monitoring.Service) *Responder {
	return &Responder{
		config:      cfg,
		messages:    messages,
		permissions: permissions,
		monitoring:  monitoringService,
	}
}

// CanSpeakIn reports whether the bot may post in a channel
func (r *Responder) CanSpeakIn(channelID string) bool {
	if r.config.IsDeniedChannel(channelID) {
		return false
	}
	return r.permissions.UserHasPermission(r.permissions.BotUserID(), channelID, discord.PermissionSendMessages)
}

// TargetFor picks where a thanks response for a message in channelID goes.
// ok is false when there is nowhere to send it.
func (r *Responder) TargetFor(channelID string) (target Target, ok bool) {
	if r.CanSpeakIn(channelID) {
		return Target{ChannelID: channelID}, true
	}
	if r.config.ThanksChannelID != "" && r.config.ThanksChannelID != channelID {
		return Target{ChannelID: r.config.ThanksChannelID, Forced: true}, true
	}
	return Target{}, false
}

// Send posts a response to target, replying to replyToMessageID unless the
// response was forced elsewhere. It returns the new message ID.
func (r *Responder) Send(ctx context.Context, target Target, content, replyToMessageID string) (string, error) {
	if target.Forced {
		replyToMessageID = ""
	}

	messageID, err := r.messages.CreateMessage(ctx, target.ChannelID, content, replyToMessageID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel_id": target.ChannelID,
			"reply_to":   replyToMessageID,
			"forced":     target.Forced,
			"content":    content,
		}).Errorf("Failed to send response: %v", err)
		r.monitoring.RecordResponse(monitoring.ResponseFailed)
		return "", err
	}

	if target.Forced {
		r.monitoring.RecordResponse(monitoring.ResponseForced)
	} else {
		r.monitoring.RecordResponse(monitoring.ResponseSent)
	}
	return messageID, nil
}

// Edit replaces the content of an earlier response
func (r *Responder) Edit(ctx context.Context, channelID, messageID, content string) error {
	if err := r.messages.EditMessage(ctx, channelID, messageID, content); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel_id": channelID,
			"message_id": messageID,
			"content":    content,
		}).Errorf("Failed to edit response: %v", err)
		r.monitoring.RecordResponse(monitoring.ResponseFailed)
		return err
	}

	r.monitoring.RecordResponse(monitoring.ResponseEdited)
	return nil
}

// SendFailure posts a failure message in place. Failure messages never go
// to the thanks channel; they are dropped when the bot can't speak in place.
func (r *Responder) SendFailure(ctx context.Context, channelID, replyToMessageID string) {
	if !r.CanSpeakIn(channelID) {
		logrus.WithField("channel_id", channelID).Debug("Dropping failure response")
		r.monitoring.RecordResponse(monitoring.ResponseDropped)
		return
	}

	_, _ = r.Send(ctx, Target{ChannelID: channelID}, FailureText, replyToMessageID)
}
