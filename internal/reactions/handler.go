// Package reactions gives coins for emoji reactions and keeps one aggregated
// thanks response per receiver message.
package reactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/cache"
	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/models"
	"github.com/vapor/penny-bot/internal/monitoring"
	"github.com/vapor/penny-bot/internal/responder"
	"github.com/vapor/penny-bot/internal/users"
)

const (
	coinsPerReaction      = 1
	coinsPerSuperReaction = 3
)

// Handler evaluates reaction events and responds to them
type Handler struct {
	cache       *cache.ReactionCache
	coinService users.CoinService
	messages    discord.MessageStore
	responder   *responder.Responder
	monitoring  *monitoring.Service
	coinEmojis  map[string]bool
	channels    *keyedMutex
}

// NewHandler creates a reaction handler
func NewHandler(
	cfg *config.Config,
	reactionCache *cache.ReactionCache,
	coinService users.CoinService,
	messages discord.MessageStore,
	responder *responder.Responder,
	monitoringService *monitoring.Service,
) *Handler {
	coinEmojis := make(map[string]bool, len(cfg.CoinEmojis))
	for _, emoji := range cfg.CoinEmojis {
		coinEmojis[normalizeEmoji(emoji)] = true
	}

	return &Handler{
		cache:       reactionCache,
		coinService: coinService,
		messages:    messages,
		responder:   responder,
		monitoring:  monitoringService,
		coinEmojis:  coinEmojis,
		channels:    newKeyedMutex(),
	}
}

// Evaluate decides whether a reaction gives a coin. It returns nil when the
// reaction doesn't qualify. Once a sender passes the given-coin gate for a
// message it never passes again, whatever happens afterwards.
func (h *Handler) Evaluate(ctx context.Context, event models.ReactionEvent) (*models.CoinRequest, error) {
	if event.UserIsBot {
		return nil, nil
	}

	if !h.coinEmojis[normalizeEmoji(event.EmojiName)] {
		return nil, nil
	}

	if !h.cache.CanGiveCoin(event.UserID, event.MessageID) {
		logrus.Debugf("User %s already gave a coin to message %s", event.UserID, event.MessageID)
		return nil, nil
	}

	authorID, err := h.cache.AuthorID(ctx, event.ChannelID, event.MessageID, h.lookupAuthor)
	if err != nil {
		return nil, err
	}
	if authorID == event.UserID {
		return nil, nil
	}

	amount := coinsPerReaction
	if event.IsBurst {
		amount = coinsPerSuperReaction
	}

	return &models.CoinRequest{
		Amount:     amount,
		FromUserID: discord.Mention(event.UserID),
		ToUserID:   discord.Mention(authorID),
		Source:     models.CoinSourceDiscord,
		Reason:     models.CoinReasonReaction,
	}, nil
}

func (h *Handler) lookupAuthor(ctx context.Context, channelID, messageID string) (string, error) {
	message, err := h.messages.GetMessage(ctx, channelID, messageID)
	if err != nil {
		return "", err
	}
	return message.AuthorID, nil
}

// HandleReaction gives a coin for a qualifying reaction and responds with
// a new or edited thanks message
func (h *Handler) HandleReaction(ctx context.Context, event models.ReactionEvent) {
	log := logrus.WithFields(logrus.Fields{
		"channel_id": event.ChannelID,
		"message_id": event.MessageID,
		"user_id":    event.UserID,
		"emoji":      event.EmojiName,
	})

	request, err := h.Evaluate(ctx, event)
	if err != nil {
		log.Errorf("Failed to evaluate reaction: %v", err)
		return
	}
	if request == nil {
		return
	}

	response, err := h.coinService.PostCoin(ctx, *request)
	if err != nil {
		log.Errorf("Failed to give coin: %v", err)
		h.monitoring.RecordAwardFailure()
		h.responder.SendFailure(ctx, event.ChannelID, event.MessageID)
		return
	}

	h.monitoring.RecordCoins(request.ToUserID, request.Amount)
	log.Infof("%s gave %d coins to %s", request.FromUserID, request.Amount, request.ToUserID)

	if err := h.respond(ctx, event, request, response); err != nil {
		log.Errorf("Failed to respond to reaction: %v", err)
	}
}

// respond edits the earlier thanks for the same receiver message if there is
// one, or sends a new one. Responses in one channel are serialized so two
// reactions can't both decide to send a new message.
func (h *Handler) respond(ctx context.Context, event models.ReactionEvent, request *models.CoinRequest, response *models.CoinResponse) error {
	unlock := h.channels.Lock(event.ChannelID)
	defer unlock()

	senderName := event.UserName
	if senderName == "" {
		senderName = "Someone"
	}

	target := h.cache.MessageToEdit(event.ChannelID, event.MessageID)
	record := cache.Response{
		ChannelID:         event.ChannelID,
		ReceiverMessageID: event.MessageID,
		ReceiverID:        request.ToUserID,
		CoinAmount:        request.Amount,
		SenderName:        senderName,
	}

	if target.Kind != cache.EditNone {
		updated := target.Message.Adding(senderName, request.Amount)
		content := responder.ReactionThanksText(
			updated.SenderNames,
			updated.TotalCoinCount,
			request.ToUserID,
			response.NewCoinCount,
			h.linkIf(target.Kind == cache.EditForcedMessage, event),
		)

		if err := h.responder.Edit(ctx, target.Message.ResponseChannelID, target.Message.ResponseMessageID, content); err != nil {
			return fmt.Errorf("failed to edit %s response: %w", target.Kind, err)
		}

		record.ResponseChannelID = target.Message.ResponseChannelID
		record.ResponseMessageID = target.Message.ResponseMessageID
		record.Forced = target.Kind == cache.EditForcedMessage
		h.cache.DidRespond(record)
		return nil
	}

	destination, ok := h.responder.TargetFor(event.ChannelID)
	if !ok {
		h.monitoring.RecordResponse(monitoring.ResponseDropped)
		return fmt.Errorf("no channel to send thanks for message %s", event.MessageID)
	}

	content := responder.ReactionThanksText(
		[]string{senderName},
		request.Amount,
		request.ToUserID,
		response.NewCoinCount,
		h.linkIf(destination.Forced, event),
	)

	messageID, err := h.responder.Send(ctx, destination, content, event.MessageID)
	if err != nil {
		return fmt.Errorf("failed to send thanks: %w", err)
	}

	record.ResponseChannelID = destination.ChannelID
	record.ResponseMessageID = messageID
	record.Forced = destination.Forced
	h.cache.DidRespond(record)
	return nil
}

func (h *Handler) linkIf(forced bool, event models.ReactionEvent) string {
	if !forced {
		return ""
	}
	return discord.MessageLink(event.GuildID, event.ChannelID, event.MessageID)
}

// normalizeEmoji drops the emoji presentation selector so both heart forms match
func normalizeEmoji(name string) string {
	return strings.ReplaceAll(name, "\ufe0f", "")
}
