// Package messages handles new chat messages: it gives coins to thanked
// users and pings users whose watch expressions a message triggers.
package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/cache"
	"github.com/vapor/penny-bot/internal/coins"
	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/expressions"
	"github.com/vapor/penny-bot/internal/models"
	"github.com/vapor/penny-bot/internal/monitoring"
	"github.com/vapor/penny-bot/internal/responder"
	"github.com/vapor/penny-bot/internal/users"
)

// Handler processes message-create events
type Handler struct {
	config      *config.Config
	cache       *cache.ReactionCache
	coinService users.CoinService
	responder   *responder.Responder
	permissions discord.PermissionOracle
	dms         discord.DirectMessenger
	matcher     *expressions.Matcher
	monitoring  *monitoring.Service
}

// NewHandler creates a message handler. matcher may be nil to disable pings.
func NewHandler(
	cfg *config.Config,
	reactionCache *cache.ReactionCache,
	coinService users.CoinService,
	responder *responder.Responder,
	permissions discord.PermissionOracle,
	dms discord.DirectMessenger,
	matcher *expressions.Matcher,
	monitoringService *monitoring.Service,
) *Handler {
	return &Handler{
		config:      cfg,
		cache:       reactionCache,
		coinService: coinService,
		responder:   responder,
		permissions: permissions,
		dms:         dms,
		matcher:     matcher,
		monitoring:  monitoringService,
	}
}

// HandleMessage gives coins and sends pings for one message
func (h *Handler) HandleMessage(ctx context.Context, event models.MessageEvent) {
	if event.AuthorIsBot {
		return
	}

	// reactions to this message won't need an author lookup
	h.cache.SaveAuthorID(event.MessageID, event.AuthorID)

	h.giveCoins(ctx, event)

	if h.matcher != nil {
		h.sendPings(ctx, event)
	}
}

// Receivers returns the mentions a message gives coins to
func (h *Handler) Receivers(event models.MessageEvent) []string {
	mentioned := make([]string, 0, len(event.MentionedUserIDs))
	for _, userID := range event.MentionedUserIDs {
		mentioned = append(mentioned, discord.Mention(userID))
	}

	var replied string
	if event.RepliedUserID != "" {
		replied = discord.Mention(event.RepliedUserID)
	}

	finder := coins.Finder{
		Text:           discord.NormalizeMentions(event.Content),
		RepliedUser:    replied,
		MentionedUsers: mentioned,
		ExcludedUsers:  []string{discord.Mention(event.AuthorID)},
		MaxUsers:       h.config.MaxCoinReceivers,
	}
	return finder.FindUsers()
}

func (h *Handler) giveCoins(ctx context.Context, event models.MessageEvent) {
	receivers := h.Receivers(event)
	if len(receivers) == 0 {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"channel_id": event.ChannelID,
		"message_id": event.MessageID,
		"author_id":  event.AuthorID,
	})

	var lines []string
	failed := false
	for _, receiver := range receivers {
		response, err := h.coinService.PostCoin(ctx, models.CoinRequest{
			Amount:     1,
			FromUserID: discord.Mention(event.AuthorID),
			ToUserID:   receiver,
			Source:     models.CoinSourceDiscord,
			Reason:     models.CoinReasonUserProvided,
		})
		if err != nil {
			log.Errorf("Failed to give coin to %s: %v", receiver, err)
			h.monitoring.RecordAwardFailure()
			failed = true
			continue
		}

		h.monitoring.RecordCoins(receiver, 1)
		lines = append(lines, responder.MessageThanksLine(receiver, response.NewCoinCount))
	}

	if len(lines) == 0 {
		h.responder.SendFailure(ctx, event.ChannelID, event.MessageID)
		return
	}

	target, ok := h.responder.TargetFor(event.ChannelID)
	if !ok {
		log.Warn("No channel to send thanks to")
		h.monitoring.RecordResponse(monitoring.ResponseDropped)
		return
	}

	// failure text never goes to the thanks channel
	if failed && !target.Forced {
		lines = append(lines, responder.FailureText)
	}

	var link string
	if target.Forced {
		link = discord.MessageLink(event.GuildID, event.ChannelID, event.MessageID)
	}

	// errors are logged and counted by the responder
	_, _ = h.responder.Send(ctx, target, responder.MessageThanksText(lines, link), event.MessageID)
}

func (h *Handler) sendPings(ctx context.Context, event models.MessageEvent) {
	pings, err := h.matcher.UsersToPing(ctx, event.Content, event.AuthorID)
	if err != nil {
		logrus.Errorf("Failed to match expressions for message %s: %v", event.MessageID, err)
		return
	}

	link := discord.MessageLink(event.GuildID, event.ChannelID, event.MessageID)
	sent := 0
	for _, ping := range pings {
		if !h.permissions.UserHasPermission(ping.UserID, event.ChannelID, discord.PermissionViewChannel) {
			logrus.Debugf("Not pinging %s: can't view channel %s", ping.UserID, event.ChannelID)
			continue
		}

		if err := h.dms.SendDM(ctx, ping.UserID, PingText(ping.Expressions, event.AuthorName, link)); err != nil {
			logrus.Warnf("Failed to ping %s: %v", ping.UserID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		h.monitoring.RecordPings(sent)
	}
}

// PingText is the direct message sent to a user whose expressions matched
func PingText(matched []expressions.Expression, authorName, link string) string {
	quoted := make([]string, 0, len(matched))
	for _, expression := range matched {
		quoted = append(quoted, fmt.Sprintf("%s `%s`", expression.Kind(), expression.Value()))
	}

	var text strings.Builder
	text.WriteString("There is a new message that triggers ")
	if len(quoted) == 1 {
		text.WriteString("your expression ")
	} else {
		text.WriteString("your expressions ")
	}
	text.WriteString(responder.JoinNames(quoted))
	if authorName != "" {
		text.WriteString(" from " + authorName)
	}
	text.WriteString(":\n" + link)
	return text.String()
}
