// Package gateway receives Discord gateway events and dispatches them to the
// message and reaction handlers.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/models"
)

const reactionAddEvent = "MESSAGE_REACTION_ADD"

// MessageHandler handles message-create events
type MessageHandler interface {
	HandleMessage(ctx context.Context, event models.MessageEvent)
}

// ReactionHandler handles reaction-add events
type ReactionHandler interface {
	HandleReaction(ctx context.Context, event models.ReactionEvent)
}

// Gateway owns the Discord websocket connection
type Gateway struct {
	session      *discordgo.Session
	messages     MessageHandler
	reactions    ReactionHandler
	eventTimeout time.Duration

	mu     sync.Mutex
	closed bool // no handlers start once set
	wg     sync.WaitGroup
}

// New creates a gateway and registers its event handlers on session
func New(session *discordgo.Session, messages MessageHandler, reactions ReactionHandler, eventTimeout time.Duration) *Gateway {
	g := &Gateway{
		session:      session,
		messages:     messages,
		reactions:    reactions,
		eventTimeout: eventTimeout,
	}

	session.AddHandler(g.onReady)
	session.AddHandler(g.onMessageCreate)
	// Reactions are read from the raw payload so the super reaction flag
	// is available
	session.AddHandler(g.onEvent)

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuilds

	return g
}

// Start opens the connection and starts listening for events
func (g *Gateway) Start() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	logrus.Info("Discord gateway connected")
	return nil
}

// Stop closes the connection and waits for in-flight events
func (g *Gateway) Stop() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	err := g.session.Close()
	g.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logrus.Infof("Logged in as %s in %d guilds", r.User.Username, len(r.Guilds))
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		logrus.Debug("Ignoring message without author")
		return
	}

	event := MessageEventFrom(m.Message)
	g.dispatch(func(ctx context.Context) {
		g.messages.HandleMessage(ctx, event)
	})
}

func (g *Gateway) onEvent(s *discordgo.Session, e *discordgo.Event) {
	if e.Type != reactionAddEvent {
		return
	}

	event, err := ReactionEventFrom(e.RawData)
	if err != nil {
		logrus.Errorf("Failed to decode reaction event: %v", err)
		return
	}
	g.dispatch(func(ctx context.Context) {
		g.reactions.HandleReaction(ctx, event)
	})
}

// dispatch runs handle in its own goroutine, bounded by the event timeout
func (g *Gateway) dispatch(handle func(ctx context.Context)) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		logrus.Debug("Dropping event received after stop")
		return
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Recovered from panic while handling event: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), g.eventTimeout)
		defer cancel()
		handle(ctx)
	}()
}

// MessageEventFrom maps a gateway message to a MessageEvent
func MessageEventFrom(m *discordgo.Message) models.MessageEvent {
	event := models.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Content:   discord.NormalizeMentions(m.Content),
	}

	if m.Author != nil {
		event.AuthorID = m.Author.ID
		event.AuthorIsBot = m.Author.Bot
		event.AuthorName = displayName(m.Member, m.Author)
	}

	for _, user := range m.Mentions {
		if user != nil {
			event.MentionedUserIDs = append(event.MentionedUserIDs, user.ID)
		}
	}

	if m.Type == discordgo.MessageTypeReply && m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		event.RepliedUserID = m.ReferencedMessage.Author.ID
	}

	return event
}

type rawReaction struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	GuildID   string `json:"guild_id"`
	Burst     bool   `json:"burst"`
	Emoji     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"emoji"`
	Member *discordgo.Member `json:"member"`
}

// ReactionEventFrom maps a raw MESSAGE_REACTION_ADD payload to a ReactionEvent
func ReactionEventFrom(data json.RawMessage) (models.ReactionEvent, error) {
	var raw rawReaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.ReactionEvent{}, fmt.Errorf("invalid reaction payload: %w", err)
	}
	if raw.UserID == "" || raw.ChannelID == "" || raw.MessageID == "" {
		return models.ReactionEvent{}, fmt.Errorf("reaction payload is missing ids")
	}

	event := models.ReactionEvent{
		GuildID:   raw.GuildID,
		ChannelID: raw.ChannelID,
		MessageID: raw.MessageID,
		UserID:    raw.UserID,
		EmojiName: raw.Emoji.Name,
		IsBurst:   raw.Burst,
	}
	if raw.Member != nil && raw.Member.User != nil {
		event.UserIsBot = raw.Member.User.Bot
		event.UserName = displayName(raw.Member, raw.Member.User)
	}

	return event, nil
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
