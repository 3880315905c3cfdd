package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vapor/penny-bot/internal/models"
)

func TestMessageEventFrom(t *testing.T) {
	message := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Type:      discordgo.MessageTypeReply,
		Content:   "<@!u2> thanks!",
		Author:    &discordgo.User{ID: "u1", Username: "alice", GlobalName: "Alice"},
		Member:    &discordgo.Member{Nick: "ali"},
		Mentions:  []*discordgo.User{{ID: "u2"}},
		ReferencedMessage: &discordgo.Message{
			ID:     "m0",
			Author: &discordgo.User{ID: "u3"},
		},
	}

	assert.Equal(t, models.MessageEvent{
		GuildID:          "g1",
		ChannelID:        "c1",
		MessageID:        "m1",
		AuthorID:         "u1",
		AuthorName:       "ali",
		Content:          "<@u2> thanks!",
		MentionedUserIDs: []string{"u2"},
		RepliedUserID:    "u3",
	}, MessageEventFrom(message))
}

func TestMessageEventFrom_NotAReply(t *testing.T) {
	message := &discordgo.Message{
		ID:     "m1",
		Type:   discordgo.MessageTypeDefault,
		Author: &discordgo.User{ID: "u1", Username: "alice", Bot: true},
	}

	event := MessageEventFrom(message)
	assert.Empty(t, event.RepliedUserID)
	assert.Equal(t, "alice", event.AuthorName)
	assert.True(t, event.AuthorIsBot)
}

func TestReactionEventFrom(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected models.ReactionEvent
		wantErr  bool
	}{
		{
			name: "super reaction from member",
			payload: `{"user_id":"u1","channel_id":"c1","message_id":"m1","guild_id":"g1","burst":true,
				"emoji":{"id":null,"name":"🪙"},
				"member":{"nick":"","user":{"id":"u1","username":"bob","global_name":"Bob","bot":false}}}`,
			expected: models.ReactionEvent{
				GuildID: "g1", ChannelID: "c1", MessageID: "m1",
				UserID: "u1", UserName: "Bob", EmojiName: "🪙", IsBurst: true,
			},
		},
		{
			name:    "custom emoji from bot",
			payload: `{"user_id":"u1","channel_id":"c1","message_id":"m1","emoji":{"id":"42","name":"vaporlove"},"member":{"user":{"id":"u1","username":"penny","bot":true}}}`,
			expected: models.ReactionEvent{
				ChannelID: "c1", MessageID: "m1",
				UserID: "u1", UserName: "penny", UserIsBot: true, EmojiName: "vaporlove",
			},
		},
		{
			name:    "missing ids",
			payload: `{"emoji":{"name":"🪙"}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `nope`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ReactionEventFrom(json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, event)
		})
	}
}

type recordingHandler struct {
	mu        sync.Mutex
	messages  []models.MessageEvent
	reactions []models.ReactionEvent
	deadlines []bool
}

func (h *recordingHandler) HandleMessage(ctx context.Context, event models.MessageEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := ctx.Deadline()
	h.deadlines = append(h.deadlines, ok)
	h.messages = append(h.messages, event)
}

func (h *recordingHandler) HandleReaction(ctx context.Context, event models.ReactionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reactions = append(h.reactions, event)
}

func TestGateway_Dispatch(t *testing.T) {
	session, err := discordgo.New("Bot token")
	require.NoError(t, err)
	handler := &recordingHandler{}
	g := New(session, handler, handler, time.Second)

	g.onMessageCreate(session, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:     "m1",
		Author: &discordgo.User{ID: "u1"},
	}})
	g.onMessageCreate(session, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "no-author"}})
	g.onEvent(session, &discordgo.Event{
		Type:    reactionAddEvent,
		RawData: json.RawMessage(`{"user_id":"u2","channel_id":"c1","message_id":"m1","emoji":{"name":"🪙"}}`),
	})
	g.onEvent(session, &discordgo.Event{Type: "TYPING_START", RawData: json.RawMessage(`{}`)})
	g.wg.Wait()

	require.Len(t, handler.messages, 1)
	assert.Equal(t, "m1", handler.messages[0].MessageID)
	assert.Equal(t, []bool{true}, handler.deadlines)
	require.Len(t, handler.reactions, 1)
	assert.Equal(t, "u2", handler.reactions[0].UserID)
}

func TestGateway_NoDispatchAfterStop(t *testing.T) {
	session, err := discordgo.New("Bot token")
	require.NoError(t, err)
	handler := &recordingHandler{}
	g := New(session, handler, handler, time.Second)

	require.NoError(t, g.Stop())

	g.onMessageCreate(session, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:     "m1",
		Author: &discordgo.User{ID: "u1"},
	}})
	g.onEvent(session, &discordgo.Event{
		Type:    reactionAddEvent,
		RawData: json.RawMessage(`{"user_id":"u2","channel_id":"c1","message_id":"m1","emoji":{"name":"🪙"}}`),
	})
	g.wg.Wait()

	assert.Empty(t, handler.messages)
	assert.Empty(t, handler.reactions)
}
