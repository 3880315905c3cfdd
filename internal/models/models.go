package models

import "time"

// CoinSource is where a coin was given from
type CoinSource string

const (
	CoinSourceDiscord CoinSource = "discord"
)

// CoinReason explains how a coin was given
type CoinReason string

const (
	CoinReasonUserProvided CoinReason = "user-provided" // "thanks @user" style messages
	CoinReasonReaction     CoinReason = "reaction"
)

// CoinRequest asks the users service to move coins from one user to another
type CoinRequest struct {
	Amount     int        `json:"amount"`
	FromUserID string     `json:"from"`
	ToUserID   string     `json:"receiver"`
	Source     CoinSource `json:"source"`
	Reason     CoinReason `json:"reason"`
}

// CoinResponse is the users service answer to a CoinRequest
type CoinResponse struct {
	Sender       string `json:"sender"`
	Receiver     string `json:"receiver"`
	NewCoinCount int    `json:"new_coin_count"`
}

// User is a coin holder known to the users service
type User struct {
	ID        string    `json:"id"`
	DiscordID string    `json:"discord_id"`
	CoinCount int       `json:"coin_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is the subset of a chat platform message the bot needs
type ChatMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageEvent is a message-create event mapped from the gateway
type MessageEvent struct {
	GuildID     string
	ChannelID   string
	MessageID   string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
	// MentionedUserIDs are the users the platform confirmed as mentioned
	MentionedUserIDs []string
	// RepliedUserID is the author of the message being replied to, if any
	RepliedUserID string
}

// ReactionEvent is a reaction-add event mapped from the gateway
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	UserIsBot bool
	EmojiName string
	IsBurst   bool // super reaction
}

// Report represents a periodic report of coin activity
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Period      string                 `json:"period"` // "daily" or "weekly"
	CoinsGiven  int                    `json:"coins_given"`
	Failures    int                    `json:"failures"`
	Summary     map[string]interface{} `json:"summary"`
}
