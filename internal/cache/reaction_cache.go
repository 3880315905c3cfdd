// Package cache keeps the short lived state the reaction flow needs: message
// authors, which users already gave a coin to which message, and the bot's
// own thanks responses so later reactions can edit them instead of posting
// new ones.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/samber/mo"
)

// DefaultMaxEntries bounds every map in a ReactionCache
const DefaultMaxEntries = 200

// ThanksMessage is a thanks response the bot sent for a receiver message
type ThanksMessage struct {
	ReceiverMessageID string   `json:"receiver_message_id"`
	ReceiverID        string   `json:"receiver_id"`
	ResponseChannelID string   `json:"response_channel_id"`
	ResponseMessageID string   `json:"response_message_id"`
	SenderNames       []string `json:"sender_names"`
	TotalCoinCount    int      `json:"total_coin_count"`
}

// Adding returns a copy with one more sender and coinAmount more coins
func (m ThanksMessage) Adding(senderName string, coinAmount int) ThanksMessage {
	names := make([]string, 0, len(m.SenderNames)+1)
	names = append(names, m.SenderNames...)
	m.SenderNames = append(names, senderName)
	m.TotalCoinCount += coinAmount
	return m
}

// EditKind says whether a thanks response should be edited, and which one
type EditKind int

const (
	EditNone EditKind = iota
	EditChannelMessage
	EditForcedMessage
)

func (k EditKind) String() string {
	switch k {
	case EditChannelMessage:
		return "channel"
	case EditForcedMessage:
		return "forced"
	default:
		return "none"
	}
}

// EditTarget is the result of MessageToEdit
type EditTarget struct {
	Kind    EditKind
	Message ThanksMessage
}

// Response describes a thanks response that was just sent or edited
type Response struct {
	ChannelID         string // channel of the receiver message
	ReceiverMessageID string
	ReceiverID        string
	ResponseChannelID string
	ResponseMessageID string
	// Forced is set when the response landed in the fallback channel
	Forced     bool
	CoinAmount int
	SenderName string
}

// AuthorLookup resolves the author of a message that isn't cached
type AuthorLookup func(ctx context.Context, channelID, messageID string) (string, error)

type givenCoinKey struct {
	SenderID  string `json:"sender_id"`
	MessageID string `json:"message_id"`
}

// ReactionCache is safe for concurrent use. Every check-then-write sequence
// runs under one mutex.
type ReactionCache struct {
	mu            sync.Mutex
	maxEntries    int
	authors       *boundedMap[string, string] // message ID -> author ID
	givenCoins    *boundedMap[givenCoinKey, struct{}]
	channelThanks *boundedMap[string, ThanksMessage] // channel ID -> last thanks
	forcedThanks  *boundedMap[string, ThanksMessage] // receiver message ID -> thanks
}

// New creates an empty cache whose maps each hold at most maxEntries
func New(maxEntries int) *ReactionCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &ReactionCache{maxEntries: maxEntries}
	c.reset()
	return c
}

func (c *ReactionCache) reset() {
	c.authors = newBoundedMap[string, string](c.maxEntries)
	c.givenCoins = newBoundedMap[givenCoinKey, struct{}](c.maxEntries)
	c.channelThanks = newBoundedMap[string, ThanksMessage](c.maxEntries)
	c.forcedThanks = newBoundedMap[string, ThanksMessage](c.maxEntries)
}

// CachedAuthorID returns the author of a message if it is cached
func (c *ReactionCache) CachedAuthorID(messageID string) mo.Option[string] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if authorID, ok := c.authors.get(messageID); ok {
		return mo.Some(authorID)
	}
	return mo.None[string]()
}

// SaveAuthorID records the author of a message. The first author stored for
// a message wins.
func (c *ReactionCache) SaveAuthorID(messageID, authorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authors.insert(messageID, authorID)
}

// AuthorID returns the cached author of a message, falling back to lookup on
// a miss. The lock is not held while lookup runs.
func (c *ReactionCache) AuthorID(ctx context.Context, channelID, messageID string, lookup AuthorLookup) (string, error) {
	if authorID, ok := c.CachedAuthorID(messageID).Get(); ok {
		return authorID, nil
	}

	authorID, err := lookup(ctx, channelID, messageID)
	if err != nil {
		return "", fmt.Errorf("failed to look up author of message %s: %w", messageID, err)
	}

	c.SaveAuthorID(messageID, authorID)
	return c.CachedAuthorID(messageID).OrElse(authorID), nil
}

// CanGiveCoin reports whether senderID may still give a coin to messageID,
// and marks the pair as used. It returns true at most once per pair.
func (c *ReactionCache) CanGiveCoin(senderID, messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.givenCoins.insert(givenCoinKey{SenderID: senderID, MessageID: messageID}, struct{}{})
}

// MessageToEdit decides whether a new thanks for receiverMessageID should
// edit an earlier response. A forced response for the same receiver message
// always wins. The channel's last response is only reused for the same
// receiver message; otherwise it is dropped.
func (c *ReactionCache) MessageToEdit(channelID, receiverMessageID string) EditTarget {
	c.mu.Lock()
	defer c.mu.Unlock()

	if forced, ok := c.forcedThanks.get(receiverMessageID); ok {
		return EditTarget{Kind: EditForcedMessage, Message: forced}
	}

	if last, ok := c.channelThanks.get(channelID); ok {
		if last.ReceiverMessageID == receiverMessageID {
			return EditTarget{Kind: EditChannelMessage, Message: last}
		}
		c.channelThanks.remove(channelID)
	}

	return EditTarget{Kind: EditNone}
}

// DidRespond records a thanks response, adding the sender and coins to the
// existing record for the receiver message if there is one.
func (c *ReactionCache) DidRespond(r Response) ThanksMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	var existing ThanksMessage
	if forced, ok := c.forcedThanks.get(r.ReceiverMessageID); ok {
		existing = forced
	} else if last, ok := c.channelThanks.get(r.ChannelID); ok && last.ReceiverMessageID == r.ReceiverMessageID {
		existing = last
	}

	updated := existing.Adding(r.SenderName, r.CoinAmount)
	updated.ReceiverMessageID = r.ReceiverMessageID
	updated.ReceiverID = r.ReceiverID
	updated.ResponseChannelID = r.ResponseChannelID
	updated.ResponseMessageID = r.ResponseMessageID

	if r.Forced {
		if last, ok := c.channelThanks.get(r.ChannelID); ok && last.ReceiverMessageID == r.ReceiverMessageID {
			c.channelThanks.remove(r.ChannelID)
		}
		c.forcedThanks.set(r.ReceiverMessageID, updated)
	} else {
		c.forcedThanks.remove(r.ReceiverMessageID)
		c.channelThanks.set(r.ChannelID, updated)
	}

	return updated
}

// Stats reports how many entries each map holds
type Stats struct {
	Authors       int `json:"authors"`
	GivenCoins    int `json:"given_coins"`
	ChannelThanks int `json:"channel_thanks"`
	ForcedThanks  int `json:"forced_thanks"`
}

// Stats returns the current entry counts
func (c *ReactionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Authors:       c.authors.len(),
		GivenCoins:    c.givenCoins.len(),
		ChannelThanks: c.channelThanks.len(),
		ForcedThanks:  c.forcedThanks.len(),
	}
}

type snapshot struct {
	Authors       []authorEntry        `json:"authors"`
	GivenCoins    []givenCoinKey       `json:"given_coins"`
	ChannelThanks []channelThanksEntry `json:"channel_thanks"`
	ForcedThanks  []ThanksMessage      `json:"forced_thanks"`
}

type authorEntry struct {
	MessageID string `json:"message_id"`
	AuthorID  string `json:"author_id"`
}

type channelThanksEntry struct {
	ChannelID string        `json:"channel_id"`
	Message   ThanksMessage `json:"message"`
}

// Snapshot serializes the cache, oldest entries first
func (c *ReactionCache) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s snapshot
	c.authors.each(func(messageID, authorID string) {
		s.Authors = append(s.Authors, authorEntry{MessageID: messageID, AuthorID: authorID})
	})
	c.givenCoins.each(func(key givenCoinKey, _ struct{}) {
		s.GivenCoins = append(s.GivenCoins, key)
	})
	c.channelThanks.each(func(channelID string, message ThanksMessage) {
		s.ChannelThanks = append(s.ChannelThanks, channelThanksEntry{ChannelID: channelID, Message: message})
	})
	c.forcedThanks.each(func(_ string, message ThanksMessage) {
		s.ForcedThanks = append(s.ForcedThanks, message)
	})

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reaction cache: %w", err)
	}
	return data, nil
}

// Restore replaces the cache contents with a snapshot. Entries past the
// bound are evicted oldest first, as if they had been inserted in order.
func (c *ReactionCache) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal reaction cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for _, entry := range s.Authors {
		c.authors.set(entry.MessageID, entry.AuthorID)
	}
	for _, key := range s.GivenCoins {
		c.givenCoins.set(key, struct{}{})
	}
	for _, entry := range s.ChannelThanks {
		c.channelThanks.set(entry.ChannelID, entry.Message)
	}
	for _, message := range s.ForcedThanks {
		c.forcedThanks.set(message.ReceiverMessageID, message)
	}
	return nil
}
