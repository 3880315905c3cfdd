package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionCache_CanGiveCoin(t *testing.T) {
	c := New(10)

	assert.True(t, c.CanGiveCoin("sender", "message"))
	assert.False(t, c.CanGiveCoin("sender", "message"))
	assert.True(t, c.CanGiveCoin("sender", "other-message"))
	assert.True(t, c.CanGiveCoin("other-sender", "message"))
}

func TestReactionCache_CanGiveCoin_Concurrent(t *testing.T) {
	c := New(10)

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CanGiveCoin("sender", "message") {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed)
}

func TestReactionCache_AuthorID(t *testing.T) {
	c := New(10)
	calls := 0
	lookup := func(ctx context.Context, channelID, messageID string) (string, error) {
		calls++
		return "author-of-" + messageID, nil
	}

	authorID, err := c.AuthorID(context.Background(), "channel", "m1", lookup)
	require.NoError(t, err)
	assert.Equal(t, "author-of-m1", authorID)

	authorID, err = c.AuthorID(context.Background(), "channel", "m1", lookup)
	require.NoError(t, err)
	assert.Equal(t, "author-of-m1", authorID)
	assert.Equal(t, 1, calls)
}

func TestReactionCache_AuthorID_LookupFails(t *testing.T) {
	c := New(10)
	lookup := func(ctx context.Context, channelID, messageID string) (string, error) {
		return "", errors.New("not found")
	}

	_, err := c.AuthorID(context.Background(), "channel", "m1", lookup)
	assert.Error(t, err)
	assert.True(t, c.CachedAuthorID("m1").IsAbsent())
}

func TestReactionCache_SaveAuthorID_FirstWins(t *testing.T) {
	c := New(10)

	c.SaveAuthorID("m1", "a1")
	c.SaveAuthorID("m1", "a2")

	assert.Equal(t, "a1", c.CachedAuthorID("m1").MustGet())
}

func TestReactionCache_EvictsOldestFirst(t *testing.T) {
	c := New(3)

	for i := 1; i <= 4; i++ {
		c.SaveAuthorID(fmt.Sprintf("m%d", i), fmt.Sprintf("a%d", i))
	}

	assert.True(t, c.CachedAuthorID("m1").IsAbsent())
	for i := 2; i <= 4; i++ {
		assert.True(t, c.CachedAuthorID(fmt.Sprintf("m%d", i)).IsPresent())
	}
	assert.Equal(t, 3, c.Stats().Authors)
}

func TestReactionCache_GivenCoinsAreBounded(t *testing.T) {
	c := New(2)

	assert.True(t, c.CanGiveCoin("s", "m1"))
	assert.True(t, c.CanGiveCoin("s", "m2"))
	assert.True(t, c.CanGiveCoin("s", "m3"))

	assert.Equal(t, 2, c.Stats().GivenCoins)
	// the oldest pair fell out of the cache
	assert.True(t, c.CanGiveCoin("s", "m1"))
}

func TestReactionCache_MessageToEdit(t *testing.T) {
	c := New(10)

	assert.Equal(t, EditNone, c.MessageToEdit("c1", "m1").Kind)

	c.DidRespond(Response{
		ChannelID:         "c1",
		ReceiverMessageID: "m1",
		ReceiverID:        "r1",
		ResponseChannelID: "c1",
		ResponseMessageID: "bot1",
		CoinAmount:        1,
		SenderName:        "alice",
	})
	c.DidRespond(Response{
		ChannelID:         "c1",
		ReceiverMessageID: "m1",
		ReceiverID:        "r1",
		ResponseChannelID: "c1",
		ResponseMessageID: "bot1",
		CoinAmount:        3,
		SenderName:        "bob",
	})

	target := c.MessageToEdit("c1", "m1")
	assert.Equal(t, EditChannelMessage, target.Kind)
	assert.Equal(t, "bot1", target.Message.ResponseMessageID)
	assert.Equal(t, []string{"alice", "bob"}, target.Message.SenderNames)
	assert.Equal(t, 4, target.Message.TotalCoinCount)

	// a different message in the same channel makes the record stale
	assert.Equal(t, EditNone, c.MessageToEdit("c1", "m2").Kind)
	assert.Equal(t, EditNone, c.MessageToEdit("c1", "m1").Kind)
	assert.Equal(t, 0, c.Stats().ChannelThanks)
}

func TestReactionCache_MessageToEdit_Forced(t *testing.T) {
	c := New(10)

	c.DidRespond(Response{
		ChannelID:         "c1",
		ReceiverMessageID: "m1",
		ResponseChannelID: "thanks",
		ResponseMessageID: "bot1",
		Forced:            true,
		CoinAmount:        1,
		SenderName:        "alice",
	})

	// forced records are keyed by receiver message, whatever the channel says
	target := c.MessageToEdit("c1", "m1")
	assert.Equal(t, EditForcedMessage, target.Kind)
	assert.Equal(t, "thanks", target.Message.ResponseChannelID)

	assert.Equal(t, EditNone, c.MessageToEdit("c1", "m2").Kind)
	assert.Equal(t, EditForcedMessage, c.MessageToEdit("c1", "m1").Kind)

	updated := c.DidRespond(Response{
		ChannelID:         "c1",
		ReceiverMessageID: "m1",
		ResponseChannelID: "thanks",
		ResponseMessageID: "bot1",
		Forced:            true,
		CoinAmount:        1,
		SenderName:        "bob",
	})
	assert.Equal(t, []string{"alice", "bob"}, updated.SenderNames)
	assert.Equal(t, 2, updated.TotalCoinCount)
}

func TestReactionCache_DidRespond_NeverKeepsBothRecords(t *testing.T) {
	c := New(10)

	c.DidRespond(Response{ChannelID: "c1", ReceiverMessageID: "m1", ResponseMessageID: "bot1", CoinAmount: 1, SenderName: "alice"})
	c.DidRespond(Response{ChannelID: "c1", ReceiverMessageID: "m1", ResponseMessageID: "bot2", Forced: true, CoinAmount: 1, SenderName: "bob"})

	stats := c.Stats()
	assert.Equal(t, 0, stats.ChannelThanks)
	assert.Equal(t, 1, stats.ForcedThanks)

	target := c.MessageToEdit("c1", "m1")
	assert.Equal(t, EditForcedMessage, target.Kind)
	assert.Equal(t, []string{"alice", "bob"}, target.Message.SenderNames)

	c.DidRespond(Response{ChannelID: "c1", ReceiverMessageID: "m1", ResponseMessageID: "bot3", CoinAmount: 1, SenderName: "carol"})

	stats = c.Stats()
	assert.Equal(t, 1, stats.ChannelThanks)
	assert.Equal(t, 0, stats.ForcedThanks)
}

func TestThanksMessage_AddingDoesNotAlias(t *testing.T) {
	original := ThanksMessage{SenderNames: make([]string, 1, 4), TotalCoinCount: 1}
	original.SenderNames[0] = "alice"

	first := original.Adding("bob", 1)
	second := original.Adding("carol", 1)

	assert.Equal(t, []string{"alice", "bob"}, first.SenderNames)
	assert.Equal(t, []string{"alice", "carol"}, second.SenderNames)
	assert.Equal(t, []string{"alice"}, original.SenderNames)
}

func TestReactionCache_SnapshotRestore(t *testing.T) {
	c := New(10)
	c.SaveAuthorID("m1", "a1")
	c.SaveAuthorID("m2", "a2")
	c.CanGiveCoin("s1", "m1")
	c.DidRespond(Response{ChannelID: "c1", ReceiverMessageID: "m1", ResponseMessageID: "bot1", CoinAmount: 1, SenderName: "alice"})
	c.DidRespond(Response{ChannelID: "c2", ReceiverMessageID: "m2", ResponseMessageID: "bot2", Forced: true, CoinAmount: 3, SenderName: "bob"})

	data, err := c.Snapshot()
	require.NoError(t, err)

	restored := New(10)
	require.NoError(t, restored.Restore(data))

	assert.Equal(t, c.Stats(), restored.Stats())
	assert.False(t, restored.CanGiveCoin("s1", "m1"))
	assert.Equal(t, "a2", restored.CachedAuthorID("m2").MustGet())
	assert.Equal(t, EditChannelMessage, restored.MessageToEdit("c1", "m1").Kind)
	assert.Equal(t, 3, restored.MessageToEdit("c2", "m2").Message.TotalCoinCount)
}

func TestReactionCache_RestoreHonoursBound(t *testing.T) {
	big := New(10)
	for i := 1; i <= 5; i++ {
		big.SaveAuthorID(fmt.Sprintf("m%d", i), "a")
	}
	data, err := big.Snapshot()
	require.NoError(t, err)

	small := New(2)
	require.NoError(t, small.Restore(data))

	assert.Equal(t, 2, small.Stats().Authors)
	assert.True(t, small.CachedAuthorID("m3").IsAbsent())
	assert.True(t, small.CachedAuthorID("m5").IsPresent())
}

func TestReactionCache_RestoreInvalid(t *testing.T) {
	assert.Error(t, New(10).Restore([]byte("not json")))
}
