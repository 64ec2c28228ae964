package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mdcore/internal/book"
	"github.com/abdoElHodaky/mdcore/internal/feed"
)

func TestApplyLevelEventAddsThenUpdatesThenDeletes(t *testing.T) {
	b := book.New(0.01, 1)

	require.NoError(t, ApplyLevelEvent(b, feed.BidDepth("btcusdt", 1, 100.00, 5)))
	assert.Equal(t, int32(10000), b.BestBidTick())
	assert.Equal(t, 5.0, b.BidQtyAtTick(10000))

	require.NoError(t, ApplyLevelEvent(b, feed.BidDepth("btcusdt", 2, 100.00, 8)))
	assert.Equal(t, 8.0, b.BidQtyAtTick(10000))

	require.NoError(t, ApplyLevelEvent(b, feed.BidDepth("btcusdt", 3, 100.00, 0)))
	assert.Equal(t, 0.0, b.BidQtyAtTick(10000))
	assert.False(t, b.HasOrder(syntheticOrderID(book.Buy, 10000)))
}

func TestApplyLevelEventAsksAndBuysDoNotCollideAtSameTick(t *testing.T) {
	b := book.New(0.01, 1)

	require.NoError(t, ApplyLevelEvent(b, feed.BidDepth("btcusdt", 1, 100.00, 5)))
	require.NoError(t, ApplyLevelEvent(b, feed.AskDepth("btcusdt", 1, 100.00, 3)))

	assert.Equal(t, 5.0, b.BidQtyAtTick(10000))
	assert.Equal(t, 3.0, b.AskQtyAtTick(10000))
}

func TestApplyLevelEventIgnoresZeroQtyForUnknownLevel(t *testing.T) {
	b := book.New(0.01, 1)
	require.NoError(t, ApplyLevelEvent(b, feed.BidDepth("btcusdt", 1, 100.00, 0)))
	assert.Equal(t, book.InvalidMin, b.BestBidTick())
}

func TestApplyLevelEventIgnoresTradeEvents(t *testing.T) {
	b := book.New(0.01, 1)
	require.NoError(t, ApplyLevelEvent(b, feed.BuyTrade("btcusdt", 1, 100.00, 5)))
	assert.Equal(t, book.InvalidMin, b.BestBidTick())
	assert.Equal(t, book.InvalidMax, b.BestAskTick())
}

func TestFromMessageRoundTrip(t *testing.T) {
	ev := FromMessage("ethusdt", uint8(feed.LocalAskDepth), 10, 20, 0, 2000.5, 1.25, 0, 0)
	assert.Equal(t, "ethusdt", ev.Symbol)
	assert.Equal(t, feed.LocalAskDepth, ev.Ev)
	assert.Equal(t, int64(10), ev.ExchTs)
	assert.Equal(t, 2000.5, ev.Px)
}
