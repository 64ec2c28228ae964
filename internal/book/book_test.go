package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

func TestAddBuyOrderBest(t *testing.T) {
	b := New(0.01, 1)
	prev, cur, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, InvalidMin, prev)
	assert.Equal(t, int32(10000), cur)
	assert.InDelta(t, 100.00, b.BestBid(), 1e-9)
}

func TestAddLowerThenHigher(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 99.5, 2, 0)
	require.NoError(t, err)
	prev, cur, err := b.AddBuyOrder(2, 100.0, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(9950), prev)
	assert.Equal(t, int32(10000), cur)
}

func TestDeleteRemovesEmptyLevel(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	require.NoError(t, b.DeleteOrder(1, 0))
	assert.Equal(t, float64(0), b.BidQtyAtTick(10000))
}

func TestModifyInPlace(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	side, prev, cur, err := b.ModifyOrder(1, 100.00, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, Buy, side)
	assert.Equal(t, int32(10000), prev)
	assert.Equal(t, int32(10000), cur)
	assert.Equal(t, float64(8), b.BidQtyAtTick(10000))
}

func TestAddDuplicateOrderId(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	_, _, err = b.AddBuyOrder(1, 101.00, 5, 0)
	require.Error(t, err)
	assert.Equal(t, xerrors.OrderIdExist, xerrors.Code(err))
}

func TestDeleteUnknownOrder(t *testing.T) {
	b := New(0.01, 1)
	err := b.DeleteOrder(99, 0)
	require.Error(t, err)
	assert.Equal(t, xerrors.OrderNotFound, xerrors.Code(err))
}

func TestModifyUnknownOrder(t *testing.T) {
	b := New(0.01, 1)
	_, _, _, err := b.ModifyOrder(99, 100, 1, 0)
	require.Error(t, err)
	assert.Equal(t, xerrors.OrderNotFound, xerrors.Code(err))
}

func TestDeleteAllOrdersEmptiesBook(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	_, _, err = b.AddSellOrder(2, 101.00, 3, 0)
	require.NoError(t, err)
	require.NoError(t, b.DeleteOrder(1, 0))
	require.NoError(t, b.DeleteOrder(2, 0))
	assert.Equal(t, float64(0), b.BidQtyAtTick(10000))
	assert.Equal(t, float64(0), b.AskQtyAtTick(10100))
	assert.Len(t, b.orders, 0)
}

func TestAddSellOrderBest(t *testing.T) {
	b := New(0.01, 1)
	prev, cur, err := b.AddSellOrder(1, 101.00, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, InvalidMax, prev)
	assert.Equal(t, int32(10100), cur)

	prev, cur, err = b.AddSellOrder(2, 100.50, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(10100), prev)
	assert.Equal(t, int32(10050), cur)
}

func TestModifyCrossLevelMovesQty(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddSellOrder(1, 101.00, 2, 0)
	require.NoError(t, err)
	side, prev, cur, err := b.ModifyOrder(1, 100.50, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, Sell, side)
	assert.Equal(t, int32(10100), prev)
	assert.Equal(t, int32(10050), cur)
	assert.Equal(t, float64(0), b.AskQtyAtTick(10100))
	assert.Equal(t, float64(2), b.AskQtyAtTick(10050))
}

func TestDeleteDoesNotRecomputeBestKnownDefect(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	_, _, err = b.AddBuyOrder(2, 99.00, 2, 0)
	require.NoError(t, err)
	require.NoError(t, b.DeleteOrder(1, 0))
	// best_bid_tick still points at the removed level's tick until
	// RefreshBest is called, per the mirrored reference defect.
	assert.Equal(t, int32(10000), b.BestBidTick())
	b.RefreshBest()
	assert.Equal(t, int32(9900), b.BestBidTick())
}

func TestClearDepthIgnoresUpToPx(t *testing.T) {
	b := New(0.01, 1)
	_, _, err := b.AddBuyOrder(1, 100.00, 5, 0)
	require.NoError(t, err)
	_, _, err = b.AddBuyOrder(2, 99.00, 2, 0)
	require.NoError(t, err)
	b.ClearDepth(Buy, 99.50)
	assert.Equal(t, float64(0), b.BidQtyAtTick(10000))
	assert.Equal(t, float64(0), b.BidQtyAtTick(9900))
}
