// Package book implements the L3 market-by-order depth: per-order state,
// aggregated depth per price tick, and best bid/ask tracking.
package book

import (
	"math"

	"github.com/tidwall/btree"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// Side is the direction of a resting order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Sentinel tick values for an empty side, per §3.
const (
	InvalidMin int32 = math.MinInt32
	InvalidMax int32 = math.MaxInt32
)

// MarketOrder is a single resting order, uniquely keyed by OrderId.
type MarketOrder struct {
	OrderId   int64
	Side      Side
	PriceTick int32
	Qty       float64
}

// level is one aggregated price level, ordered by Tick within a side.
type level struct {
	Tick int32
	Qty  float64
}

type levels = btree.BTreeG[*level]

// L3Book owns dual-indexed order state: an order-id map and an ordered
// per-side depth map, plus cached best-tick extrema.
type L3Book struct {
	tickSize float64
	lotSize  float64

	bidDepth *levels // descending by tick
	askDepth *levels // ascending by tick

	orders map[int64]*MarketOrder

	bestBidTick int32
	bestAskTick int32
}

// New constructs an empty book for the given tick and lot size.
func New(tickSize, lotSize float64) *L3Book {
	bidDepth := btree.NewBTreeG(func(a, b *level) bool { return a.Tick > b.Tick })
	askDepth := btree.NewBTreeG(func(a, b *level) bool { return a.Tick < b.Tick })
	return &L3Book{
		tickSize:    tickSize,
		lotSize:     lotSize,
		bidDepth:    bidDepth,
		askDepth:    askDepth,
		orders:      make(map[int64]*MarketOrder),
		bestBidTick: InvalidMin,
		bestAskTick: InvalidMax,
	}
}

// TickSize returns the book's configured tick size.
func (b *L3Book) TickSize() float64 { return b.tickSize }

// LotSize returns the book's configured lot size.
func (b *L3Book) LotSize() float64 { return b.lotSize }

// PriceToTick converts a float price to its integer tick, rounded to
// nearest — all price comparisons happen in integer tick space.
func (b *L3Book) PriceToTick(px float64) int32 {
	return int32(math.Round(px / b.tickSize))
}

// TickToPrice converts an integer tick back to a float price.
func (b *L3Book) TickToPrice(tick int32) float64 {
	return float64(tick) * b.tickSize
}

// isZeroQty reports whether qty rounds to zero in lot units — all quantity
// zero-checks happen in integer lot space, never by direct float comparison.
func (b *L3Book) isZeroQty(qty float64) bool {
	return math.Round(qty/b.lotSize) == 0
}

// IsZeroQty exports the book's lot-space zero check so callers synthesizing
// order-level mutations from absolute level quantities (e.g. a strategy
// applying aggregated depth updates) can decide between a delete and a
// modify without duplicating the rounding rule.
func (b *L3Book) IsZeroQty(qty float64) bool {
	return b.isZeroQty(qty)
}

func (b *L3Book) sideDepth(s Side) *levels {
	if s == Buy {
		return b.bidDepth
	}
	return b.askDepth
}

// HasOrder reports whether id currently identifies a resting order.
func (b *L3Book) HasOrder(id int64) bool {
	_, ok := b.orders[id]
	return ok
}

// BestBidTick returns the cached best bid tick, or InvalidMin if no bids.
func (b *L3Book) BestBidTick() int32 { return b.bestBidTick }

// BestAskTick returns the cached best ask tick, or InvalidMax if no asks.
func (b *L3Book) BestAskTick() int32 { return b.bestAskTick }

// BestBid returns the best bid as a float price, or a sentinel if empty.
func (b *L3Book) BestBid() float64 { return b.TickToPrice(b.bestBidTick) }

// BestAsk returns the best ask as a float price, or a sentinel if empty.
func (b *L3Book) BestAsk() float64 { return b.TickToPrice(b.bestAskTick) }

// BidQtyAtTick returns the aggregated bid quantity at tick, or 0.
func (b *L3Book) BidQtyAtTick(tick int32) float64 {
	return qtyAt(b.bidDepth, tick)
}

// AskQtyAtTick returns the aggregated ask quantity at tick, or 0.
func (b *L3Book) AskQtyAtTick(tick int32) float64 {
	return qtyAt(b.askDepth, tick)
}

func qtyAt(lv *levels, tick int32) float64 {
	l, ok := lv.Get(&level{Tick: tick})
	if !ok {
		return 0
	}
	return l.Qty
}

// recomputeBestBid refreshes bestBidTick from the ordered container.
func (b *L3Book) recomputeBestBid() {
	if l, ok := b.bidDepth.Min(); ok {
		b.bestBidTick = l.Tick
	} else {
		b.bestBidTick = InvalidMin
	}
}

// recomputeBestAsk refreshes bestAskTick from the ordered container.
func (b *L3Book) recomputeBestAsk() {
	if l, ok := b.askDepth.Min(); ok {
		b.bestAskTick = l.Tick
	} else {
		b.bestAskTick = InvalidMax
	}
}

// addQty adds delta to the level at tick on the given side, creating the
// level if absent and dropping it if the residual rounds to zero.
func (b *L3Book) addQty(side Side, tick int32, delta float64) {
	lv := b.sideDepth(side)
	existing, ok := lv.Get(&level{Tick: tick})
	if !ok {
		if !b.isZeroQty(delta) {
			lv.Set(&level{Tick: tick, Qty: delta})
		}
		return
	}
	existing.Qty += delta
	if b.isZeroQty(existing.Qty) {
		lv.Delete(existing)
	}
}

// AddBuyOrder inserts a new buy order and aggregates into bid_depth.
// Returns (prevBestBidTick, newBestBidTick). Recomputes best only when the
// new tick raises it, per §4.A.
func (b *L3Book) AddBuyOrder(id int64, px, qty float64, ts int64) (int32, int32, error) {
	if _, exists := b.orders[id]; exists {
		return 0, 0, xerrors.New(xerrors.OrderIdExist, "order id already present")
	}
	tick := b.PriceToTick(px)
	prev := b.bestBidTick
	b.orders[id] = &MarketOrder{OrderId: id, Side: Buy, PriceTick: tick, Qty: qty}
	b.addQty(Buy, tick, qty)
	if tick > prev {
		b.bestBidTick = tick
	}
	return prev, b.bestBidTick, nil
}

// AddSellOrder inserts a new sell order and aggregates into ask_depth.
// Returns (prevBestAskTick, newBestAskTick). Symmetric with AddBuyOrder,
// recomputing only when the new tick lowers the cached ask.
func (b *L3Book) AddSellOrder(id int64, px, qty float64, ts int64) (int32, int32, error) {
	if _, exists := b.orders[id]; exists {
		return 0, 0, xerrors.New(xerrors.OrderIdExist, "order id already present")
	}
	tick := b.PriceToTick(px)
	prev := b.bestAskTick
	b.orders[id] = &MarketOrder{OrderId: id, Side: Sell, PriceTick: tick, Qty: qty}
	b.addQty(Sell, tick, qty)
	if tick < prev {
		b.bestAskTick = tick
	}
	return prev, b.bestAskTick, nil
}

// DeleteOrder removes an order by id and subtracts its qty from the level.
//
// known defect, see spec §9: the reference implementation does not
// recompute best_bid_tick/best_ask_tick here even when the removed level
// was the current best. Mirrored faithfully; callers that need a correct
// cache should call RefreshBest after Delete.
func (b *L3Book) DeleteOrder(id int64, ts int64) error {
	o, ok := b.orders[id]
	if !ok {
		return xerrors.New(xerrors.OrderNotFound, "order id not found")
	}
	delete(b.orders, id)
	b.addQty(o.Side, o.PriceTick, -o.Qty)
	return nil
}

// ModifyOrder adjusts an existing order's price/qty. Returns (side,
// prevBestTick, newBestTick) for the affected side.
//
// If the price tick is unchanged, the level is adjusted in place.
// If the price tick changes, the old level loses the order's qty (dropped
// if it rounds to zero) and the new level gains it; best is recomputed
// only when the new tick crosses the cached best on that side.
func (b *L3Book) ModifyOrder(id int64, px, qty float64, ts int64) (Side, int32, int32, error) {
	o, ok := b.orders[id]
	if !ok {
		return 0, 0, 0, xerrors.New(xerrors.OrderNotFound, "order id not found")
	}
	newTick := b.PriceToTick(px)
	side := o.Side

	if newTick == o.PriceTick {
		delta := qty - o.Qty
		b.addQty(side, o.PriceTick, delta)
		o.Qty = qty
		if side == Buy {
			return side, b.bestBidTick, b.bestBidTick, nil
		}
		return side, b.bestAskTick, b.bestAskTick, nil
	}

	oldTick := o.PriceTick
	var prev int32

	// known defect, see spec §9: when the level-removal branch below empties
	// the order's old level and that level was the cached best, best is not
	// refreshed here — only a new tick that crosses the cached best triggers
	// a recompute. A caller wanting the corrected behavior should call
	// RefreshBest after Modify.
	if side == Buy {
		prev = b.bestBidTick
		b.removeLevelIfEmptiedBuy(oldTick, o.Qty)
		o.PriceTick = newTick
		o.Qty = qty
		b.addQty(Buy, newTick, qty)
		if newTick > prev {
			b.bestBidTick = newTick
		}
		return side, prev, b.bestBidTick, nil
	}

	prev = b.bestAskTick
	b.removeLevelIfEmptiedAsk(oldTick, o.Qty)
	o.PriceTick = newTick
	o.Qty = qty
	b.addQty(Sell, newTick, qty)
	if newTick < prev {
		b.bestAskTick = newTick
	}
	return side, prev, b.bestAskTick, nil
}

// removeLevelIfEmptiedBuy subtracts qty from the bid level at tick.
func (b *L3Book) removeLevelIfEmptiedBuy(tick int32, qty float64) bool {
	l, ok := b.bidDepth.Get(&level{Tick: tick})
	if !ok {
		return false
	}
	l.Qty -= qty
	if b.isZeroQty(l.Qty) {
		b.bidDepth.Delete(l)
		return true
	}
	return false
}

// removeLevelIfEmptiedAsk subtracts qty from the ask level at tick.
//
// known defect, see spec §9: the cross-level modify path in the reference
// implementation mutates bid_depth instead of ask_depth when clearing the
// emptied ask level. That defect is NOT reproduced here — this module
// operates on ask_depth, per the "correct implementation must operate on
// ask_depth" resolution in §9.
func (b *L3Book) removeLevelIfEmptiedAsk(tick int32, qty float64) bool {
	l, ok := b.askDepth.Get(&level{Tick: tick})
	if !ok {
		return false
	}
	l.Qty -= qty
	if b.isZeroQty(l.Qty) {
		b.askDepth.Delete(l)
		return true
	}
	return false
}

// RefreshBest recomputes both cached best ticks from the ordered
// containers. Not called automatically by Delete or the level-removal
// branch of Modify, matching the reference's omission; a caller that wants
// the corrected behavior described in §9 can invoke this after any mutation.
func (b *L3Book) RefreshBest() {
	b.recomputeBestBid()
	b.recomputeBestAsk()
}

// ClearDepth removes all levels on the given side.
//
// known defect, see spec §9: upToPx is accepted but ignored — the current
// contract is "clear the entire side," reserved for a future partial-clear
// extension.
func (b *L3Book) ClearDepth(side Side, upToPx float64) {
	_ = upToPx
	if side == Buy {
		b.bidDepth = btree.NewBTreeG(func(a, b *level) bool { return a.Tick > b.Tick })
		b.bestBidTick = InvalidMin
		for id, o := range b.orders {
			if o.Side == Buy {
				delete(b.orders, id)
			}
		}
		return
	}
	b.askDepth = btree.NewBTreeG(func(a, b *level) bool { return a.Tick < b.Tick })
	b.bestAskTick = InvalidMax
	for id, o := range b.orders {
		if o.Side == Sell {
			delete(b.orders, id)
		}
	}
}
