// Package bot holds the strategy-side glue between the normalized feed
// events carried over the inter-process event bus and a book.L3Book: the
// fan-in channel delivers absolute per-level quantities (the exchange's
// depth@0ms diffs are level-aggregated, not true market-by-order data), so
// a strategy wanting an L3Book has to synthesize one order per price level
// rather than track individual resting orders it never sees.
package bot

import (
	"github.com/abdoElHodaky/mdcore/internal/book"
	"github.com/abdoElHodaky/mdcore/internal/feed"
)

// syntheticOrderID maps a (side, tick) pair to a stable order id used to
// track that price level's resting "order" inside an L3Book. Buy and sell
// ticks are interleaved (2*tick, 2*tick+1) so the two sides never collide
// even when their ticks coincide.
func syntheticOrderID(side book.Side, tick int32) int64 {
	base := int64(tick) * 2
	if side == book.Sell {
		return base + 1
	}
	return base
}

// ApplyLevelEvent folds one normalized LOCAL_BID_DEPTH_EVENT or
// LOCAL_ASK_DEPTH_EVENT into b, synthesizing add/modify/delete order calls
// from the event's absolute level quantity. Trade events carry no book
// mutation and are ignored.
func ApplyLevelEvent(b *book.L3Book, ev feed.Event) error {
	var side book.Side
	switch ev.Ev {
	case feed.LocalBidDepth:
		side = book.Buy
	case feed.LocalAskDepth:
		side = book.Sell
	default:
		return nil
	}

	tick := b.PriceToTick(ev.Px)
	id := syntheticOrderID(side, tick)
	exists := b.HasOrder(id)
	zero := b.IsZeroQty(ev.Qty)

	switch {
	case exists && zero:
		return b.DeleteOrder(id, ev.ExchTs)
	case exists:
		_, _, _, err := b.ModifyOrder(id, ev.Px, ev.Qty, ev.ExchTs)
		return err
	case zero:
		return nil
	case side == book.Buy:
		_, _, err := b.AddBuyOrder(id, ev.Px, ev.Qty, ev.ExchTs)
		return err
	default:
		_, _, err := b.AddSellOrder(id, ev.Px, ev.Qty, ev.ExchTs)
		return err
	}
}

// FromMessage rebuilds the feed.Event a connector emitted from the decoded
// ipc.Message fields and the symbol of the subject it arrived on — the
// wire Message carries no symbol since one subject already identifies one
// asset (§3's IPC message envelope).
func FromMessage(symbol string, kind uint8, exchTs, localTs, orderID int64, px, qty float64, ival int64, fval float64) feed.Event {
	return feed.Event{
		Symbol:  symbol,
		Ev:      feed.EventKind(kind),
		ExchTs:  exchTs,
		LocalTs: localTs,
		OrderId: orderID,
		Px:      px,
		Qty:     qty,
		Ival:    ival,
		Fval:    fval,
	}
}
