// Package feed holds the normalized market event emitted by the stream
// client and carried over the IPC layer to strategy processes.
package feed

import "time"

// EventKind is a closed enum of the event codes a stream client emits.
type EventKind uint8

const (
	LocalBidDepth EventKind = iota
	LocalAskDepth
	LocalBuyTrade
	LocalSellTrade
)

func (k EventKind) String() string {
	switch k {
	case LocalBidDepth:
		return "LOCAL_BID_DEPTH_EVENT"
	case LocalAskDepth:
		return "LOCAL_ASK_DEPTH_EVENT"
	case LocalBuyTrade:
		return "LOCAL_BUY_TRADE_EVENT"
	case LocalSellTrade:
		return "LOCAL_SELL_TRADE_EVENT"
	default:
		return "UNKNOWN_EVENT"
	}
}

// Event is the normalized record delivered to strategies: a price-level
// update or a trade print. Symbol is not part of spec.md's wire struct but
// is carried here so a multi-asset connector process can route one event
// stream to the right per-asset book and IPC sender.
type Event struct {
	Symbol  string
	Ev      EventKind
	ExchTs  int64 // nanoseconds
	LocalTs int64 // nanoseconds
	OrderId int64
	Px      float64
	Qty     float64
	Ival    int64
	Fval    float64
}

// MillisToNanos converts an exchange timestamp given in milliseconds to
// nanoseconds, per the §3 Feed event conversion rule.
func MillisToNanos(ms int64) int64 {
	return ms * 1_000_000
}

// NowNanos is the wall clock at emission time, in nanoseconds.
func NowNanos() int64 {
	return time.Now().UnixNano()
}

// BidDepth builds a LOCAL_BID_DEPTH_EVENT.
func BidDepth(symbol string, exchTs int64, px, qty float64) Event {
	return Event{Symbol: symbol, Ev: LocalBidDepth, ExchTs: exchTs, LocalTs: NowNanos(), Px: px, Qty: qty}
}

// AskDepth builds a LOCAL_ASK_DEPTH_EVENT.
func AskDepth(symbol string, exchTs int64, px, qty float64) Event {
	return Event{Symbol: symbol, Ev: LocalAskDepth, ExchTs: exchTs, LocalTs: NowNanos(), Px: px, Qty: qty}
}

// BuyTrade builds a LOCAL_BUY_TRADE_EVENT.
func BuyTrade(symbol string, exchTs int64, px, qty float64) Event {
	return Event{Symbol: symbol, Ev: LocalBuyTrade, ExchTs: exchTs, LocalTs: NowNanos(), Px: px, Qty: qty}
}

// SellTrade builds a LOCAL_SELL_TRADE_EVENT.
func SellTrade(symbol string, exchTs int64, px, qty float64) Event {
	return Event{Symbol: symbol, Ev: LocalSellTrade, ExchTs: exchTs, LocalTs: NowNanos(), Px: px, Qty: qty}
}
