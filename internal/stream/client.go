package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/feed"
	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// subscribeId is the fixed JSON-RPC style id used on every SUBSCRIBE
// frame, per §6.
const subscribeId = 1

// symbolState is the per-symbol depth reconciliation cursor.
type symbolState struct {
	hasPrevU        bool
	prevU           int64
	pendingSnapshot bool
	buffered        []DepthUpdate
}

// restResult is what a detached snapshot fetch reports back to the main
// loop's internal inbox, per §5's "detached task → main loop
// communication" guidance: message passing, not shared mutable state.
type restResult struct {
	symbol   string
	snapshot DepthSnapshot
	err      error
}

// frameMsg is what the read-pump goroutine reports back to the main
// select loop for each inbound WebSocket frame.
type frameMsg struct {
	kind frameKind
	data []byte
	err  error
}

// Client owns a single WebSocket connection, the subscribe protocol, the
// depth reconciliation state machine, and trade/depth normalization into
// feed.Event.
type Client struct {
	provider Provider
	getDepth DepthFetcher
	logger   *zap.Logger

	symbols   <-chan SymbolSignal
	out       chan<- feed.Event
	restInbox chan restResult

	states map[string]*symbolState
}

// New builds a Client. symbols is the broadcast source of newly requested
// instruments; out is the outbound mpsc sink of normalized events.
func New(provider Provider, getDepth DepthFetcher, symbols <-chan SymbolSignal, out chan<- feed.Event, logger *zap.Logger) *Client {
	if getDepth == nil {
		getDepth = provider.GetDepthSnapshot
	}
	return &Client{
		provider:  provider,
		getDepth:  getDepth,
		logger:    logger,
		symbols:   symbols,
		out:       out,
		restInbox: make(chan restResult, 32),
		states:    make(map[string]*symbolState),
	}
}

// Run dials the exchange, then drives the fair-select loop described in
// §4.D and §5 until ctx is cancelled or the symbol broadcast closes (both
// return nil), or the WebSocket closes, a transport error surfaces, or a
// subscribe frame cannot be sent (each returned as an error).
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.provider.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	frames := make(chan frameMsg, 1)
	go c.readPump(conn, frames)

	for {
		select {
		case <-ctx.Done():
			return nil

		case sig, ok := <-c.symbols:
			if !ok {
				// Broadcast closed: the loop exits cleanly, per §4.D.
				return nil
			}
			if sig.Lagged {
				c.logger.Warn("symbol broadcast lagged", zap.Int("missed", sig.Missed))
				continue
			}
			if err := c.subscribe(conn, sig.Symbol); err != nil {
				return err
			}

		case res := <-c.restInbox:
			c.handleSnapshot(res)

		case f := <-frames:
			if f.err != nil {
				return f.err
			}
			c.handleFrame(ctx, f.kind, f.data)
		}
	}
}

// readPump is the dedicated goroutine that owns blocking frame reads and
// feeds them to the main select loop, so a single logical task still
// "owns" the read half without blocking the other select branches.
func (c *Client) readPump(conn rawReadWriter, frames chan<- frameMsg) {
	for {
		kind, data, err := conn.ReadFrame()
		frames <- frameMsg{kind: kind, data: data, err: err}
		if err != nil {
			return
		}
	}
}

// subscribe sends the SUBSCRIBE text frame for a newly requested symbol
// and creates its Instrument state, per §3's lifecycle rule.
func (c *Client) subscribe(conn rawReadWriter, symbol string) error {
	symbol = strings.ToLower(symbol)
	if _, exists := c.states[symbol]; !exists {
		c.states[symbol] = &symbolState{}
	}
	frame := fmt.Sprintf(
		`{"method":"SUBSCRIBE","params":["%s@trade","%s@depth@0ms"],"id":%d}`,
		symbol, symbol, subscribeId,
	)
	if err := conn.WriteText([]byte(frame)); err != nil {
		return xerrors.Wrap(err, xerrors.ConnectionAbort, "failed to send subscribe frame")
	}
	return nil
}

// handleFrame classifies and dispatches one inbound WebSocket frame.
// Binary and unrecognized frames are ignored per §4.D.
func (c *Client) handleFrame(ctx context.Context, kind frameKind, data []byte) {
	if kind != frameText {
		return
	}
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("malformed stream payload", zap.Error(err))
		return
	}
	switch env.EventType {
	case "depthUpdate":
		var u DepthUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			c.logger.Warn("malformed depth update", zap.Error(err))
			return
		}
		c.handleDepthUpdate(ctx, u)
	case "trade":
		var tr Trade
		if err := json.Unmarshal(data, &tr); err != nil {
			c.logger.Warn("malformed trade payload", zap.Error(err))
			return
		}
		c.handleTrade(tr)
	default:
		// Unrecognized event types are non-fatal; log and skip.
		c.logger.Debug("ignoring unrecognized stream event", zap.String("event_type", env.EventType))
	}
}

// handleDepthUpdate implements §4.D's reconciliation state machine,
// restoring the buffered-diff fix the reference implementation skips
// (per §9): diffs arriving before prev_u is cached are buffered rather
// than applied straight through, and drained once the snapshot lands.
func (c *Client) handleDepthUpdate(ctx context.Context, u DepthUpdate) {
	symbol := strings.ToLower(u.Symbol)
	st := c.stateFor(symbol)

	if !st.hasPrevU {
		st.buffered = append(st.buffered, u)
		if !st.pendingSnapshot {
			st.pendingSnapshot = true
			go c.fetchSnapshot(ctx, symbol)
		}
		return
	}

	if u.PrevUpdateId != st.prevU {
		c.logger.Warn("depth update prev_update_id mismatch",
			zap.String("symbol", symbol),
			zap.Int64("expected", st.prevU),
			zap.Int64("got", u.PrevUpdateId))
	}
	st.prevU = u.LastUpdateId
	c.emitDiff(symbol, u)
}

// fetchSnapshot is the detached REST task; its only interaction with the
// main loop is through restInbox. Failures are reported there too so the
// main loop logs and drops — no retry is built in, since the next depth
// diff re-triggers a fetch while prev_u is still absent.
func (c *Client) fetchSnapshot(ctx context.Context, symbol string) {
	snap, err := c.getDepth(ctx, symbol)
	c.restInbox <- restResult{symbol: symbol, snapshot: snap, err: err}
}

// handleSnapshot processes a REST snapshot arriving on the internal
// inbox: emits its levels, then drains buffered diffs whose
// last_update_id is newer than the snapshot, chaining prev_update_id.
func (c *Client) handleSnapshot(res restResult) {
	st := c.stateFor(res.symbol)
	st.pendingSnapshot = false

	if res.err != nil {
		c.logger.Warn("rest snapshot fetch failed", zap.String("symbol", res.symbol), zap.Error(res.err))
		return
	}

	c.emitSnapshot(res.symbol, res.snapshot)
	st.hasPrevU = true
	st.prevU = res.snapshot.LastUpdateId

	buffered := st.buffered
	st.buffered = nil
	for _, u := range buffered {
		if u.LastUpdateId <= res.snapshot.LastUpdateId {
			continue
		}
		if u.PrevUpdateId != st.prevU {
			c.logger.Warn("buffered diff prev_update_id mismatch",
				zap.String("symbol", res.symbol),
				zap.Int64("expected", st.prevU),
				zap.Int64("got", u.PrevUpdateId))
		}
		st.prevU = u.LastUpdateId
		c.emitDiff(res.symbol, u)
	}
}

func (c *Client) stateFor(symbol string) *symbolState {
	st, ok := c.states[symbol]
	if !ok {
		st = &symbolState{}
		c.states[symbol] = st
	}
	return st
}

// emitDiff emits bid levels of a diff before ask levels of the same diff,
// per §5's single-symbol ordering guarantee.
func (c *Client) emitDiff(symbol string, u DepthUpdate) {
	exchTs := feed.MillisToNanos(u.TransactionTime)
	for _, lvl := range u.Bids {
		px, qty, err := parseLevel(lvl)
		if err != nil {
			c.logger.Warn("malformed bid level", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		c.send(feed.BidDepth(symbol, exchTs, px, qty))
	}
	for _, lvl := range u.Asks {
		px, qty, err := parseLevel(lvl)
		if err != nil {
			c.logger.Warn("malformed ask level", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		c.send(feed.AskDepth(symbol, exchTs, px, qty))
	}
}

// emitSnapshot emits a REST snapshot's levels: bids first, then asks, per
// §4.D's "REST snapshot handling".
func (c *Client) emitSnapshot(symbol string, snap DepthSnapshot) {
	exchTs := feed.MillisToNanos(snap.TransactionTime)
	for _, lvl := range snap.Bids {
		px, qty, err := parseLevel(lvl)
		if err != nil {
			c.logger.Warn("malformed snapshot bid level", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		c.send(feed.BidDepth(symbol, exchTs, px, qty))
	}
	for _, lvl := range snap.Asks {
		px, qty, err := parseLevel(lvl)
		if err != nil {
			c.logger.Warn("malformed snapshot ask level", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		c.send(feed.AskDepth(symbol, exchTs, px, qty))
	}
}

// handleTrade normalizes an inbound trade print; a buyer that is the
// market maker means the aggressor is a seller hitting the bid, per §4.D.
func (c *Client) handleTrade(tr Trade) {
	px, err := strconv.ParseFloat(tr.Price, 64)
	if err != nil {
		c.logger.Warn("malformed trade price", zap.String("symbol", tr.Symbol), zap.Error(err))
		return
	}
	qty, err := strconv.ParseFloat(tr.Qty, 64)
	if err != nil {
		c.logger.Warn("malformed trade qty", zap.String("symbol", tr.Symbol), zap.Error(err))
		return
	}
	exchTs := feed.MillisToNanos(tr.TransactionTime)
	symbol := strings.ToLower(tr.Symbol)
	if tr.IsBuyerMaker {
		c.send(feed.SellTrade(symbol, exchTs, px, qty))
	} else {
		c.send(feed.BuyTrade(symbol, exchTs, px, qty))
	}
}

func (c *Client) send(ev feed.Event) {
	c.out <- ev
}

func parseLevel(lvl []string) (px, qty float64, err error) {
	if len(lvl) < 2 {
		return 0, 0, xerrors.New(xerrors.Custom, "depth level missing price or quantity")
	}
	px, err = strconv.ParseFloat(lvl[0], 64)
	if err != nil {
		return 0, 0, err
	}
	qty, err = strconv.ParseFloat(lvl[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return px, qty, nil
}
