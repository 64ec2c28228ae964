// Package stream implements the Market-Data Stream Client: a long-lived
// WebSocket connection that subscribes to per-symbol trade and depth
// streams, reconciles incremental diffs against REST snapshots, and
// normalizes the result into feed.Event records.
package stream

import "context"

// eventEnvelope peeks at the discriminating event-type field common to
// both inbound payload shapes before a full unmarshal.
type eventEnvelope struct {
	EventType string `json:"e"`
}

// DepthUpdate is an inbound incremental depth diff, per §6.
type DepthUpdate struct {
	EventType       string     `json:"e"`
	Symbol          string     `json:"s"`
	TransactionTime int64      `json:"E"`
	FirstUpdateId   int64      `json:"U"`
	LastUpdateId    int64      `json:"u"`
	PrevUpdateId    int64      `json:"pu"`
	Bids            [][]string `json:"b"`
	Asks            [][]string `json:"a"`
}

// Trade is an inbound trade print, per §6.
type Trade struct {
	EventType       string `json:"e"`
	Symbol          string `json:"s"`
	TransactionTime int64  `json:"E"`
	Price           string `json:"p"`
	Qty             string `json:"q"`
	IsBuyerMaker    bool   `json:"m"`
}

// DepthSnapshot is the REST depth response, per §6.
type DepthSnapshot struct {
	LastUpdateId    int64      `json:"lastUpdateId"`
	TransactionTime int64      `json:"E"`
	Bids            [][]string `json:"bids"`
	Asks            [][]string `json:"asks"`
}

// SymbolSignal is one item on the broadcast channel of newly requested
// symbols. A Lagged signal stands in for a slow-consumer notification on
// the broadcast primitive; the client logs the miss count and continues
// rather than treating it as fatal, per §4.D.
type SymbolSignal struct {
	Symbol string
	Lagged bool
	Missed int
}

// DepthFetcher is the external REST collaborator named in §1: get_depth.
// A complete HTTP implementation lives in rest.go over go-resty.
type DepthFetcher func(ctx context.Context, symbol string) (DepthSnapshot, error)

// Provider generalizes the teacher's external.Provider interface down to
// the surface the reconciliation state machine actually needs, so the
// exchange client can be swapped without touching that state machine —
// modeling §9's "dynamic dispatch over depth variants" as a capability
// set rather than an open class hierarchy.
type Provider interface {
	Name() string
	Connect(ctx context.Context) (rawReadWriter, error)
	GetDepthSnapshot(ctx context.Context, symbol string) (DepthSnapshot, error)
}

// rawReadWriter is the minimal duplex the client needs from a transport
// connection: read the next frame, write a text frame, write a pong,
// close. Concretely satisfied by *wsConn, the *websocket.Conn adapter in
// ws_conn.go.
type rawReadWriter interface {
	ReadFrame() (frameKind, []byte, error)
	WriteText(payload []byte) error
	WritePong(payload []byte) error
	Close() error
}

type frameKind uint8

const (
	frameText frameKind = iota
	frameBinary
	framePing
	framePong
	frameClose
	frameStreamEnd
)
