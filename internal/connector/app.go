// Package connector wires the market-data stream client, per-asset IPC
// senders, and the connector process's service lifecycle into one runnable
// App — the cmd/connector binary's entire job is to build one of these and
// run it under fx.
package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/config"
	"github.com/abdoElHodaky/mdcore/internal/feed"
	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/lifecycle"
	"github.com/abdoElHodaky/mdcore/internal/metrics"
	"github.com/abdoElHodaky/mdcore/internal/stream"
)

// App owns one stream.Client multiplexing every configured symbol's
// exchange feed, one ipc.Sender per (asset, ToBot), and the dispatch loop
// routing normalized feed.Event records to the sender for their symbol.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Connector
	base    *lifecycle.BaseService

	natsConn *nats.Conn
	client   *stream.Client
	senders  map[string]*ipc.Sender

	symbols chan stream.SymbolSignal
	events  chan feed.Event
}

// New builds an App from its dependencies. natsConn is the shared
// publisher/subscriber connection; the connector opens one Sender per
// configured symbol against it.
func New(cfg *config.Config, logger *zap.Logger, connMetrics *metrics.Connector, natsConn *nats.Conn) (*App, error) {
	if len(cfg.Exchange.Symbols) == 0 {
		return nil, config.ErrNoSymbols
	}

	senders := make(map[string]*ipc.Sender, len(cfg.Exchange.Symbols))
	for _, sym := range cfg.Exchange.Symbols {
		symbol := strings.ToLower(sym.Symbol)
		assetService := fmt.Sprintf("%s.%s", cfg.IPC.ServiceName, symbol)
		_, toBot := ipc.ServiceNames(assetService)
		senders[symbol] = ipc.NewSender(natsConn, toBot, logger)
	}

	symbols := make(chan stream.SymbolSignal, len(cfg.Exchange.Symbols))
	events := make(chan feed.Event, cfg.IPC.SubscriberBuffer)

	provider := stream.NewRestyProvider(cfg.Exchange.Name, cfg.Exchange.RestBaseURL, cfg.Exchange.WebSocketURL, logger)
	client := stream.New(provider, nil, symbols, events, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  connMetrics,
		base:     lifecycle.NewBaseService("mdcore-connector", "v1", logger),
		natsConn: natsConn,
		client:   client,
		senders:  senders,
		symbols:  symbols,
		events:   events,
	}, nil
}

// Run seeds the configured symbols onto the stream client's broadcast
// channel, starts the dispatch loop, and drives the WebSocket client loop
// until ctx is cancelled or a connection-terminal error surfaces.
func (a *App) Run(ctx context.Context) error {
	if err := a.base.Start(ctx); err != nil {
		return err
	}
	runCtx := a.base.Context()

	for _, sym := range a.cfg.Exchange.Symbols {
		a.symbols <- stream.SymbolSignal{Symbol: sym.Symbol}
	}

	a.base.AddWorker()
	go func() {
		defer a.base.WorkerDone()
		a.dispatch(runCtx)
	}()

	connID := uuid.New().String()
	a.metrics.RecordConnectionOpen(connID)
	defer a.metrics.RecordConnectionClose(connID)

	err := a.client.Run(runCtx)
	close(a.symbols)
	return err
}

// Stop gracefully tears down the connector, waiting for the dispatch
// worker to drain.
func (a *App) Stop(ctx context.Context) error {
	return a.base.Stop(ctx)
}

// dispatch drains normalized events and publishes each to the ipc.Sender
// for its symbol. A symbol with no configured sender, or a send failure,
// is logged and dropped — per §7, IPC send failures never crash the
// connector.
func (a *App) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.events:
			if !ok {
				return
			}
			a.publish(ev)
		}
	}
}

func (a *App) publish(ev feed.Event) {
	sender, ok := a.senders[ev.Symbol]
	if !ok {
		a.logger.Warn("dropping event for unconfigured symbol", zap.String("symbol", ev.Symbol))
		return
	}
	msg := ipc.Message{
		Kind:    uint8(ev.Ev),
		ExchTs:  ev.ExchTs,
		LocalTs: ev.LocalTs,
		OrderId: ev.OrderId,
		Px:      ev.Px,
		Qty:     ev.Qty,
		Ival:    ev.Ival,
		Fval:    ev.Fval,
	}
	if err := sender.Send(ipc.ToAll, msg); err != nil {
		a.metrics.RecordIPCSendFailure()
		a.logger.Warn("ipc send failed", zap.String("symbol", ev.Symbol), zap.Error(err))
		return
	}
	a.metrics.RecordIPCSend()
}
