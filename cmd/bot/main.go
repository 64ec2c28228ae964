// Command bot is a minimal strategy process: it fans in one asset's IPC
// receiver, synthesizes order-level mutations from the normalized depth
// events it receives, and keeps a live book.L3Book for that asset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/book"
	"github.com/abdoElHodaky/mdcore/internal/bot"
	"github.com/abdoElHodaky/mdcore/internal/config"
	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/ipc/fanin"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults used if empty)")
	symbolFlag := flag.String("symbol", "", "symbol to trade; defaults to the config's first symbol")
	strategyID := flag.Uint64("id", 1, "this strategy's fan-in logical id")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	symbol := strings.ToLower(*symbolFlag)
	var symCfg config.SymbolConfig
	found := false
	for _, s := range cfg.Exchange.Symbols {
		if symbol == "" || strings.EqualFold(s.Symbol, symbol) {
			symCfg = s
			symbol = strings.ToLower(s.Symbol)
			found = true
			break
		}
	}
	if !found {
		logger.Fatal("no matching symbol in config", zap.String("symbol", symbol))
	}

	connCfg := ipc.ConnConfig{
		URL:               cfg.IPC.NatsURL,
		ConnectionTimeout: 5 * time.Second,
		MaxReconnects:     cfg.IPC.MaxReconnects,
		ReconnectWait:     cfg.IPC.ReconnectWait,
	}
	natsConn, err := ipc.Connect(connCfg, logger)
	if err != nil {
		logger.Fatal("failed to connect ipc transport", zap.Error(err))
	}
	defer natsConn.Close()

	assetService := fmt.Sprintf("%s.%s", cfg.IPC.ServiceName, symbol)
	_, toBot := ipc.ServiceNames(assetService)
	recv, err := ipc.NewReceiver(natsConn, toBot, logger)
	if err != nil {
		logger.Fatal("failed to build ipc receiver", zap.Error(err))
	}
	defer recv.Close()

	channel := fanin.NewFromEndpoints(*strategyID, []*ipc.Receiver{recv}, nil)
	b := book.New(symCfg.TickSize, symCfg.LotSize)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("strategy running", zap.String("symbol", symbol), zap.Uint64("id", *strategyID))

	for {
		msg, err := channel.RecvTimeout(ctx, cfg.IPC.FanInPollInterval)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("strategy shutting down")
				return
			}
			continue // Timeout: no message yet, keep polling.
		}

		ev := bot.FromMessage(symbol, msg.Kind, msg.ExchTs, msg.LocalTs, msg.OrderId, msg.Px, msg.Qty, msg.Ival, msg.Fval)
		if err := bot.ApplyLevelEvent(b, ev); err != nil {
			logger.Warn("failed to apply level event", zap.Error(err))
			continue
		}
		logger.Debug("book updated",
			zap.Float64("best_bid", b.BestBid()), zap.Float64("best_ask", b.BestAsk()))
	}
}
