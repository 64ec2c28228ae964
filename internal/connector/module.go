package connector

import (
	"context"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/config"
	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/metrics"
)

// Module provides the connector process's dependency graph for the fx
// application in cmd/connector: the IPC transport connection, a private
// metrics registry, and the App itself, plus the fx.Lifecycle hooks that
// start and stop it.
var Module = fx.Options(
	fx.Provide(
		NewNatsConn,
		NewRegistry,
		NewMetrics,
		New,
	),
	fx.Invoke(registerLifecycle),
)

// NewNatsConn opens the shared IPC transport connection the connector's
// per-asset Senders publish on.
func NewNatsConn(cfg *config.Config, logger *zap.Logger) (*nats.Conn, error) {
	connCfg := ipc.ConnConfig{
		URL:               cfg.IPC.NatsURL,
		ConnectionTimeout: 5 * time.Second,
		MaxReconnects:     cfg.IPC.MaxReconnects,
		ReconnectWait:     cfg.IPC.ReconnectWait,
	}
	return ipc.Connect(connCfg, logger)
}

// NewRegistry builds a private Prometheus registry for this process,
// rather than reaching for the global default registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// NewMetrics builds the connector's metrics collectors against registry.
func NewMetrics(registry *prometheus.Registry) *metrics.Connector {
	return metrics.New(registry)
}

// registerLifecycle wires App.Run/App.Stop into the fx application
// lifecycle, matching the teacher's marketdata.Module OnStart/OnStop idiom.
func registerLifecycle(lc fx.Lifecycle, app *App, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := app.Run(context.Background()); err != nil {
					logger.Error("connector run exited with error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Stop(ctx)
		},
	})
}
