package ipc

import (
	"time"

	nats "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// ConnConfig configures the underlying transport connection.
type ConnConfig struct {
	URL               string
	ConnectionTimeout time.Duration
	MaxReconnects     int
	ReconnectWait     time.Duration
}

// DefaultConnConfig mirrors the teacher's NATS adapter defaults.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		URL:               nats.DefaultURL,
		ConnectionTimeout: 5 * time.Second,
		MaxReconnects:     10,
		ReconnectWait:     time.Second,
	}
}

// Connect opens the transport connection the Sender/Receiver endpoints are
// built on.
func Connect(cfg ConnConfig, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("mdcore-ipc"),
		nats.Timeout(cfg.ConnectionTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("ipc transport disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("ipc transport reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.IpcBuildFailed, "failed to connect ipc transport")
	}
	return conn, nil
}
