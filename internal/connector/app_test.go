package connector

import (
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/config"
	"github.com/abdoElHodaky/mdcore/internal/feed"
	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/metrics"
)

func startTestServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	go srv.Start()
	if !srv.ReadyForConnections(2 * time.Second) {
		t.Fatal("nats test server did not become ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Exchange.Symbols = []config.SymbolConfig{
		{Symbol: "BTCUSDT", TickSize: 0.01, LotSize: 0.00001},
		{Symbol: "ETHUSDT", TickSize: 0.01, LotSize: 0.0001},
	}
	cfg.IPC.ServiceName = "mdcore-test"
	return cfg
}

func newTestApp(t *testing.T) (*App, *natsserver.Server) {
	t.Helper()
	srv := startTestServer(t)
	logger := zap.NewNop()

	cfg := testConfig()
	connCfg := ipc.DefaultConnConfig()
	connCfg.URL = srv.ClientURL()
	natsConn, err := ipc.Connect(connCfg, logger)
	require.NoError(t, err)
	t.Cleanup(natsConn.Close)

	connMetrics := metrics.New(prometheus.NewRegistry())
	app, err := New(cfg, logger, connMetrics, natsConn)
	require.NoError(t, err)
	return app, srv
}

func TestNewBuildsOneSenderPerConfiguredSymbol(t *testing.T) {
	app, _ := newTestApp(t)
	require.Len(t, app.senders, 2)
	require.Contains(t, app.senders, "btcusdt")
	require.Contains(t, app.senders, "ethusdt")
}

func TestPublishRoutesEventToItsSymbolSender(t *testing.T) {
	app, _ := newTestApp(t)
	logger := zap.NewNop()

	_, toBot := ipc.ServiceNames("mdcore-test.btcusdt")
	recv, err := ipc.NewReceiver(app.natsConn, toBot, logger)
	require.NoError(t, err)
	defer recv.Close()

	ev := feed.BidDepth("btcusdt", 1_700_000_000_000_000_000, 50000.0, 1.5)
	app.publish(ev)
	require.NoError(t, app.natsConn.Flush())

	id, decoded, ok, err := recv.Receive()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ipc.ToAll, id)
	require.Equal(t, uint8(feed.LocalBidDepth), decoded.Kind)
	require.Equal(t, 50000.0, decoded.Px)
}

func TestPublishDropsEventForUnconfiguredSymbol(t *testing.T) {
	app, _ := newTestApp(t)
	ev := feed.BidDepth("dogeusdt", 1, 1, 1)
	app.publish(ev) // must not panic; no sender configured for this symbol
}
