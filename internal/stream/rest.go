package stream

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

const depthSnapshotEndpoint = "/api/v3/depth"

// RestyProvider is the exchange Provider built over go-resty/resty/v2,
// the REST client idiom the rest of the retrieval pack reaches for (the
// spec treats this as the external "get_depth" collaborator, out of scope
// for REST signing, but a real client still belongs in this module since
// the pack shows one).
type RestyProvider struct {
	name         string
	wsURL        string
	client       *resty.Client
	logger       *zap.Logger
	snapshotSize int
}

// NewRestyProvider builds a Provider against baseURL/wsURL with a bounded
// request timeout.
func NewRestyProvider(name, baseURL, wsURL string, logger *zap.Logger) *RestyProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(0)
	return &RestyProvider{
		name:         name,
		wsURL:        wsURL,
		client:       client,
		logger:       logger,
		snapshotSize: 1000,
	}
}

func (p *RestyProvider) Name() string { return p.name }

// Connect dials the exchange's WebSocket endpoint.
func (p *RestyProvider) Connect(ctx context.Context) (rawReadWriter, error) {
	conn, err := dialWebSocket(p.wsURL)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// GetDepthSnapshot fetches a REST depth snapshot for symbol — the
// get_depth(symbol) → DepthSnapshot | Error collaborator named in §1.
func (p *RestyProvider) GetDepthSnapshot(ctx context.Context, symbol string) (DepthSnapshot, error) {
	var snapshot DepthSnapshot
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"limit":  strconv.Itoa(p.snapshotSize),
		}).
		SetResult(&snapshot).
		Get(depthSnapshotEndpoint)
	if err != nil {
		return DepthSnapshot{}, xerrors.Wrap(err, xerrors.Custom, "depth snapshot request failed")
	}
	if resp.IsError() {
		return DepthSnapshot{}, xerrors.Newf(xerrors.Custom, "depth snapshot request returned status %d", resp.StatusCode())
	}
	return snapshot, nil
}
