package app

import (
	"net/http"
	"time"

	"github.com/fiffu/listingwatch/lib/snapshotter"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTransport returns the RoundTripper shared by every outbound client.
func NewTransport(lc fx.Lifecycle, log *zap.Logger, metrics *snapshotter.Metrics) http.RoundTripper {
	return &transport{http.DefaultTransport, log, metrics}
}

type transport struct {
	base    http.RoundTripper
	log     *zap.Logger
	metrics *snapshotter.Metrics
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := tpt.base.RoundTrip(req)
	elapsed := time.Since(start)

	tpt.metrics.ObserveRequest(req.URL.Host, elapsed)
	if err != nil {
		tpt.log.Sugar().Warnw("Outbound request failed",
			"method", req.Method,
			"host", req.URL.Host,
			"elapsed", elapsed,
			"err", err,
		)
		return nil, err
	}

	tpt.log.Sugar().Debugw("Outbound request",
		"method", req.Method,
		"host", req.URL.Host,
		"status", resp.StatusCode,
		"elapsed", elapsed,
	)
	return resp, nil
}
