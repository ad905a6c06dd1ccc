package app

import (
	"errors"
	"net/http"
	"testing"

	"github.com/fiffu/listingwatch/lib/snapshotter"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransport_ObservesLatency(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder("GET", "https://example.test/page", httpmock.NewStringResponder(200, "ok"))
	mock.RegisterResponder("GET", "https://broken.test/page", httpmock.NewErrorResponder(errors.New("dial")))

	metrics := snapshotter.NewMetrics()
	tpt := &transport{mock, zap.NewNop(), metrics}
	client := &http.Client{Transport: tpt}

	resp, err := client.Get("https://example.test/page")
	require.NoError(t, err)
	resp.Body.Close()

	_, err = client.Get("https://broken.test/page")
	assert.Error(t, err)

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)

	hosts := map[string]uint64{}
	for _, fam := range families {
		if fam.GetName() != "listingwatch_outbound_request_duration_seconds" {
			continue
		}
		for _, m := range fam.GetMetric() {
			hosts[m.GetLabel()[0].GetValue()] = m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, map[string]uint64{"example.test": 1, "broken.test": 1}, hosts)
}
