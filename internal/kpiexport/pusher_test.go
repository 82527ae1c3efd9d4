package kpiexport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func TestRemoteWritePusherSendsGauges(t *testing.T) {
	gauges := NewGauges(prometheus.NewRegistry())
	gauges.SetScores("42", ScoreValues{Environmental: 60, Social: 70, Governance: 80, Overall: 70, ComplianceRate: 50})
	gauges.SetEmissions("42", EmissionValues{Scope1: 53, Scope2: 400, Scope3: 0, Total: 453})

	var got prompb.WriteRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher := NewRemoteWritePusher(server.URL, "token-1")
	pusher.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	require.NoError(t, pusher.Push(context.Background(), gauges.Registry()))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"))

	values := map[string]float64{}
	for _, ts := range got.Timeseries {
		labels := map[string]string{}
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		key := labels["__name__"] + "|" + labels["category"] + labels["scope"]
		values[key] = ts.Samples[0].Value
		assert.Equal(t, int64(1_700_000_000_000), ts.Samples[0].Timestamp)
	}
	assert.Equal(t, 60.0, values["greenledger_esg_score|environmental"])
	assert.Equal(t, 70.0, values["greenledger_esg_score|overall"])
	assert.Equal(t, 400.0, values["greenledger_emissions_tco2e|scope2"])
	assert.Equal(t, 50.0, values["greenledger_compliance_rate|"])
}

func TestRemoteWritePusherReportsHTTPErrors(t *testing.T) {
	gauges := NewGauges(nil)
	gauges.SetEmissions("1", EmissionValues{Total: 1})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewRemoteWritePusher(server.URL, "").Push(context.Background(), gauges.Registry())
	assert.Error(t, err)
}

func TestNewPusherSelection(t *testing.T) {
	log := zap.NewNop()

	cfg := config.Config{}
	assert.Nil(t, NewPusher(cfg, log))

	cfg.KPIExport = config.KPIExportConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://prom:9090/api/v1/write"}
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, log))

	cfg.KPIExport.Exporter = ExporterPushgateway
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, log))

	cfg.KPIExport.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, log))
}

func TestNilGaugesAreSafe(t *testing.T) {
	var g *Gauges
	g.SetScores("1", ScoreValues{Overall: 1})
	g.SetEmissions("1", EmissionValues{Total: 1})
	assert.Nil(t, g.Registry())
}
