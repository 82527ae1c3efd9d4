package metrics

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	metricSubmissions  metric.Int64Counter
	metricRejections   metric.Int64Counter
	scoreCalculations  metric.Int64Counter
	emissionsCalcs     metric.Int64Counter
	integrationSyncs   metric.Int64Counter
	integrationRecords metric.Int64Counter
	cacheLookups       metric.Int64Counter
	reportsGenerated   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("otlp metrics exporter ready",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the domain counters on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cmp.Or(strings.TrimSpace(cfg.ServiceName), "greenledger"))

	m := &Metrics{}
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"greenledger_metric_submissions_total", &m.metricSubmissions},
		{"greenledger_metric_rejections_total", &m.metricRejections},
		{"greenledger_score_calculations_total", &m.scoreCalculations},
		{"greenledger_emissions_calculations_total", &m.emissionsCalcs},
		{"greenledger_integration_syncs_total", &m.integrationSyncs},
		{"greenledger_integration_records_total", &m.integrationRecords},
		{"greenledger_response_cache_lookups_total", &m.cacheLookups},
		{"greenledger_reports_generated_total", &m.reportsGenerated},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	c.Add(ctx, n, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func label(key, value string) attribute.KeyValue {
	return attribute.String(key, strings.TrimSpace(value))
}

// RecordMetricSubmission counts accepted metric records per category and source.
func (m *Metrics) RecordMetricSubmission(ctx context.Context, category, source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	add(ctx, m.metricSubmissions, int64(count), label("category", category), label("source", source))
}

// RecordMetricRejection counts submissions refused by validation.
func (m *Metrics) RecordMetricRejection(ctx context.Context, reason string) {
	if m != nil {
		add(ctx, m.metricRejections, 1, label("reason", reason))
	}
}

func (m *Metrics) RecordScoreCalculation(ctx context.Context, companyID string) {
	if m != nil {
		add(ctx, m.scoreCalculations, 1, label("company_id", companyID))
	}
}

func (m *Metrics) RecordEmissionsCalculation(ctx context.Context, region string, recorded bool) {
	if m != nil {
		add(ctx, m.emissionsCalcs, 1, label("region", region), attribute.Bool("recorded", recorded))
	}
}

// RecordIntegrationSync counts sync runs and the records they imported.
func (m *Metrics) RecordIntegrationSync(ctx context.Context, kind, status string, records int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{label("kind", kind), label("status", status)}
	add(ctx, m.integrationSyncs, 1, attrs...)
	if records > 0 {
		add(ctx, m.integrationRecords, int64(records), attrs...)
	}
}

func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	status := "miss"
	if hit {
		status = "hit"
	}
	add(ctx, m.cacheLookups, 1, label("status", status))
}

func (m *Metrics) RecordReportGenerated(ctx context.Context, storage string) {
	if m != nil {
		add(ctx, m.reportsGenerated, 1, label("storage", storage))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"company_id": {},
	"category":   {},
	"source":     {},
	"region":     {},
	"recorded":   {},
	"kind":       {},
	"status":     {},
	"storage":    {},
	"reason":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
