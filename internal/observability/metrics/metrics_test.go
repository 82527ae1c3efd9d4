package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("company_id", "123"),
		attribute.String("metric_name", "scope1_emissions"),
		attribute.String("category", "environmental"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "company_id" && attrs[1].Key != "company_id" {
		t.Fatalf("expected company_id to be retained")
	}
	if attrs[0].Key != "category" && attrs[1].Key != "category" {
		t.Fatalf("expected category to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordMetricSubmission(context.Background(), "social", "manual", 3)
	m.RecordCacheLookup(context.Background(), true)

	noop := NewNoop()
	if noop == nil {
		t.Fatalf("expected noop metrics")
	}
	noop.RecordIntegrationSync(context.Background(), "erp", "succeeded", 4)
}
