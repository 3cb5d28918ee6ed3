package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
)

func TestInitInstallsAWorkingMeterProvider(t *testing.T) {
	shutdown := Init()
	defer shutdown(context.Background()) //nolint:errcheck

	m := Meter("curq/telemetry_test")
	counter, err := m.Int64Counter("test.counter")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 1)
}

func TestMeterReturnsANonNilMeter(t *testing.T) {
	var m metric.Meter = Meter("curq/telemetry_test_nonnil")
	if m == nil {
		t.Fatal("expected a non-nil Meter")
	}
}
