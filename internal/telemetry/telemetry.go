// Package telemetry installs the process-wide OTel MeterProvider consumed
// by internal/dispatcher and internal/materializer's package-level
// instruments. Those packages call otel.Meter(...) directly at init time
// (mirroring the teacher's internal/storage/dolt doltMetrics convention) and
// get a no-op provider until Init runs.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Init installs a real MeterProvider backed by a ManualReader, so counters
// and histograms recorded via otel.Meter(...) are actually aggregated
// in-process (collectible on demand, e.g. by a future /metrics surface)
// instead of discarded by the default no-op provider. Returns a shutdown
// func the caller should defer.
func Init() (shutdown func(context.Context) error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider.Shutdown
}

// Meter returns a named meter from the current global provider, exactly
// like otel.Meter — kept as a thin wrapper so callers depend on this
// package rather than importing go.opentelemetry.io/otel directly for the
// one call they need.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
