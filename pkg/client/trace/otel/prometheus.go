package otel

import (
	"fmt"

	export "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewPrometheusMeterProvider creates a MeterProvider exporting metrics to the default Prometheus registry.
func NewPrometheusMeterProvider(res *resource.Resource) (*metric.MeterProvider, error) {
	exporter, err := export.New()
	if err != nil {
		return nil, fmt.Errorf("cannot create prometheus exporter: %w", err)
	}
	opts := []metric.Option{metric.WithReader(exporter)}
	if res != nil {
		opts = append(opts, metric.WithResource(res))
	}
	return metric.NewMeterProvider(opts...), nil
}
