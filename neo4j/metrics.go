package neo4j

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments of a driver.
type metrics struct {
	queryDuration metric.Float64Histogram
}

// newMetrics creates the metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	queryDuration, err := meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of database client operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}
	return &metrics{queryDuration: queryDuration}, nil
}

// recordQueryDuration records one operation. A nil receiver records nothing,
// which is how disabled metrics are represented.
func (m *metrics) recordQueryDuration(
	ctx context.Context,
	duration time.Duration,
	operation string,
	attrs []attribute.KeyValue,
	err error,
) {
	if m == nil || m.queryDuration == nil {
		return
	}

	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all, attrs...)
	if operation != "" {
		all = append(all, attribute.String("db.operation", operation))
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	all = append(all, attribute.String("status", status))

	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(all...))
}
