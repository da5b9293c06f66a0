package neo4j

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordQueryDuration(t *testing.T) {
	type args struct {
		operation string
		err       error
	}

	tests := []struct {
		name       string
		args       args
		wantStatus string
		wantOp     bool
	}{
		{
			name:       "given successful query, then records with ok status",
			args:       args{operation: "MATCH"},
			wantStatus: "ok",
			wantOp:     true,
		},
		{
			name:       "given failed query, then records with error status",
			args:       args{operation: "MERGE", err: assert.AnError},
			wantStatus: "error",
			wantOp:     true,
		},
		{
			name:       "given empty operation, then records without operation attribute",
			args:       args{},
			wantStatus: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer mp.Shutdown(context.Background())

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)

			ctx := context.Background()
			m.recordQueryDuration(
				ctx,
				20*time.Millisecond,
				tt.args.operation,
				[]attribute.KeyValue{attribute.String("db.system", dbSystem)},
				tt.args.err,
			)

			var rm metricdata.ResourceMetrics
			require.NoError(t, reader.Collect(ctx, &rm))
			require.Len(t, rm.ScopeMetrics, 1)
			require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

			got := rm.ScopeMetrics[0].Metrics[0]
			assert.Equal(t, "db.client.operation.duration", got.Name)

			hist, ok := got.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)

			dp := hist.DataPoints[0]
			assert.Equal(t, uint64(1), dp.Count)

			status, ok := dp.Attributes.Value("status")
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, status.AsString())

			_, hasOp := dp.Attributes.Value("db.operation")
			assert.Equal(t, tt.wantOp, hasOp)
		})
	}
}

func TestRecordQueryDuration_NilMetrics(t *testing.T) {
	t.Run("given nil metrics, then does not panic", func(t *testing.T) {
		var m *metrics

		assert.NotPanics(t, func() {
			m.recordQueryDuration(context.Background(), time.Second, "MATCH", nil, nil)
		})
	})
}
