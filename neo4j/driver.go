package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DriverFactory constructs a Driver for a parsed connection. NewDriver is
// the default; Registry accepts a replacement through WithDriverFactory.
type DriverFactory func(conn Connection, settings Settings, bridge *LoggerBridge, opts ...Option) (*Driver, error)

// runFunc executes one query in a managed transaction and collects its records.
type runFunc func(
	ctx context.Context,
	database string,
	mode neo4j.AccessMode,
	cypher string,
	params map[string]any,
) ([]*neo4j.Record, error)

// Driver is a pooled, goroutine-safe handle to a Neo4j server.
//
// Queries run in managed transactions, so the driver retries transient
// failures. Every query emits a client span and, when metrics are enabled,
// a db.client.operation.duration measurement.
type Driver struct {
	driver   neo4j.DriverWithContext
	target   string
	database string
	instance string
	bridge   *LoggerBridge

	tracer         trace.Tracer
	metrics        *metrics
	querySanitizer func(string) string
	disableQuery   bool

	run runFunc
}

// NewDriver creates a driver for conn. No connection is opened until the
// first query or connectivity check.
//
// The logger bridge is installed as the driver logger before the
// WithDriverConfig callbacks run. Tracing and metrics follow settings.
func NewDriver(conn Connection, settings Settings, bridge *LoggerBridge, opts ...Option) (*Driver, error) {
	o := newOptions(opts...)
	if bridge == nil {
		bridge = NewLoggerBridge(zerolog.Nop())
	}

	target := conn.Target()
	driver, err := neo4j.NewDriverWithContext(target, conn.Auth.DriverToken(), func(c *neo4j.Config) {
		c.Log = bridge.DriverLogger()
		for _, fn := range o.driverConfig {
			fn(c)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	d := &Driver{
		driver:         driver,
		target:         target,
		database:       conn.Database,
		instance:       o.instance,
		bridge:         bridge,
		tracer:         noop.NewTracerProvider().Tracer(InstrumentationScope),
		querySanitizer: o.QuerySanitizer,
		disableQuery:   o.DisableQuery,
	}
	d.run = d.runManaged

	if settings.Tracing {
		d.tracer = o.TracerProvider.Tracer(InstrumentationScope)
	}
	if settings.Metrics {
		d.metrics, err = newMetrics(o.MeterProvider.Meter(InstrumentationScope))
		if err != nil {
			// Queries still work without the histogram.
			bridge.Warn(err, "failed to create neo4j metric instruments")
		}
	}

	return d, nil
}

// ExecuteRead runs cypher in a read transaction and returns all records.
func (d *Driver) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return d.execute(ctx, neo4j.AccessModeRead, cypher, params)
}

// ExecuteWrite runs cypher in a write transaction and returns all records.
func (d *Driver) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return d.execute(ctx, neo4j.AccessModeWrite, cypher, params)
}

// VerifyConnectivity checks that the server is reachable and the
// credentials are accepted.
func (d *Driver) VerifyConnectivity(ctx context.Context) error {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "VERIFY",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(d.baseAttributes()...),
	)
	defer span.End()

	err := d.driver.VerifyConnectivity(ctx)
	d.metrics.recordQueryDuration(ctx, time.Since(start), "VERIFY", d.baseAttributes(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Close releases the connection pool. Drivers derived with WithDatabase
// share the pool and are closed too.
func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// WithDatabase returns a handle that runs queries against database.
// It shares the connection pool with d.
func (d *Driver) WithDatabase(database string) *Driver {
	cp := *d
	cp.database = database
	return &cp
}

// Database returns the database queries run against. Empty means the
// server default.
func (d *Driver) Database() string {
	return d.database
}

// Target returns the URI the driver connects to.
func (d *Driver) Target() string {
	return d.target
}

// Unwrap returns the underlying driver for direct session use.
// Work done through it is not instrumented.
func (d *Driver) Unwrap() neo4j.DriverWithContext {
	return d.driver
}

func (d *Driver) execute(
	ctx context.Context,
	mode neo4j.AccessMode,
	cypher string,
	params map[string]any,
) ([]*neo4j.Record, error) {
	start := time.Now()
	operation := extractOperation(cypher)

	ctx, span := d.tracer.Start(ctx, spanName(cypher),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(d.queryAttributes(cypher)...),
	)
	defer span.End()

	records, err := d.run(ctx, d.database, mode, cypher, params)

	d.metrics.recordQueryDuration(ctx, time.Since(start), operation, d.baseAttributes(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.response.returned_rows", len(records)))
	return records, nil
}

// runManaged is the runFunc backed by a driver session.
func (d *Driver) runManaged(
	ctx context.Context,
	database string,
	mode neo4j.AccessMode,
	cypher string,
	params map[string]any,
) ([]*neo4j.Record, error) {
	cfg := neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: database,
	}
	if d.bridge.IsTraceEnabled() {
		cfg.BoltLogger = d.bridge
	}

	session := d.driver.NewSession(ctx, cfg)
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	}

	var out any
	var err error
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}

	records, _ := out.([]*neo4j.Record)
	return records, nil
}

// baseAttributes returns the attributes shared by all spans and metrics.
func (d *Driver) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	attrs = append(attrs, attribute.String("db.system", dbSystem))
	if d.database != "" {
		attrs = append(attrs, attribute.String("db.name", d.database))
	}
	if d.instance != "" {
		attrs = append(attrs, attribute.String("db.instance", d.instance))
	}
	return attrs
}

// queryAttributes returns the attributes of a query span.
func (d *Driver) queryAttributes(cypher string) []attribute.KeyValue {
	attrs := d.baseAttributes()

	if !d.disableQuery && cypher != "" {
		statement := cypher
		if d.querySanitizer != nil {
			statement = d.querySanitizer(cypher)
		}
		attrs = append(attrs, attribute.String("db.statement", statement))
	}

	if op := extractOperation(cypher); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}
