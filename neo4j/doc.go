// Package neo4j registers Neo4j drivers from configuration, with structured
// logging, health checks and OpenTelemetry instrumentation.
//
// # Features
//
//   - Connection strings as ";"-separated key=value pairs
//   - Basic, bearer and Kerberos credentials with a fixed precedence
//   - Unkeyed and keyed registration of several connections side by side
//   - Driver logs routed to zerolog through a LoggerBridge
//   - Connectivity health checks named "neo4j" / "neo4j_{key}"
//   - A client span per query and a query duration histogram
//
// # Quick Start
//
//	import sentinelneo4j "github.com/kroma-labs/sentinel-neo4j/neo4j"
//
//	src := config.Map{
//	    "ConnectionStrings:neo4j": "Host=bolt://localhost:7687;Username=neo4j;Password=secret",
//	}
//
//	registry := sentinelneo4j.NewRegistry(sentinelneo4j.WithRegistryLogger(logger))
//	if err := registry.AddDriver(src, "neo4j"); err != nil {
//	    log.Fatal(err)
//	}
//	defer registry.Close(ctx)
//
//	driver, _ := registry.Driver()
//	records, err := driver.ExecuteRead(ctx, "MATCH (n:Person) RETURN n.name AS name", nil)
//
// # Configuration
//
// Settings are read from a config.Source. For AddDriver the section is
// Neo4j:Driver, for AddKeyedDriver(src, "primary") it is Neo4j:Driver:primary:
//
//	ConnectionStrings:
//	  primary: host=bolt://db1:7687;username=neo4j;password=secret
//	Neo4j:
//	  Driver:
//	    primary:
//	      HealthChecks: true   # default true
//	      Tracing: true        # default true
//	      Metrics: false       # default false
//
// ConnectionStrings:{name} overrides the section's ConnectionString.
// WithSettings functions run last.
//
// # Connection Strings
//
//	host=bolt://db1:7687;username=neo4j;password=secret   basic
//	host=db1;bearer=eyJhbGciOi...                          bearer
//	host=db1;kerberos=YIIB...                              kerberos
//	host=db1                                               none
//
// A host without a scheme is addressed as neo4j://{host}. The optional
// database key selects the database queries run against, and realm is
// passed along with basic credentials.
//
// # Observability
//
// Traces (when Tracing is enabled):
//   - Span per query named after the Cypher clause (MATCH, CREATE, MERGE, ...)
//   - Attributes: db.system, db.name, db.instance, db.statement, db.operation
//
// Metrics (when Metrics is enabled):
//   - db.client.operation.duration (histogram by operation and status)
//
// Both use the InstrumentationScope instrumentation scope.
package neo4j
