package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kroma-labs/sentinel-neo4j/config"
	"golang.org/x/time/rate"
)

// ErrInvalidConfig is returned by LoadConfig for values that do not parse.
var ErrInvalidConfig = errors.New("app: invalid configuration")

// Config is the typed configuration of the friends API. The Neo4j
// connection itself is read by the driver registry from the same source.
type Config struct {
	Service   ServiceConfig
	API       APIConfig
	Metrics   MetricsConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Seed      SeedConfig
}

type ServiceConfig struct {
	Name    string
	Version string
}

type APIConfig struct {
	Addr string

	// Connection names the connection string (ConnectionStrings:{Connection})
	// of the unkeyed driver.
	Connection string

	// Database overrides the connection's database for every query.
	Database string

	RequestTimeout time.Duration
	RateLimit      rate.Limit
	RateBurst      int

	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string
}

type MetricsConfig struct {
	Addr string

	// Pprof mounts the runtime profiles on the metrics listener, behind
	// basic auth when both credentials are set.
	Pprof         bool
	PprofUsername string
	PprofPassword string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type TelemetryConfig struct {
	OTLPEndpoint string
	OTLPInsecure bool
}

type SeedConfig struct {
	// OnStart seeds the sample graph before serving.
	OnStart bool

	// WaitTimeout bounds the wait for the database to accept connections.
	WaitTimeout time.Duration
}

// DefaultConfig returns the configuration used for keys that are not set.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:    "friendsapi",
			Version: "dev",
		},
		API: APIConfig{
			Addr:           ":8080",
			Connection:     "neo4j",
			RequestTimeout: 10 * time.Second,
			RateLimit:      100,
			RateBurst:      200,
		},
		Metrics: MetricsConfig{
			Addr: ":2112",
		},
		Log: LogConfig{
			Level: "info",
		},
		Seed: SeedConfig{
			WaitTimeout: time.Minute,
		},
	}
}

// LoadConfig overlays the keys found in src on DefaultConfig:
//
//	Service:Name, Service:Version
//	Api:Addr, Api:Connection, Api:Database, Api:RequestTimeout, Api:RateLimit, Api:RateBurst
//	Api:CorsOrigins (comma-separated)
//	Metrics:Addr, Metrics:Pprof, Metrics:PprofUsername, Metrics:PprofPassword
//	Log:Level, Log:Pretty
//	Telemetry:OtlpEndpoint, Telemetry:OtlpInsecure
//	Seed:OnStart, Seed:WaitTimeout
func LoadConfig(src config.Source) (Config, error) {
	cfg := DefaultConfig()
	if src == nil {
		return cfg, nil
	}

	l := loader{src: src}

	l.str("Service:Name", &cfg.Service.Name)
	l.str("Service:Version", &cfg.Service.Version)

	l.str("Api:Addr", &cfg.API.Addr)
	l.str("Api:Connection", &cfg.API.Connection)
	l.str("Api:Database", &cfg.API.Database)
	l.duration("Api:RequestTimeout", &cfg.API.RequestTimeout)
	l.limit("Api:RateLimit", &cfg.API.RateLimit)
	l.integer("Api:RateBurst", &cfg.API.RateBurst)
	l.list("Api:CorsOrigins", &cfg.API.CORSOrigins)

	l.str("Metrics:Addr", &cfg.Metrics.Addr)
	l.boolean("Metrics:Pprof", &cfg.Metrics.Pprof)
	l.str("Metrics:PprofUsername", &cfg.Metrics.PprofUsername)
	l.str("Metrics:PprofPassword", &cfg.Metrics.PprofPassword)

	l.str("Log:Level", &cfg.Log.Level)
	l.boolean("Log:Pretty", &cfg.Log.Pretty)

	l.str("Telemetry:OtlpEndpoint", &cfg.Telemetry.OTLPEndpoint)
	l.boolean("Telemetry:OtlpInsecure", &cfg.Telemetry.OTLPInsecure)

	l.boolean("Seed:OnStart", &cfg.Seed.OnStart)
	l.duration("Seed:WaitTimeout", &cfg.Seed.WaitTimeout)

	if l.err != nil {
		return Config{}, l.err
	}
	if strings.TrimSpace(cfg.API.Connection) == "" {
		return Config{}, fmt.Errorf("%w: Api:Connection must not be empty", ErrInvalidConfig)
	}
	return cfg, nil
}

// loader reads typed values and keeps the first parse error.
type loader struct {
	src config.Source
	err error
}

func (l *loader) lookup(key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	v, ok := l.src.Lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (l *loader) fail(key, value, kind string) {
	l.err = fmt.Errorf("%w: %s: %q is not a %s", ErrInvalidConfig, key, value, kind)
}

func (l *loader) str(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *loader) list(key string, dst *[]string) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (l *loader) boolean(key string, dst *bool) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, v, "boolean")
		return
	}
	*dst = b
}

func (l *loader) integer(key string, dst *int) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, "number")
		return
	}
	*dst = n
}

func (l *loader) limit(key string, dst *rate.Limit) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(key, v, "number")
		return
	}
	*dst = rate.Limit(f)
}

func (l *loader) duration(key string, dst *time.Duration) {
	v, ok := l.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, v, "duration")
		return
	}
	*dst = d
}
