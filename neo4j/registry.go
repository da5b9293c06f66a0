package neo4j

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kroma-labs/sentinel-neo4j/config"
	"github.com/rs/zerolog"
)

// registration is one registered driver and its logger bridge.
type registration struct {
	driver       *Driver
	bridge       *LoggerBridge
	settings     Settings
	instrumented bool
}

// Registry holds the Neo4j drivers of an application.
//
// A Registry is built during startup and passed to the components that need
// a driver; there is no package-level state. It holds at most one unkeyed
// driver plus any number of keyed drivers:
//
//	registry := sentinelneo4j.NewRegistry(sentinelneo4j.WithRegistryLogger(logger))
//	defer registry.Close(ctx)
//
//	// reads ConnectionStrings:neo4j and the Neo4j:Driver section
//	if err := registry.AddDriver(src, "neo4j"); err != nil {
//	    return err
//	}
//	// reads ConnectionStrings:analytics and the Neo4j:Driver:analytics section
//	if err := registry.AddKeyedDriver(src, "analytics"); err != nil {
//	    return err
//	}
//
//	driver, _ := registry.Driver()
//	analytics, _ := registry.KeyedDriver("analytics")
//
// Lookups are safe for concurrent use.
type Registry struct {
	logger  zerolog.Logger
	factory DriverFactory

	mu            sync.RWMutex
	defaultBridge *LoggerBridge
	unkeyed       *registration
	keyed         map[string]*registration
	health        map[string]*HealthCheck
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for registration events and as
// the base of every logger bridge.
func WithRegistryLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithDriverFactory replaces NewDriver.
func WithDriverFactory(factory DriverFactory) RegistryOption {
	return func(r *Registry) {
		r.factory = factory
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  zerolog.Nop(),
		factory: NewDriver,
		keyed:   make(map[string]*registration),
		health:  make(map[string]*HealthCheck),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddDriver registers the unkeyed driver.
//
// The connection string is read from ConnectionStrings:{name}, falling back
// to Neo4j:Driver:ConnectionString. A health check named "neo4j" is
// registered unless Neo4j:Driver:HealthChecks is false.
func (r *Registry) AddDriver(src config.Source, name string, opts ...Option) error {
	return r.add(src, DefaultConfigSection, name, "", opts)
}

// AddKeyedDriver registers a driver under key name.
//
// The connection string is read from ConnectionStrings:{name}, falling back
// to Neo4j:Driver:{name}:ConnectionString. A health check named
// "neo4j_{name}" is registered unless the section disables it.
func (r *Registry) AddKeyedDriver(src config.Source, name string, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("%w: keyed driver requires a non-empty name", ErrConfiguration)
	}
	return r.add(src, config.Key(DefaultConfigSection, name), name, name, opts)
}

func (r *Registry) add(src config.Source, section, connectionName, key string, opts []Option) error {
	o := newOptions(opts...)

	settings, err := ResolveSettings(src, section, connectionName, o.settings...)
	if err != nil {
		return err
	}

	conn, err := ParseConnectionString(settings.ConnectionString)
	if err != nil {
		return fmt.Errorf("connection %q: %w", connectionName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered(key) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, describeKey(key))
	}

	bridge := r.bridgeFor(key)

	factoryOpts := make([]Option, 0, len(opts)+1)
	factoryOpts = append(factoryOpts, opts...)
	factoryOpts = append(factoryOpts, withInstanceName(key))

	driver, err := r.factory(conn, settings, bridge, factoryOpts...)
	if err != nil {
		return fmt.Errorf("connection %q: %w", connectionName, err)
	}

	reg := &registration{
		driver:       driver,
		bridge:       bridge,
		settings:     settings,
		instrumented: settings.Tracing || settings.Metrics,
	}
	if key == "" {
		r.unkeyed = reg
	} else {
		r.keyed[key] = reg
	}

	if settings.HealthChecks {
		r.health[healthCheckName(key)] = NewHealthCheck(driver)
	}

	event := r.logger.Info().
		Str("connection", connectionName).
		Str("host", conn.Host).
		Str("auth", conn.Auth.Kind.String()).
		Bool("health_checks", settings.HealthChecks).
		Bool("tracing", settings.Tracing).
		Bool("metrics", settings.Metrics)
	if key != "" {
		event = event.Str("key", key)
	}
	if reg.instrumented {
		event = event.Str("instrumentation_scope", InstrumentationScope)
	}
	event.Msg("neo4j driver registered")

	return nil
}

// registered reports whether key is taken. Callers hold r.mu.
func (r *Registry) registered(key string) bool {
	if key == "" {
		return r.unkeyed != nil
	}
	_, ok := r.keyed[key]
	return ok
}

// bridgeFor returns the logger bridge of a new registration. Unkeyed
// registrations share one bridge. Callers hold r.mu.
func (r *Registry) bridgeFor(key string) *LoggerBridge {
	if key != "" {
		return NewLoggerBridge(r.logger.With().
			Str("component", dbSystem).
			Str("key", key).
			Logger())
	}
	if r.defaultBridge == nil {
		r.defaultBridge = NewLoggerBridge(r.logger.With().Str("component", dbSystem).Logger())
	}
	return r.defaultBridge
}

func (r *Registry) lookup(key string) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg := r.unkeyed
	if key != "" {
		reg = r.keyed[key]
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, describeKey(key))
	}
	return reg, nil
}

// Driver returns the unkeyed driver.
func (r *Registry) Driver() (*Driver, error) {
	reg, err := r.lookup("")
	if err != nil {
		return nil, err
	}
	return reg.driver, nil
}

// KeyedDriver returns the driver registered under key.
func (r *Registry) KeyedDriver(key string) (*Driver, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrNotRegistered)
	}
	reg, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return reg.driver, nil
}

// LoggerBridge returns the logger bridge shared by unkeyed registrations.
func (r *Registry) LoggerBridge() (*LoggerBridge, error) {
	reg, err := r.lookup("")
	if err != nil {
		return nil, err
	}
	return reg.bridge, nil
}

// KeyedLoggerBridge returns the logger bridge registered under key.
func (r *Registry) KeyedLoggerBridge(key string) (*LoggerBridge, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrNotRegistered)
	}
	reg, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return reg.bridge, nil
}

// Settings returns the resolved settings of a registration. An empty key
// selects the unkeyed driver.
func (r *Registry) Settings(key string) (Settings, error) {
	reg, err := r.lookup(key)
	if err != nil {
		return Settings{}, err
	}
	return reg.settings, nil
}

// Instrumented reports whether the registration emits telemetry under
// InstrumentationScope. An empty key selects the unkeyed driver.
func (r *Registry) Instrumented(key string) bool {
	reg, err := r.lookup(key)
	return err == nil && reg.instrumented
}

// HealthChecks returns the registered health checks sorted by name.
func (r *Registry) HealthChecks() []NamedHealthCheck {
	r.mu.RLock()
	defer r.mu.RUnlock()

	checks := make([]NamedHealthCheck, 0, len(r.health))
	for name, check := range r.health {
		checks = append(checks, NamedHealthCheck{Name: name, Check: check})
	}
	sort.Slice(checks, func(i, j int) bool {
		return checks[i].Name < checks[j].Name
	})
	return checks
}

// Keys returns the keys of the keyed registrations, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.keyed))
	for key := range r.keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close closes every registered driver and reports all failures.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	if r.unkeyed != nil {
		if err := r.unkeyed.driver.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close unkeyed driver: %w", err))
		}
	}
	for key, reg := range r.keyed {
		if err := reg.driver.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close driver %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func describeKey(key string) string {
	if key == "" {
		return "unkeyed driver"
	}
	return fmt.Sprintf("key %q", key)
}
