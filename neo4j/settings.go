package neo4j

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kroma-labs/sentinel-neo4j/config"
)

const (
	// DefaultConfigSection is the configuration section read by AddDriver.
	// Keyed registrations read DefaultConfigSection + ":" + key.
	DefaultConfigSection = "Neo4j:Driver"

	// ConnectionStringsSection holds named connection strings. A value found
	// here overrides the ConnectionString setting of the driver section.
	ConnectionStringsSection = "ConnectionStrings"
)

// Settings keys, relative to the driver section.
const (
	keyConnectionString = "ConnectionString"
	keyHealthChecks     = "HealthChecks"
	keyTracing          = "Tracing"
	keyMetrics          = "Metrics"
)

// Settings holds the resolved configuration of one Neo4j connection.
//
// Settings is a value type: customization functions receive a copy and
// return the modified copy.
type Settings struct {
	// ConnectionString is a ";"-separated list of key=value pairs.
	// See ParseConnectionString for the recognized keys.
	ConnectionString string

	// HealthChecks registers a connectivity health probe. Default: true.
	HealthChecks bool

	// Tracing emits an OpenTelemetry span per query. Default: true.
	Tracing bool

	// Metrics records the query duration histogram. Default: false.
	Metrics bool
}

// SettingsFunc transforms a Settings value. Functions are applied in the
// order they are given, after configuration has been read.
type SettingsFunc func(Settings) Settings

// DefaultSettings returns the settings used before any configuration is applied.
func DefaultSettings() Settings {
	return Settings{
		HealthChecks: true,
		Tracing:      true,
	}
}

// ResolveSettings reads the driver settings for one connection.
//
// Resolution order, later steps win:
//  1. DefaultSettings
//  2. keys under section (ConnectionString, HealthChecks, Tracing, Metrics)
//  3. ConnectionStrings:{connectionName}
//  4. pipeline, in order
//
// A missing or blank connection string after all steps is an ErrConfiguration.
func ResolveSettings(
	src config.Source,
	section string,
	connectionName string,
	pipeline ...SettingsFunc,
) (Settings, error) {
	settings := DefaultSettings()

	if src != nil {
		var err error
		settings, err = bindSettings(src, section, settings)
		if err != nil {
			return Settings{}, err
		}

		if cs, ok := src.Lookup(config.Key(ConnectionStringsSection, connectionName)); ok {
			settings.ConnectionString = cs
		}
	}

	for _, fn := range pipeline {
		if fn != nil {
			settings = fn(settings)
		}
	}

	if strings.TrimSpace(settings.ConnectionString) == "" {
		return Settings{}, fmt.Errorf(
			"%w: settings.ConnectionString is empty; set %s or %s",
			ErrConfiguration,
			config.Key(ConnectionStringsSection, connectionName),
			config.Key(section, keyConnectionString),
		)
	}

	return settings, nil
}

// bindSettings maps the recognized keys of section onto settings.
func bindSettings(src config.Source, section string, settings Settings) (Settings, error) {
	if v, ok := src.Lookup(config.Key(section, keyConnectionString)); ok {
		settings.ConnectionString = v
	}

	toggles := []struct {
		key string
		dst *bool
	}{
		{key: keyHealthChecks, dst: &settings.HealthChecks},
		{key: keyTracing, dst: &settings.Tracing},
		{key: keyMetrics, dst: &settings.Metrics},
	}

	for _, toggle := range toggles {
		key := config.Key(section, toggle.key)
		v, ok := src.Lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %q is not a boolean", ErrConfiguration, key, v)
		}
		*toggle.dst = b
	}

	return settings, nil
}
