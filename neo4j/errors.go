package neo4j

import "errors"

var (
	// ErrConfiguration is returned when the driver settings cannot be resolved,
	// for example when no connection string is configured.
	ErrConfiguration = errors.New("neo4j: invalid configuration")

	// ErrFormat is returned when a connection string is malformed.
	ErrFormat = errors.New("neo4j: invalid connection string")

	// ErrAlreadyRegistered is returned when a driver is registered twice
	// under the same key.
	ErrAlreadyRegistered = errors.New("neo4j: driver already registered")

	// ErrNotRegistered is returned when looking up a driver that was never registered.
	ErrNotRegistered = errors.New("neo4j: driver not registered")
)
