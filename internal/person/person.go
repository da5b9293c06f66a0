// Package person stores Person nodes and their KNOWS relationships in
// Neo4j and serves them over HTTP.
package person

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a named person does not exist.
	ErrNotFound = errors.New("person: not found")

	// ErrInvalidName is returned for blank names.
	ErrInvalidName = errors.New("person: name must not be blank")

	// ErrSelfFriendship is returned when a person is befriended with themselves.
	ErrSelfFriendship = errors.New("person: cannot befriend oneself")

	// ErrUnavailable is returned while the circuit breaker rejects queries.
	ErrUnavailable = errors.New("person: store unavailable")
)

// Person is a node labelled Person.
type Person struct {
	Name string `json:"name"`
}

// normalizeName trims name and rejects blank values.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
