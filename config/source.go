// Package config provides key-value configuration sources.
//
// Keys are hierarchical and separated by ":" (for example
// "Neo4j:Driver:Tracing" or "ConnectionStrings:neo4j"). Lookups are
// case-insensitive in every source shipped with this package.
//
// Sources are combined with Chain, where later sources take precedence:
//
//	file, err := config.LoadYAML("friends.yaml")
//	if err != nil {
//	    return err
//	}
//	src := config.Chain(file, config.Env("FRIENDS_"))
//
//	cs, ok := src.Lookup("ConnectionStrings:neo4j")
package config

import (
	"strings"
)

// KeyDelimiter separates the segments of a configuration key.
const KeyDelimiter = ":"

// Source resolves configuration keys to raw string values.
type Source interface {
	// Lookup returns the value for key and whether it was present.
	Lookup(key string) (string, bool)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(key string) (string, bool)

// Lookup implements Source.
func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// Map is an in-memory Source.
//
// Keys are matched case-insensitively, so Map{"Neo4j:Driver:Tracing": "false"}
// answers a lookup for "neo4j:driver:tracing".
type Map map[string]string

// Lookup implements Source.
func (m Map) Lookup(key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Chain combines sources. Later sources override earlier ones.
func Chain(sources ...Source) Source {
	return SourceFunc(func(key string) (string, bool) {
		for i := len(sources) - 1; i >= 0; i-- {
			if sources[i] == nil {
				continue
			}
			if v, ok := sources[i].Lookup(key); ok {
				return v, true
			}
		}
		return "", false
	})
}

// Key joins segments into a configuration key, skipping empty segments.
//
//	config.Key("Neo4j", "Driver", "primary") // "Neo4j:Driver:primary"
func Key(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, KeyDelimiter)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, KeyDelimiter)
}
