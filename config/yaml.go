package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML document from path and flattens it into a Map.
func LoadYAML(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML flattens a YAML document into a Map.
//
// Nested mappings become ":"-separated keys and sequence items are
// addressed by index:
//
//	neo4j:
//	  driver:
//	    tracing: false
//	hosts: [a, b]
//
// yields "neo4j:driver:tracing" = "false", "hosts:0" = "a", "hosts:1" = "b".
func ParseYAML(data []byte) (Map, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	out := Map{}
	flatten(out, "", root)
	return out, nil
}

func flatten(out Map, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(out, Key(prefix, k), child)
		}
	case map[any]any:
		for k, child := range val {
			flatten(out, Key(prefix, fmt.Sprint(k)), child)
		}
	case []any:
		for i, child := range val {
			flatten(out, Key(prefix, strconv.Itoa(i)), child)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(val)
		}
	}
}
