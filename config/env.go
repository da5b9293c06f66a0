package config

import (
	"os"
	"strings"
)

// envDelimiter replaces KeyDelimiter in environment variable names, since
// ":" is not portable in variable names.
const envDelimiter = "__"

// Env returns a Source backed by process environment variables.
//
// A key is translated by replacing ":" with "__" and prepending prefix, so
// with prefix "FRIENDS_" the key "ConnectionStrings:neo4j" is read from
// FRIENDS_ConnectionStrings__neo4j. Variable names are matched
// case-insensitively (FRIENDS_CONNECTIONSTRINGS__NEO4J also works).
func Env(prefix string) Source {
	return envSource{prefix: prefix, environ: os.Environ}
}

type envSource struct {
	prefix  string
	environ func() []string
}

// Lookup implements Source.
func (e envSource) Lookup(key string) (string, bool) {
	name := e.prefix + strings.ReplaceAll(key, KeyDelimiter, envDelimiter)

	for _, kv := range e.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
