package neo4j

import (
	"regexp"
	"strings"
)

var (
	// stringLiteralRegex matches single- or double-quoted Cypher strings.
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)

	// numericLiteralRegex matches integers and floats.
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)
)

// spanName returns the Cypher clause of query, or "CYPHER" when it is empty.
//
//	spanName("MATCH (n) RETURN n") // "MATCH"
//	spanName("")                   // "CYPHER"
func spanName(query string) string {
	if op := extractOperation(query); op != "" {
		return op
	}
	return "CYPHER"
}

// extractOperation returns the first clause keyword of query, uppercased.
// A leading OPTIONAL is kept together with MATCH.
func extractOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	op := strings.ToUpper(clauseWord(fields[0]))
	if op == "OPTIONAL" && len(fields) > 1 {
		return op + " " + strings.ToUpper(clauseWord(fields[1]))
	}
	return op
}

// clauseWord cuts the keyword off patterns written without a space,
// such as "MATCH(n)".
func clauseWord(field string) string {
	if i := strings.IndexAny(field, "({["); i > 0 {
		return field[:i]
	}
	return field
}

// DefaultQuerySanitizer replaces literal values in a Cypher query with "?"
// so they do not end up in traces. Parameters ($name) are left untouched.
//
//	DefaultQuerySanitizer("MATCH (n:Person {name: 'Alice'}) RETURN n")
//	// "MATCH (n:Person {name: '?'}) RETURN n"
//
//	DefaultQuerySanitizer("MATCH (n) RETURN n LIMIT 10")
//	// "MATCH (n) RETURN n LIMIT ?"
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllStringFunc(query, func(lit string) string {
		return lit[:1] + "?" + lit[:1]
	})
	return numericLiteralRegex.ReplaceAllString(query, "?")
}
