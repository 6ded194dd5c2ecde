// Package search translates free-form user queries into FTS5 match
// expressions.
package search

import "strings"

// Compile turns user input into an FTS5 MATCH expression. Each
// whitespace-separated term becomes a quoted prefix token, so FTS5 operators
// typed by the user (AND, OR, NOT, -, :) are matched as literal text instead
// of being interpreted. Terms combine with an implicit AND. Blank input
// compiles to the empty string.
func Compile(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped := strings.ReplaceAll(term, `"`, `""`)
		parts = append(parts, `"`+escaped+`"*`)
	}

	return strings.Join(parts, " ")
}
