package dict

import (
	"strings"
)

// --------------------------------------------------------------------------
// Key Namespacing
// --------------------------------------------------------------------------

// keyDelimiter separates the namespace from the key and the parts of chained keys
const keyDelimiter = ":"

// globEscaper escapes the metacharacters of SCAN MATCH patterns
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// formatKey returns the physical key of a logical key
func (d *dictImpl) formatKey(key string) string {
	return d.namespace + keyDelimiter + key
}

// parseKey strips the namespace from a physical key
func (d *dictImpl) parseKey(storeKey string) string {
	return strings.TrimPrefix(storeKey, d.namespace+keyDelimiter)
}

// scanPattern returns the pattern matching every physical key of the namespace starting with prefix
func (d *dictImpl) scanPattern(prefix string) string {
	return escapeGlob(d.namespace) + keyDelimiter + escapeGlob(prefix) + "*"
}

// escapeGlob escapes s so it matches itself literally in a glob pattern
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// chainKey joins the parts of a chained key
func chainKey(keys []string) string {
	return strings.Join(keys, keyDelimiter)
}
