// Package version carries the swarmq release number, embedded from the
// VERSION file at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the release number with surrounding whitespace trimmed.
func Get() string {
	return strings.TrimSpace(raw)
}
