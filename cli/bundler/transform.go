package bundler

import (
	"regexp"
	"strings"
)

// importRegex matches an ES module import statement. Only the matched text is
// removed; the line break stays, so line numbers after the import are kept.
var importRegex = regexp.MustCompile(`import .* from .*`)

// exportRewrites strips export qualifiers. Applied in order, after imports.
var exportRewrites = []struct {
	old string
	new string
}{
	{"export default ", ""},
	{"export class ", "class "},
	{"export function ", "function "},
	{"export const ", "const "},
	{"export let ", "let "},
	{"export var ", "var "},
}

// Transform removes module syntax from a source file so it can run as part of
// a classic script.
//
// The rewrite is textual, not syntax-aware: a string literal or comment that
// contains one of the patterns is rewritten as well.
func Transform(code string) string {
	code = importRegex.ReplaceAllString(code, "")

	for _, r := range exportRewrites {
		code = strings.ReplaceAll(code, r.old, r.new)
	}

	return code
}
