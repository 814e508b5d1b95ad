package textutil

import "strings"

// baseSubstitutions maps characters outside the always-safe set to their
// replacements. Parentheses and spaces pass through, a handful of punctuation
// characters map to safer equivalents, and the rest are removed. The table is
// shared by file naming and identity derivation, so changing an entry changes
// which recordings the history file recognizes.
var baseSubstitutions = map[rune]string{
	'(':  "(",
	')':  ")",
	' ':  " ",
	'"':  " ",
	'&':  "+",
	'+':  "+",
	'/':  " ",
	'\\': " ",
	'|':  " ",
	'\'': "",
	'?':  "",
	'@':  "at ",
	'…':  "", // ellipsis
	'’':  "", // right single quote
	'ø':  "", // o with stroke
}

// Clean filters text down to a filesystem- and identity-safe form. Characters
// in [0-9A-Za-z_.-] are kept verbatim; everything else goes through the base
// substitution table, with overrides taking precedence for colliding keys, and
// unrecognized characters are dropped. Runs of emitted spaces collapse to one,
// tracked against the last emitted character rather than the last input
// character. The transform is deterministic and idempotent.
func Clean(input string, overrides map[rune]string) string {
	var b strings.Builder
	b.Grow(len(input))
	lastEmitted := rune(-1)
	for _, r := range input {
		var emit string
		switch {
		case r >= '0' && r <= '9',
			r >= 'A' && r <= 'Z',
			r >= 'a' && r <= 'z',
			r == '_', r == '.', r == '-':
			emit = string(r)
		default:
			repl, ok := overrides[r]
			if !ok {
				repl, ok = baseSubstitutions[r]
			}
			if !ok {
				continue
			}
			emit = repl
		}
		for _, er := range emit {
			if er == ' ' && lastEmitted == ' ' {
				continue
			}
			b.WriteRune(er)
			lastEmitted = er
		}
	}
	return b.String()
}

// Squish trims surrounding whitespace, then strips trailing runs of spaces,
// hyphens, and line breaks left behind by unfilled template segments.
func Squish(input string) string {
	input = strings.TrimSpace(input)
	for len(input) > 0 {
		switch input[len(input)-1] {
		case ' ', '-', '\n', '\r':
			input = input[:len(input)-1]
		default:
			return input
		}
	}
	return input
}
