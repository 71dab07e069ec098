package quote

import "strings"

// HasEmbeddedCode reports whether a regex pattern contains a code block,
// (?{ ... }) or (??{ ... }), which Perl executes during matching.
// Escaped sequences such as \(?{ are not code blocks.
func HasEmbeddedCode(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '(':
			rest := pattern[i+1:]
			if strings.HasPrefix(rest, "?{") || strings.HasPrefix(rest, "??{") {
				return true
			}
		}
	}
	return false
}
