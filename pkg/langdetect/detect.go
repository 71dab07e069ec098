// Package langdetect recognizes Perl source from file names and content.
// It uses go-enry, so interpreter and extension tables follow GitHub
// Linguist.
package langdetect

import (
	"bytes"

	"github.com/go-enry/go-enry/v2"
)

// Language names as go-enry reports them.
const (
	LangPerl = "Perl"
	LangRaku = "Raku"
)

// shebangWindow is how much of a file HasPerlShebang needs to see.
const shebangWindow = 256

// Detect returns the language of a file, or "" when nothing matches.
// It tries the shebang first, then an unambiguous extension, then the
// classifier restricted to the languages the extension allows.
func Detect(path string, content []byte) string {
	if lang, safe := enry.GetLanguageByShebang(content); safe {
		return lang
	}
	if lang, safe := enry.GetLanguageByExtension(path); safe {
		return lang
	}

	candidates := enry.GetLanguagesByExtension(path, content, nil)
	switch len(candidates) {
	case 0:
		return ""
	case 1:
		return candidates[0]
	}
	if lang, _ := enry.GetLanguageByClassifier(content, candidates); lang != "" {
		return lang
	}
	return candidates[0]
}

// HasShebang reports whether content starts with "#!".
func HasShebang(content []byte) bool {
	return bytes.HasPrefix(content, []byte("#!"))
}

// HasPerlShebang reports whether content starts with a shebang line that
// runs perl, directly or through env.
func HasPerlShebang(content []byte) bool {
	if !HasShebang(content) {
		return false
	}
	if len(content) > shebangWindow {
		content = content[:shebangWindow]
	}
	lang, safe := enry.GetLanguageByShebang(content)
	return safe && lang == LangPerl
}

// ShebangWindow is the number of leading bytes HasPerlShebang inspects.
func ShebangWindow() int {
	return shebangWindow
}

// IsPerl reports whether a file is Perl 5 source.
func IsPerl(path string, content []byte) bool {
	return Detect(path, content) == LangPerl
}
