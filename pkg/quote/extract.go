package quote

import (
	"errors"
	"fmt"
	"strings"
)

// RegexParts are the pieces of a match or quote-regex literal.
type RegexParts struct {
	Open      byte
	Close     byte
	Body      string
	Modifiers string
}

// Pattern returns the body wrapped in its delimiters.
func (r RegexParts) Pattern() string {
	return string(r.Open) + r.Body + string(r.Close)
}

// ExtractRegexParts splits "/body/flags", "m{body}flags" or "qr!body!flags".
func ExtractRegexParts(text string) (RegexParts, error) {
	rest := text
	switch {
	case strings.HasPrefix(rest, "qr"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "m"):
		rest = rest[1:]
	}

	offset := len(text) - len(rest)
	pos := skipSpace(text, offset)
	if pos >= len(text) || !IsDelimiter(text[pos]) {
		return RegexParts{}, fmt.Errorf("regex %q: missing delimiter", text)
	}

	open := text[pos]
	body, end, err := ScanDelimited(text, pos+1, open)
	if err != nil {
		return RegexParts{}, fmt.Errorf("regex %q: %w", text, err)
	}

	return RegexParts{
		Open:      open,
		Close:     ClosingDelimiter(open),
		Body:      body,
		Modifiers: leadingAlpha(text[end:]),
	}, nil
}

// SubstitutionErrorKind classifies a malformed s/// or tr/// expression.
type SubstitutionErrorKind uint8

// Substitution error kinds.
const (
	InvalidModifier SubstitutionErrorKind = iota + 1
	MissingDelimiter
	MissingPattern
	MissingReplacement
	MissingClosingDelimiter
)

func (k SubstitutionErrorKind) String() string {
	switch k {
	case InvalidModifier:
		return "invalid modifier"
	case MissingDelimiter:
		return "missing delimiter"
	case MissingPattern:
		return "missing pattern"
	case MissingReplacement:
		return "missing replacement"
	case MissingClosingDelimiter:
		return "missing closing delimiter"
	default:
		return "unknown"
	}
}

// SubstitutionError reports a malformed s/// or tr/// expression.
type SubstitutionError struct {
	Kind SubstitutionErrorKind

	// Detail holds the offending modifier for InvalidModifier.
	Detail string
}

func (e *SubstitutionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

// Substitution holds the parts of s/pattern/replacement/modifiers.
type Substitution struct {
	Pattern     string
	Replacement string
	Modifiers   string
}

// Transliteration holds the parts of tr/search/replace/modifiers.
type Transliteration struct {
	SearchList  string
	ReplaceList string
	Modifiers   string
}

const (
	substitutionModifiers    = "gimsxoerardlunpc"
	transliterationModifiers = "cdsr"
)

// ExtractSubstitution splits an s/// expression. Paired delimiters may be
// followed by whitespace and a different delimiter for the replacement:
// s{a}{b}, s{a} /b/, s(a)[b]. Trailing non-letter text after the modifiers
// is ignored.
func ExtractSubstitution(text string) (Substitution, error) {
	if !strings.HasPrefix(text, "s") {
		return Substitution{}, &SubstitutionError{Kind: MissingDelimiter}
	}
	first, second, mods, err := extractTwoPart(text, 1)
	if err != nil {
		return Substitution{}, err
	}
	return Substitution{Pattern: first, Replacement: second, Modifiers: leadingAlpha(mods)}, nil
}

// ExtractSubstitutionStrict is ExtractSubstitution plus validation: the
// pattern must be non-empty and every modifier must be one Perl accepts.
func ExtractSubstitutionStrict(text string) (Substitution, error) {
	if !strings.HasPrefix(text, "s") {
		return Substitution{}, &SubstitutionError{Kind: MissingDelimiter}
	}
	first, second, rest, err := extractTwoPart(text, 1)
	if err != nil {
		return Substitution{}, err
	}
	if first == "" {
		return Substitution{}, &SubstitutionError{Kind: MissingPattern}
	}
	mods := leadingAlpha(rest)
	if err := validateModifiers(mods, rest[len(mods):], substitutionModifiers); err != nil {
		return Substitution{}, err
	}
	return Substitution{Pattern: first, Replacement: second, Modifiers: mods}, nil
}

// ExtractTransliteration splits a tr/// or y/// expression.
func ExtractTransliteration(text string) (Transliteration, error) {
	var skip int
	switch {
	case strings.HasPrefix(text, "tr"):
		skip = 2
	case strings.HasPrefix(text, "y"):
		skip = 1
	default:
		return Transliteration{}, &SubstitutionError{Kind: MissingDelimiter}
	}
	first, second, mods, err := extractTwoPart(text, skip)
	if err != nil {
		return Transliteration{}, err
	}
	mods = leadingAlpha(mods)
	if err := validateModifiers(mods, "", transliterationModifiers); err != nil {
		return Transliteration{}, err
	}
	return Transliteration{SearchList: first, ReplaceList: second, Modifiers: mods}, nil
}

// extractTwoPart reads two delimited sections after a prefix of length skip
// and returns them with the remaining text.
func extractTwoPart(text string, skip int) (string, string, string, error) {
	pos := skipSpace(text, skip)
	if pos >= len(text) || !IsDelimiter(text[pos]) {
		return "", "", "", &SubstitutionError{Kind: MissingDelimiter}
	}
	open := text[pos]

	first, end, err := ScanDelimited(text, pos+1, open)
	if err != nil {
		return "", "", "", closingError(err)
	}

	var second string
	if ClosingDelimiter(open) != open {
		next := skipSpace(text, end)
		if next >= len(text) {
			return "", "", "", &SubstitutionError{Kind: MissingReplacement}
		}
		if !IsDelimiter(text[next]) {
			return "", "", "", &SubstitutionError{Kind: MissingDelimiter}
		}
		second, end, err = ScanDelimited(text, next+1, text[next])
	} else {
		if end >= len(text) {
			return "", "", "", &SubstitutionError{Kind: MissingReplacement}
		}
		second, end, err = ScanDelimited(text, end, open)
	}
	if err != nil {
		return "", "", "", closingError(err)
	}

	return first, second, text[end:], nil
}

func closingError(err error) error {
	if errors.Is(err, ErrUnterminated) {
		return &SubstitutionError{Kind: MissingClosingDelimiter}
	}
	return err
}

func validateModifiers(mods, trailing, allowed string) error {
	for i := 0; i < len(mods); i++ {
		if !strings.ContainsRune(allowed, rune(mods[i])) {
			return &SubstitutionError{Kind: InvalidModifier, Detail: string(mods[i])}
		}
	}
	if trailing != "" && isAlphaNum(trailing[0]) {
		return &SubstitutionError{Kind: InvalidModifier, Detail: trailing[:1]}
	}
	return nil
}

func isAlphaNum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9') || c == '_'
}
