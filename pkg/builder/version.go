package builder

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// NormalizeVersion converts a Perl version literal to canonical semantic
// version form. Dotted forms (v5.36, 5.36.1) map component-wise; decimal
// forms split the fraction into groups of three digits, so 5.010001 is
// v5.10.1 and 5.36 is v5.360.0. Text that is not a version is returned
// unchanged.
func NormalizeVersion(text string) string {
	raw := strings.ReplaceAll(text, "_", "")
	var candidate string

	switch {
	case strings.HasPrefix(raw, "v"):
		candidate = raw
	case strings.Count(raw, ".") >= 2:
		candidate = "v" + raw
	default:
		major, frac, _ := strings.Cut(raw, ".")
		candidate = "v" + major
		for len(frac) > 0 {
			if len(frac) < 3 {
				frac += strings.Repeat("0", 3-len(frac))
			}
			part, err := strconv.Atoi(frac[:3])
			if err != nil {
				return text
			}
			candidate += "." + strconv.Itoa(part)
			frac = frac[3:]
		}
	}

	candidate = trimLeadingZeros(candidate)
	if !semver.IsValid(candidate) {
		return text
	}
	return semver.Canonical(candidate)
}

// trimLeadingZeros rewrites v5.010.01 as v5.10.1; semver rejects leading
// zeros in numeric components.
func trimLeadingZeros(v string) string {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return v
		}
		parts[i] = strconv.Itoa(n)
	}
	return "v" + strings.Join(parts, ".")
}
