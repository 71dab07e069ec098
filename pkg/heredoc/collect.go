package heredoc

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Collect fills in Content for every declaration in res and returns a
// dangling-heredoc error for each one whose terminator is missing.
func Collect(res *ScanResult) []*syntax.Error {
	lines := syntax.SplitLines(res.Original)
	var errs []*syntax.Error
	for _, d := range res.Declarations {
		body, ok := collectBody(lines, d)
		if !ok {
			d.Content = nil
			errs = append(errs, syntax.NewError(syntax.ErrDanglingHeredoc, d.Span,
				"heredoc terminator %q not found", d.Terminator))
			continue
		}
		d.Content = &body
	}
	return errs
}

func collectBody(lines []string, d *Declaration) (string, bool) {
	from := d.ContentLine - 1
	if from < 0 {
		return "", false
	}
	term := findTerminator(lines, from, d)
	if term < 0 {
		return "", false
	}
	collected := make([]string, 0, term-from)
	for _, line := range lines[from:term] {
		collected = append(collected, strings.TrimSuffix(line, "\r"))
	}
	if d.Indented {
		stripIndent(collected)
	}
	return strings.Join(collected, "\n"), true
}

// stripIndent removes the smallest leading whitespace width found on
// non-blank lines from every line.
func stripIndent(lines []string) {
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || w < indent {
			indent = w
		}
	}
	if indent <= 0 {
		return
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = ""
		}
	}
}

// Integrate returns the source the parser should read. Placeholders stay
// in place; the builder resolves them against the declaration table.
func Integrate(res *ScanResult) string {
	return res.Source
}

// Process runs scan, collect and integrate over src and returns the
// combined result. Scan and collection errors are in Errors.
func Process(src string, opts ...ScannerOption) *ScanResult {
	res := NewScanner(opts...).Scan(src)
	res.Errors = append(res.Errors, Collect(res)...)
	res.Source = Integrate(res)
	return res
}

// Infos returns the declarations in snapshot form.
func (r *ScanResult) Infos() []syntax.HeredocInfo {
	if len(r.Declarations) == 0 {
		return nil
	}
	out := make([]syntax.HeredocInfo, len(r.Declarations))
	for i, d := range r.Declarations {
		out[i] = d.Info()
	}
	return out
}
