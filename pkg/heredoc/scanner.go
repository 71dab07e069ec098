package heredoc

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Scanner detects heredoc introducers and rewrites the source. A Scanner
// carries its own placeholder counter; create one per parse.
type Scanner struct {
	resolver StatementResolver
	limit    int
	nextID   int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithResolver replaces the default BracketResolver.
func WithResolver(r StatementResolver) ScannerOption {
	return func(s *Scanner) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithLimit sets the maximum number of declarations. Values below one
// fall back to MaxDeclarations.
func WithLimit(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		resolver: BracketResolver{},
		limit:    MaxDeclarations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanResult is the output of phase one.
type ScanResult struct {
	// Original is the unmodified input.
	Original string

	// Source has introducers replaced by placeholders and body lines
	// removed.
	Source string

	// Declarations are in source order.
	Declarations []*Declaration

	// Map translates Source offsets back to Original offsets.
	Map *SourceMap

	// Errors holds limit violations found while scanning.
	Errors []*syntax.Error
}

// Lookup finds a declaration by placeholder text.
func (r *ScanResult) Lookup(placeholder string) (*Declaration, bool) {
	for _, d := range r.Declarations {
		if d.Placeholder == placeholder {
			return d, true
		}
	}
	return nil, false
}

// Scan runs phase one over src.
func (s *Scanner) Scan(src string) *ScanResult {
	res := &ScanResult{Original: src}
	infos := syntax.BuildLines(src)
	lines := make([]string, len(infos))
	for i, li := range infos {
		lines[i] = src[li.StartOffset:li.NewlineStart]
	}

	body := make([]bool, len(lines))
	lineDecls := make([][]*Declaration, len(lines))
	var pending []*Declaration
	pendingEnd := -1
	inPod := false
	limited := false

	for li := 0; li < len(lines); li++ {
		if body[li] {
			continue
		}
		line := lines[li]
		if inPod {
			if strings.HasPrefix(line, "=cut") {
				inPod = false
			}
			continue
		}
		if isPodStart(line) {
			inPod = !strings.HasPrefix(line, "=cut")
			continue
		}
		if pending == nil && isDataMarker(line) {
			break
		}

		for _, found := range findIntroducers(line) {
			if len(res.Declarations) >= s.limit {
				if !limited {
					limited = true
					span := syntax.Span{Start: infos[li].StartOffset + found.start, End: infos[li].StartOffset + found.end}
					res.Errors = append(res.Errors, syntax.NewError(syntax.ErrNestingLimit, span,
						"too many heredocs (limit %d)", s.limit))
				}
				break
			}
			s.nextID++
			d := &Declaration{
				Terminator:   found.terminator,
				Span:         syntax.Span{Start: infos[li].StartOffset + found.start, End: infos[li].StartOffset + found.end},
				Line:         li + 1,
				Interpolated: found.interpolated,
				Indented:     found.indented,
				ID:           s.nextID,
				Placeholder:  Placeholder(s.nextID),
			}
			res.Declarations = append(res.Declarations, d)
			lineDecls[li] = append(lineDecls[li], d)
			pending = append(pending, d)

			end := s.resolver.StatementEndLine(lines, li)
			if end < li {
				end = li
			}
			if end > pendingEnd {
				pendingEnd = end
			}
		}

		if len(pending) == 0 || li < pendingEnd {
			continue
		}
		cur := li + 1
		for _, d := range pending {
			d.ContentLine = cur + 1
			term := findTerminator(lines, cur, d)
			last := term
			if term < 0 {
				last = len(lines) - 1
			}
			for k := cur; k <= last && k < len(lines); k++ {
				body[k] = true
			}
			cur = last + 1
		}
		pending = nil
		pendingEnd = -1
	}

	// declarations whose statement never ended before EOF have no body
	for _, d := range pending {
		d.ContentLine = len(lines) + 1
	}

	res.Source, res.Map = rewrite(src, infos, body, lineDecls)
	return res
}

// rewrite emits every non-body line with introducers swapped for
// placeholders.
func rewrite(src string, infos []syntax.LineInfo, body []bool, decls [][]*Declaration) (string, *SourceMap) {
	var rw rewriter
	for li, info := range infos {
		if body[li] {
			rw.replace("", info.StartOffset, info.EndOffset)
			continue
		}
		pos := info.StartOffset
		for _, d := range decls[li] {
			rw.copyText(src[pos:d.Span.Start], pos)
			rw.replace(d.Placeholder, d.Span.Start, d.Span.End)
			pos = d.Span.End
		}
		rw.copyText(src[pos:info.EndOffset], pos)
	}
	return rw.result()
}

func findTerminator(lines []string, from int, d *Declaration) int {
	for k := from; k < len(lines); k++ {
		if matchesTerminator(lines[k], d) {
			return k
		}
	}
	return -1
}

func matchesTerminator(line string, d *Declaration) bool {
	line = strings.TrimSuffix(line, "\r")
	if d.Indented {
		return strings.TrimSpace(line) == d.Terminator
	}
	return line == d.Terminator
}

func isPodStart(line string) bool {
	return len(line) > 1 && line[0] == '=' && isIdentStart(line[1])
}

func isDataMarker(line string) bool {
	line = strings.TrimRight(line, " \t\r")
	return line == "__END__" || line == "__DATA__"
}

type introducer struct {
	start, end   int
	terminator   string
	interpolated bool
	indented     bool
}

// findIntroducers returns heredoc introducers on one line, skipping
// string literals and comments. String state does not carry across
// lines.
func findIntroducers(line string) []introducer {
	var out []introducer
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\\':
			i++
		case '\'', '"', '`':
			quote = c
		case '#':
			if isCommentStart(line, i) {
				return out
			}
		case '<':
			if intro, ok := parseIntroducer(line, i); ok {
				out = append(out, intro)
				i = intro.end - 1
			} else if i+1 < len(line) && line[i+1] == '<' {
				i++
			}
		}
	}
	return out
}

func parseIntroducer(line string, i int) (introducer, bool) {
	if !strings.HasPrefix(line[i:], "<<") || (i > 0 && line[i-1] == '<') {
		return introducer{}, false
	}
	intro := introducer{start: i, interpolated: true}
	k := i + 2
	if k < len(line) && line[k] == '~' {
		intro.indented = true
		k++
	}
	if k >= len(line) {
		return introducer{}, false
	}

	q := k
	for q < len(line) && (line[q] == ' ' || line[q] == '\t') {
		q++
	}
	if q < len(line) && (line[q] == '"' || line[q] == '\'' || line[q] == '`') {
		quote := line[q]
		closeAt := strings.IndexByte(line[q+1:], quote)
		if closeAt < 0 {
			return introducer{}, false
		}
		intro.terminator = line[q+1 : q+1+closeAt]
		intro.interpolated = quote != '\''
		intro.end = q + 1 + closeAt + 1
		return intro, true
	}

	if !isIdentStart(line[k]) {
		return introducer{}, false
	}
	end := k + 1
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	intro.terminator = line[k:end]
	intro.end = end
	return intro, true
}
