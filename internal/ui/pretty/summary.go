package pretty

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yaklabco/perlparse/pkg/runner"
)

const summaryDividerWidth = 40

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatSummaryOneLine formats run statistics as a single line.
// Example: "3 errors in 2 files (10 files parsed)".
func (s *Styles) FormatSummaryOneLine(stats runner.Stats) string {
	parsed := s.Dim.Render(fmt.Sprintf(" (%d %s parsed)", stats.FilesParsed, plural(stats.FilesParsed, "file", "files")))

	var parts []string
	if stats.ErrorsTotal == 0 {
		parts = append(parts, s.Success.Render("No parse errors")+parsed)
	} else {
		parts = append(parts, s.Error.Render(fmt.Sprintf("%d %s", stats.ErrorsTotal, plural(stats.ErrorsTotal, "error", "errors")))+
			fmt.Sprintf(" in %d %s", stats.FilesWithErrors, plural(stats.FilesWithErrors, "file", "files"))+parsed)
	}
	if stats.FilesFailed > 0 {
		parts = append(parts, s.Failure.Render(fmt.Sprintf("%d unreadable", stats.FilesFailed)))
	}

	return strings.Join(parts, ", ") + "\n"
}

// FormatSummary formats run statistics as a summary block.
func (s *Styles) FormatSummary(stats runner.Stats) string {
	var builder strings.Builder

	builder.WriteString("\n")
	builder.WriteString(s.SummaryTitle.Render("Summary"))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("-", summaryDividerWidth))
	builder.WriteString("\n")

	row := func(label, value string) {
		fmt.Fprintf(&builder, "  %-19s%s\n", label+":", value)
	}

	row("Files parsed", s.SummaryValue.Render(strconv.Itoa(stats.FilesParsed)))
	if stats.FilesFailed > 0 {
		row("Files unreadable", s.Failure.Render(strconv.Itoa(stats.FilesFailed)))
	}
	if stats.FilesWithErrors > 0 {
		row("Files with errors", s.Failure.Render(strconv.Itoa(stats.FilesWithErrors)))
	}
	row("Tokens", s.SummaryValue.Render(strconv.Itoa(stats.Tokens)))
	row("Heredocs", s.SummaryValue.Render(strconv.Itoa(stats.Heredocs)))

	builder.WriteString("\n")
	row("Parse errors", s.SummaryValue.Render(strconv.Itoa(stats.ErrorsTotal)))

	kinds := make([]string, 0, len(stats.ErrorsByKind))
	for kind := range stats.ErrorsByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&builder, "    %-17s%s\n", kind+":", s.Error.Render(strconv.Itoa(stats.ErrorsByKind[kind])))
	}

	builder.WriteString("\n")
	switch {
	case stats.FilesFailed > 0:
		builder.WriteString(s.Failure.Render("Some files could not be read"))
	case stats.ErrorsTotal > 0:
		builder.WriteString(s.Warning.Render("Parsed with errors"))
	default:
		builder.WriteString(s.Success.Render("All files parsed cleanly"))
	}
	builder.WriteString("\n")

	return builder.String()
}
