package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/perlparse/pkg/runner"
)

// Table formatting constants.
const (
	tablePadding   = 2
	minFlexWidth   = 20
	heavySeparator = "="
	lightSeparator = "-"
	ellipsis       = "..."
)

// Column describes one table column.
type Column struct {
	Header string

	// Flex marks the column that shrinks when the table is wider than the
	// terminal. At most one column should be flexible.
	Flex bool

	// KeepEnd truncates from the left, which suits file paths.
	KeepEnd bool
}

// Table formats rows of cells as an aligned, styled table.
type Table struct {
	styles    *Styles
	termWidth int
	columns   []Column
	groups    [][][]string
}

// NewTable creates a table with the given columns. A nil styles renders
// plain text.
func NewTable(styles *Styles, termWidth int, columns ...Column) *Table {
	if styles == nil {
		styles = NewStyles(false)
	}
	if termWidth <= 0 {
		termWidth = defaultTermWidth
	}
	return &Table{styles: styles, termWidth: termWidth, columns: columns}
}

// AddGroup appends a group of rows. Groups are divided by a light separator.
func (t *Table) AddGroup(rows [][]string) {
	if len(rows) > 0 {
		t.groups = append(t.groups, rows)
	}
}

// AddRow appends a row to the last group, starting one if needed.
func (t *Table) AddRow(cells ...string) {
	if len(t.groups) == 0 {
		t.groups = append(t.groups, nil)
	}
	last := len(t.groups) - 1
	t.groups[last] = append(t.groups[last], cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	n := 0
	for _, g := range t.groups {
		n += len(g)
	}
	return n
}

// String renders the table. An empty table renders as "".
func (t *Table) String() string {
	if t.Len() == 0 {
		return ""
	}

	widths := t.widths()
	total := 0
	for _, w := range widths {
		total += w + tablePadding
	}

	var builder strings.Builder
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Header
	}
	builder.WriteString(t.styles.TableHeader.Render(t.line(headers, widths)))
	builder.WriteString("\n")
	builder.WriteString(t.styles.TableSeparator.Render(strings.Repeat(heavySeparator, total)))
	builder.WriteString("\n")

	for i, group := range t.groups {
		if i > 0 {
			builder.WriteString(t.styles.TableSeparator.Render(strings.Repeat(lightSeparator, total)))
			builder.WriteString("\n")
		}
		for _, row := range group {
			builder.WriteString(t.line(row, widths))
			builder.WriteString("\n")
		}
	}

	builder.WriteString(t.styles.TableSeparator.Render(strings.Repeat(heavySeparator, total)))
	builder.WriteString("\n")
	return builder.String()
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = runeLen(col.Header)
	}
	for _, group := range t.groups {
		for _, row := range group {
			for i := range widths {
				if i < len(row) {
					widths[i] = max(widths[i], runeLen(row[i]))
				}
			}
		}
	}

	total := 0
	flex := -1
	for i, w := range widths {
		total += w + tablePadding
		if t.columns[i].Flex {
			flex = i
		}
	}
	if flex >= 0 && total > t.termWidth {
		widths[flex] = max(minFlexWidth, widths[flex]-(total-t.termWidth))
	}
	return widths
}

func (t *Table) line(cells []string, widths []int) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if t.columns[i].KeepEnd {
			cell = truncateLeft(cell, w)
		} else {
			cell = truncateRight(cell, w)
		}
		if i == len(widths)-1 {
			fmt.Fprintf(&b, " %s", cell)
			continue
		}
		fmt.Fprintf(&b, " %s%s ", cell, strings.Repeat(" ", w-runeLen(cell)))
	}
	return strings.TrimRight(b.String(), " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

// truncateRight truncates s to maxLen runes, adding "..." if truncated.
func truncateRight(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-len(ellipsis)]) + ellipsis
}

// truncateLeft truncates s to maxLen runes, preserving the end.
func truncateLeft(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return string(r[len(r)-maxLen:])
	}
	return ellipsis + string(r[len(r)-maxLen+len(ellipsis):])
}

// ErrorTable builds a FILE, LOC, KIND, MESSAGE table of every parse error
// in result, grouped by file.
func ErrorTable(styles *Styles, termWidth int, result *runner.Result) *Table {
	table := NewTable(styles, termWidth,
		Column{Header: "FILE", KeepEnd: true},
		Column{Header: "LOC"},
		Column{Header: "KIND"},
		Column{Header: "MESSAGE", Flex: true},
	)
	if result == nil {
		return table
	}
	for _, file := range result.Files {
		if file.Snapshot == nil || len(file.Snapshot.Errors) == 0 {
			continue
		}
		rows := make([][]string, 0, len(file.Snapshot.Errors))
		for _, perr := range file.Snapshot.Errors {
			pos := file.Snapshot.Position(perr.Span.Start)
			rows = append(rows, []string{
				file.DisplayPath(),
				fmt.Sprintf("%d:%d", pos.Line, pos.Column),
				perr.Kind.String(),
				Describe(perr),
			})
		}
		table.AddGroup(rows)
	}
	return table
}
