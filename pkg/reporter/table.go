package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// maxCellText bounds how much of a token or heredoc body a table shows.
const maxCellText = 60

// TokenTable lists the significant tokens of snap.
func TokenTable(styles *pretty.Styles, termWidth int, snap *syntax.Snapshot) *pretty.Table {
	table := pretty.NewTable(styles, termWidth,
		pretty.Column{Header: "LOC"},
		pretty.Column{Header: "SPAN"},
		pretty.Column{Header: "KIND"},
		pretty.Column{Header: "TEXT", Flex: true},
	)
	for _, tok := range Tokens(snap) {
		table.AddRow(
			fmt.Sprintf("%d:%d", tok.Line, tok.Column),
			fmt.Sprintf("%d..%d", tok.Start, tok.End),
			tok.Kind,
			cellText(tok.Text),
		)
	}
	return table
}

// HeredocTable lists the heredoc declarations of snap.
func HeredocTable(styles *pretty.Styles, termWidth int, snap *syntax.Snapshot) *pretty.Table {
	table := pretty.NewTable(styles, termWidth,
		pretty.Column{Header: "LINE"},
		pretty.Column{Header: "TERMINATOR"},
		pretty.Column{Header: "FLAGS"},
		pretty.Column{Header: "BODY", Flex: true},
	)
	for _, doc := range Heredocs(snap) {
		table.AddRow(
			strconv.Itoa(doc.Line),
			doc.Terminator,
			heredocFlags(doc),
			cellText(doc.Content),
		)
	}
	return table
}

func heredocFlags(doc HeredocDoc) string {
	var flags []string
	if doc.Interpolated {
		flags = append(flags, "interpolated")
	} else {
		flags = append(flags, "literal")
	}
	if doc.Indented {
		flags = append(flags, "indented")
	}
	if !doc.Terminated {
		flags = append(flags, "dangling")
	}
	return strings.Join(flags, ",")
}

// cellText quotes text so control characters stay on one line.
func cellText(text string) string {
	r := []rune(text)
	if len(r) > maxCellText {
		text = string(r[:maxCellText]) + "..."
	}
	quoted := strconv.Quote(text)
	return quoted[1 : len(quoted)-1]
}
