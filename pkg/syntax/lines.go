package syntax

import (
	"sort"

	"github.com/apparentlymart/go-textseg/v13/textseg"
)

// LineInfo describes one line of the source.
type LineInfo struct {
	// StartOffset is the byte index of the first character of the line.
	StartOffset int

	// NewlineStart is the byte index where the line terminator begins
	// (the "\r" of "\r\n"), or the end of content for the last line.
	NewlineStart int

	// EndOffset is the byte index just past the line terminator.
	EndOffset int
}

// BuildLines constructs line metadata from content.
// It handles both LF (\n) and CRLF (\r\n) line endings.
func BuildLines(content string) []LineInfo {
	if len(content) == 0 {
		return []LineInfo{}
	}

	var lines []LineInfo
	lineStart := 0

	for idx := 0; idx < len(content); idx++ {
		if content[idx] != '\n' {
			continue
		}
		newlineStart := idx
		if idx > 0 && content[idx-1] == '\r' {
			newlineStart = idx - 1
		}
		lines = append(lines, LineInfo{
			StartOffset:  lineStart,
			NewlineStart: newlineStart,
			EndOffset:    idx + 1,
		})
		lineStart = idx + 1
	}

	// The last line may not have a trailing newline.
	lines = append(lines, LineInfo{
		StartOffset:  lineStart,
		NewlineStart: len(content),
		EndOffset:    len(content),
	})

	return lines
}

// SplitLines returns the text of each line without terminators.
func SplitLines(content string) []string {
	infos := BuildLines(content)
	out := make([]string, len(infos))
	for i, li := range infos {
		out[i] = content[li.StartOffset:li.NewlineStart]
	}
	return out
}

// LineIndex returns the 0-based index of the line containing offset.
// Offsets past the end map to the last line; negative offsets return -1.
func LineIndex(lines []LineInfo, offset int) int {
	if offset < 0 || len(lines) == 0 {
		return -1
	}
	idx := sort.Search(len(lines), func(i int) bool {
		return lines[i].EndOffset > offset
	})
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	return idx
}

// LineAt converts a byte offset to a 1-based line and a 1-based byte column.
// Returns (0, 0) if the offset is out of range.
func (f *Snapshot) LineAt(offset int) (int, int) {
	if offset < 0 || offset > len(f.Content) || len(f.Lines) == 0 {
		return 0, 0
	}
	idx := LineIndex(f.Lines, offset)
	return idx + 1, offset - f.Lines[idx].StartOffset + 1
}

// Position converts a byte offset to a 1-based line and a 1-based column
// counted in grapheme clusters, which is what editors display.
func (f *Snapshot) Position(offset int) Position {
	if offset < 0 || offset > len(f.Content) || len(f.Lines) == 0 {
		return Position{}
	}
	idx := LineIndex(f.Lines, offset)
	prefix := f.Content[f.Lines[idx].StartOffset:offset]
	clusters, err := textseg.TokenCount([]byte(prefix), textseg.ScanGraphemeClusters)
	if err != nil {
		clusters = len(prefix)
	}
	return Position{Line: idx + 1, Column: clusters + 1}
}

// LineContent returns the text of a 1-based line without its terminator.
func (f *Snapshot) LineContent(line int) string {
	if line < 1 || line > len(f.Lines) {
		return ""
	}
	li := f.Lines[line-1]
	return f.Content[li.StartOffset:li.NewlineStart]
}

// LineCount returns the number of lines in the file.
func (f *Snapshot) LineCount() int {
	return len(f.Lines)
}
