package reporter

import (
	"strconv"

	"github.com/yaklabco/perlparse/pkg/runner"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// DocumentVersion is the schema version of structured output.
const DocumentVersion = "1"

// Document is the structured form of a run, shared by the JSON, YAML and
// CBOR reporters.
type Document struct {
	Version string      `json:"version" yaml:"version"`
	Files   []FileDoc   `json:"files" yaml:"files"`
	Summary *SummaryDoc `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// FileDoc is one file of a Document.
type FileDoc struct {
	Path     string       `json:"path" yaml:"path"`
	Error    string       `json:"error,omitempty" yaml:"error,omitempty"`
	Errors   []ErrorDoc   `json:"errors" yaml:"errors"`
	Heredocs []HeredocDoc `json:"heredocs,omitempty" yaml:"heredocs,omitempty"`
	Tokens   []TokenDoc   `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Nodes    []NodeDoc    `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// ErrorDoc is a parse error with its resolved position.
type ErrorDoc struct {
	Kind     string `json:"kind" yaml:"kind"`
	Message  string `json:"message" yaml:"message"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Found    string `json:"found,omitempty" yaml:"found,omitempty"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
}

// TokenDoc is one significant token.
type TokenDoc struct {
	Kind   string `json:"kind" yaml:"kind"`
	Text   string `json:"text" yaml:"text"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"`
}

// HeredocDoc is one heredoc declaration.
type HeredocDoc struct {
	Terminator   string `json:"terminator" yaml:"terminator"`
	Line         int    `json:"line" yaml:"line"`
	ContentLine  int    `json:"contentLine" yaml:"contentLine"`
	Interpolated bool   `json:"interpolated" yaml:"interpolated"`
	Indented     bool   `json:"indented" yaml:"indented"`
	Terminated   bool   `json:"terminated" yaml:"terminated"`
	Content      string `json:"content" yaml:"content"`
}

// NodeDoc is one AST node of a flattened tree. Nodes are listed in
// pre-order; Parent is the index of the parent node, -1 for the root.
type NodeDoc struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Parent  int               `json:"parent" yaml:"parent"`
	Depth   int               `json:"depth" yaml:"depth"`
	Start   int               `json:"start" yaml:"start"`
	End     int               `json:"end" yaml:"end"`
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Op      string            `json:"op,omitempty" yaml:"op,omitempty"`
	Value   string            `json:"value,omitempty" yaml:"value,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// DocOptions selects the optional parts of a FileDoc.
type DocOptions struct {
	Tokens bool
	Tree   bool
}

// NewDocument converts a run result.
func NewDocument(result *runner.Result, opts DocOptions) *Document {
	doc := &Document{Version: DocumentVersion, Files: make([]FileDoc, 0)}
	if result == nil {
		return doc
	}
	doc.Files = make([]FileDoc, 0, len(result.Files))
	for _, file := range result.Files {
		if file.Error != nil {
			doc.Files = append(doc.Files, FileDoc{
				Path:   file.DisplayPath(),
				Error:  file.Error.Error(),
				Errors: make([]ErrorDoc, 0),
			})
			continue
		}
		doc.Files = append(doc.Files, NewFileDoc(file.DisplayPath(), file.Snapshot, opts))
	}
	doc.Summary = NewSummaryDoc(result.Stats)
	return doc
}

// NewFileDoc converts one snapshot.
func NewFileDoc(path string, snap *syntax.Snapshot, opts DocOptions) FileDoc {
	doc := FileDoc{Path: path, Errors: Errors(snap), Heredocs: Heredocs(snap)}
	if opts.Tokens {
		doc.Tokens = Tokens(snap)
	}
	if opts.Tree {
		doc.Nodes = Nodes(snap)
	}
	return doc
}

// Errors converts the parse errors of snap.
func Errors(snap *syntax.Snapshot) []ErrorDoc {
	out := make([]ErrorDoc, 0)
	if snap == nil {
		return out
	}
	for _, perr := range snap.Errors {
		pos := snap.Position(perr.Span.Start)
		out = append(out, ErrorDoc{
			Kind:     perr.Kind.String(),
			Message:  message(perr),
			Expected: perr.Expected,
			Found:    perr.Found,
			Line:     pos.Line,
			Column:   pos.Column,
			Start:    perr.Span.Start,
			End:      perr.Span.End,
		})
	}
	return out
}

func message(perr *syntax.Error) string {
	switch {
	case perr.Message != "":
		return perr.Message
	case perr.Expected != "" && perr.Found == "":
		return "expected " + perr.Expected + ", found end of input"
	case perr.Expected != "":
		return "expected " + perr.Expected + ", found " + strconv.Quote(perr.Found)
	}
	return perr.Kind.String()
}

// Tokens converts the significant tokens of snap.
func Tokens(snap *syntax.Snapshot) []TokenDoc {
	if snap == nil {
		return nil
	}
	out := make([]TokenDoc, 0, len(snap.Tokens))
	for _, tok := range snap.Tokens {
		pos := snap.Position(tok.Span.Start)
		out = append(out, TokenDoc{
			Kind:   tok.Kind.String(),
			Text:   tok.Text,
			Line:   pos.Line,
			Column: pos.Column,
			Start:  tok.Span.Start,
			End:    tok.Span.End,
		})
	}
	return out
}

// Heredocs converts the heredoc declarations of snap.
func Heredocs(snap *syntax.Snapshot) []HeredocDoc {
	if snap == nil || len(snap.Heredocs) == 0 {
		return nil
	}
	out := make([]HeredocDoc, 0, len(snap.Heredocs))
	for _, info := range snap.Heredocs {
		out = append(out, HeredocDoc{
			Terminator:   info.Terminator,
			Line:         info.Line,
			ContentLine:  info.ContentLine,
			Interpolated: info.Interpolated,
			Indented:     info.Indented,
			Terminated:   info.Terminated,
			Content:      info.Content,
		})
	}
	return out
}

// Nodes flattens the tree of snap in pre-order without recursion.
func Nodes(snap *syntax.Snapshot) []NodeDoc {
	if snap == nil || snap.Root == nil {
		return nil
	}
	var out []NodeDoc
	var parents []int
	enter := func(n *syntax.Node) error {
		parent := -1
		if len(parents) > 0 {
			parent = parents[len(parents)-1]
		}
		out = append(out, nodeDoc(n, parent, len(parents)))
		parents = append(parents, len(out)-1)
		return nil
	}
	leave := func(*syntax.Node) error {
		parents = parents[:len(parents)-1]
		return nil
	}
	_ = syntax.WalkWithLeave(snap.Root, enter, leave)
	return out
}

func nodeDoc(n *syntax.Node, parent, depth int) NodeDoc {
	return NodeDoc{
		Kind:    n.Kind.String(),
		Parent:  parent,
		Depth:   depth,
		Start:   n.Span.Start,
		End:     n.Span.End,
		Name:    n.Name,
		Op:      n.Op,
		Value:   n.Value,
		Message: n.Message,
		Attrs:   attrs(n),
	}
}

// attrs collects the kind-specific attributes of n.
func attrs(n *syntax.Node) map[string]string {
	out := make(map[string]string)
	if s := n.String; s != nil {
		out["value"] = s.Value
		out["interpolated"] = strconv.FormatBool(s.Interpolated)
	}
	if r := n.Regex; r != nil {
		out["pattern"] = r.Pattern
		setNonEmpty(out, "modifiers", r.Modifiers)
		if r.HasEmbeddedCode {
			out["embeddedCode"] = "true"
		}
	}
	if s := n.Subst; s != nil {
		out["pattern"] = s.Pattern
		out["replacement"] = s.Replacement
		setNonEmpty(out, "modifiers", s.Modifiers)
	}
	if t := n.Translit; t != nil {
		out["search"] = t.SearchList
		out["replace"] = t.ReplaceList
		setNonEmpty(out, "modifiers", t.Modifiers)
	}
	if h := n.Heredoc; h != nil {
		out["terminator"] = h.Terminator
		out["content"] = h.Content
		out["interpolated"] = strconv.FormatBool(h.Interpolated)
		out["indented"] = strconv.FormatBool(h.Indented)
		out["terminated"] = strconv.FormatBool(h.Terminated)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func setNonEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
