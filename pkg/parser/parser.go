// Package parser turns Perl source into a syntax.Snapshot.
//
// Parsing runs the heredoc pre-pass, then a recursive descent parser over
// the rewritten source that emits a grammar tree, then the iterative
// builder that produces the AST with spans in original coordinates.
// Statement-level errors are recovered: the failing statement becomes an
// error node and parsing resumes after the next ';' or closing brace.
package parser

import (
	"sort"
	"strconv"

	"go.uber.org/multierr"

	"github.com/yaklabco/perlparse/pkg/builder"
	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/heredoc"
	"github.com/yaklabco/perlparse/pkg/lexer"
	"github.com/yaklabco/perlparse/pkg/quote"
	"github.com/yaklabco/perlparse/pkg/syntax"
	"github.com/yaklabco/perlparse/pkg/tokstream"
)

// DefaultMaxDepth bounds recursive descent into nested blocks and
// expressions.
const DefaultMaxDepth = 5000

// Options configures parsing.
type Options struct {
	// MaxDepth is the deepest block or expression nesting accepted.
	MaxDepth int

	// MaxHeredocs is the number of heredoc declarations accepted.
	MaxHeredocs int

	// Resolver finds where heredoc-bearing statements end.
	Resolver heredoc.StatementResolver
}

// Option modifies Options.
type Option func(*Options)

// WithMaxDepth sets Options.MaxDepth. Values below one are ignored.
func WithMaxDepth(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxDepth = n
		}
	}
}

// WithMaxHeredocs sets Options.MaxHeredocs. Values below one are ignored.
func WithMaxHeredocs(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxHeredocs = n
		}
	}
}

// WithStatementResolver replaces the bracket-counting resolver.
func WithStatementResolver(r heredoc.StatementResolver) Option {
	return func(o *Options) {
		if r != nil {
			o.Resolver = r
		}
	}
}

// DefaultOptions returns the options Parse uses when none are given.
func DefaultOptions() Options {
	return Options{
		MaxDepth:    DefaultMaxDepth,
		MaxHeredocs: heredoc.MaxDeclarations,
		Resolver:    heredoc.BracketResolver{},
	}
}

// Parse parses content. The snapshot is never nil; the error combines
// every recovered parse error and is nil for clean input.
func Parse(path, content string, opts ...Option) (*syntax.Snapshot, error) {
	return parse(path, content, 0, opts)
}

// ParseFrom parses content starting at offset, which must be the start of
// a statement. The snapshot's Root covers offset to the end of content and
// holds only the statements found there; Tokens and Errors are limited to
// the same range.
func ParseFrom(path, content string, offset int, opts ...Option) (*syntax.Snapshot, error) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return parse(path, content, offset, opts)
}

func parse(path, content string, offset int, opts []Option) (*syntax.Snapshot, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	docs := heredoc.Process(content,
		heredoc.WithLimit(o.MaxHeredocs),
		heredoc.WithResolver(o.Resolver))
	src := heredoc.Integrate(docs)
	begin := docs.Map.Rewritten(offset)

	lx := lexer.New(src)
	if begin > 0 {
		lx.Reset(begin, syntax.ModeExpectTerm)
	}
	stream := tokstream.New(lx, src, tokstream.WithRecording())

	p := &parser{
		ts:       stream,
		quotes:   quote.NewParser(stream),
		maxDepth: o.MaxDepth,
	}
	tree := cst.New(cst.RuleProgram, syntax.Span{Start: begin, End: len(src)}, p.statements(false)...)

	root, buildErrs := builder.Build(tree,
		builder.WithHeredocs(docs),
		builder.WithSourceMap(docs.Map))
	if root == nil {
		root = syntax.NewNode(syntax.NodeProgram, syntax.Span{})
	}
	root.Span = syntax.Span{Start: offset, End: len(content)}

	snap := syntax.NewSnapshot(path, content)
	snap.Root = root
	snap.Heredocs = docs.Infos()

	consumed := stream.Consumed()
	snap.Tokens = make([]syntax.Token, len(consumed))
	for i, tok := range consumed {
		tok.Span = syntax.Span{Start: docs.Map.Original(tok.Span.Start), End: docs.Map.Original(tok.Span.End)}
		snap.Tokens[i] = tok
	}

	var errs []*syntax.Error
	for _, err := range docs.Errors {
		if err.Span.Start >= offset {
			errs = append(errs, err)
		}
	}
	for _, err := range p.errs {
		err.Span = syntax.Span{Start: docs.Map.Original(err.Span.Start), End: docs.Map.Original(err.Span.End)}
		errs = append(errs, err)
	}
	errs = append(errs, buildErrs...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Span.Start < errs[j].Span.Start
	})
	snap.Errors = errs

	return snap, combine(errs)
}

func combine(errs []*syntax.Error) error {
	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return err
}

type parser struct {
	ts       *tokstream.Stream
	quotes   *quote.Parser
	maxDepth int
	depth    int
	blocks   int
	errs     []*syntax.Error
}

func (p *parser) record(err error) {
	if se, ok := syntax.AsError(err); ok {
		p.errs = append(p.errs, se)
		return
	}
	at := p.ts.LastEnd()
	p.errs = append(p.errs, syntax.NewError(syntax.ErrSyntax, syntax.Span{Start: at, End: at}, "%v", err))
}

func (p *parser) nestingError(tok syntax.Token) error {
	return syntax.NewError(syntax.ErrNestingLimit, tok.Span, "nesting too deep (limit %d)", p.maxDepth)
}

func (p *parser) expectOp(op string) (syntax.Token, error) {
	tok := p.ts.Peek()
	if !tok.IsOp(op) {
		return tok, syntax.NewSyntaxError("'"+op+"'", tok)
	}
	return p.ts.Next(), nil
}

// statements parses until EOF, or until a closing brace inside a block.
func (p *parser) statements(inBlock bool) []*cst.Node {
	var out []*cst.Node
	for {
		tok := p.ts.Peek()
		if tok.IsEOF() || (inBlock && tok.IsOp("}")) {
			return out
		}
		if node := p.statement(); node != nil {
			out = append(out, node)
		}
	}
}

// statement parses one statement, recovering from errors.
func (p *parser) statement() *cst.Node {
	start := p.ts.Peek().Span.Start
	node, err := p.parseStatement()
	if err != nil {
		p.record(err)
		node = p.recover(start, node, err)
	}
	p.ts.OnStmtBoundary()
	return node
}

// recover skips to the end of the broken statement: past a ';' outside
// brackets, or up to a '}' that closes the enclosing block.
func (p *parser) recover(start int, partial *cst.Node, cause error) *cst.Node {
	depth := 0
skip:
	for {
		tok := p.ts.Peek()
		if tok.IsEOF() {
			break
		}
		if tok.Kind == syntax.TokOperator {
			switch tok.Text {
			case ";":
				if depth == 0 {
					p.ts.Next()
					break skip
				}
			case "(", "[", "{":
				depth++
			case ")", "]":
				if depth > 0 {
					depth--
				}
			case "}":
				if depth == 0 {
					if p.blocks > 0 {
						break skip
					}
					p.ts.Next()
					break skip
				}
				depth--
			}
		}
		p.ts.Next()
	}

	end := p.ts.LastEnd()
	if end < start {
		end = start
	}
	var children []*cst.Node
	if partial != nil {
		children = append(children, partial)
	}
	return cst.Error(syntax.Span{Start: start, End: end}, describe(cause), children...)
}

// describe renders an error without its offset, which is still in
// rewritten coordinates at this point.
func describe(err error) string {
	se, ok := syntax.AsError(err)
	if !ok {
		return err.Error()
	}
	switch {
	case se.Message != "":
		return se.Message
	case se.Expected != "" && se.Found == "":
		return "expected " + se.Expected + ", found end of input"
	case se.Expected != "":
		return "expected " + se.Expected + ", found " + strconv.Quote(se.Found)
	}
	return se.Kind.String()
}

// cover returns the span from the first to the last non-nil node.
func cover(nodes ...*cst.Node) syntax.Span {
	var out syntax.Span
	found := false
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if !found {
			out = n.Span
			found = true
			continue
		}
		out = out.Cover(n.Span)
	}
	return out
}

func extend(span syntax.Span, nodes ...*cst.Node) syntax.Span {
	for _, n := range nodes {
		if n != nil {
			span = span.Cover(n.Span)
		}
	}
	return span
}
