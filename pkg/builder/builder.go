// Package builder converts the parser's grammar tree into the AST.
//
// Conversion is iterative: an explicit work stack holds one frame per
// grammar node being converted and a shared results buffer receives
// finished AST nodes, so arbitrarily deep input cannot exhaust the
// goroutine stack. Each frame moves through three states: process (leaf
// rules finish here, other rules push their first child), waiting for
// children (each resume moves the finished child's result from the
// buffer into the frame's accumulator and pushes the next unprocessed
// child), and build from children (the frame constructs its node from
// the accumulator).
package builder

import (
	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/heredoc"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// HeredocTable resolves placeholders to collected declarations.
type HeredocTable interface {
	Lookup(placeholder string) (*heredoc.Declaration, bool)
}

// OffsetMapper translates parser offsets to original source offsets.
type OffsetMapper interface {
	Original(offset int) int
}

type identityMap struct{}

func (identityMap) Original(offset int) int { return offset }

type emptyTable struct{}

func (emptyTable) Lookup(string) (*heredoc.Declaration, bool) { return nil, false }

// Builder holds conversion state. A Builder is single use.
type Builder struct {
	heredocs HeredocTable
	offsets  OffsetMapper
	errs     []*syntax.Error

	// peak is the deepest work stack seen by the last Build.
	peak int
}

// Option configures a Builder.
type Option func(*Builder)

// WithHeredocs sets the table placeholders resolve against.
func WithHeredocs(table HeredocTable) Option {
	return func(b *Builder) {
		if table != nil {
			b.heredocs = table
		}
	}
}

// WithSourceMap sets the offset translation applied to every span.
func WithSourceMap(m OffsetMapper) Option {
	return func(b *Builder) {
		if m != nil {
			b.offsets = m
		}
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{heredocs: emptyTable{}, offsets: identityMap{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts root with a fresh Builder.
func Build(root *cst.Node, opts ...Option) (*syntax.Node, []*syntax.Error) {
	b := New(opts...)
	node := b.Build(root)
	return node, b.Errors()
}

// Errors returns problems found while building: unknown placeholders and
// rule arity violations.
func (b *Builder) Errors() []*syntax.Error {
	return b.errs
}

type frameState uint8

const (
	stateProcess frameState = iota
	stateWaitingForChildren
	stateBuildFromChildren
)

type frame struct {
	node  *cst.Node
	state frameState

	// next indexes the first child not pushed yet.
	next int

	// children accumulates the results of finished children in order.
	children []*syntax.Node

	// base is the results buffer length while a child is pending.
	base int
}

// Build converts root into an AST node. It returns nil when root
// produces no node.
func (b *Builder) Build(root *cst.Node) *syntax.Node {
	if root == nil {
		return nil
	}

	stack := []frame{{node: root, state: stateProcess}}
	var results []*syntax.Node
	b.peak = 1

	for len(stack) > 0 {
		b.peak = max(b.peak, len(stack))
		top := &stack[len(stack)-1]

		switch top.state {
		case stateProcess:
			if top.node.Rule.IsLeaf() {
				results = append(results, b.leaf(top.node))
				stack = stack[:len(stack)-1]
				continue
			}
			top.state = stateWaitingForChildren
			top.base = len(results)
			stack = pushNextChild(stack)

		case stateWaitingForChildren:
			// The pending child has finished; it may have produced nothing.
			if len(results) > top.base {
				top.children = append(top.children, results[len(results)-1])
				results = results[:top.base]
			}
			stack = pushNextChild(stack)

		case stateBuildFromChildren:
			node := b.construct(top.node, top.children)
			stack = stack[:len(stack)-1]
			if node != nil {
				results = append(results, node)
			}
		}
	}

	if len(results) == 0 {
		return nil
	}
	return results[len(results)-1]
}

// pushNextChild pushes the top frame's next non-nil child, or moves the
// frame to stateBuildFromChildren when none is left.
func pushNextChild(stack []frame) []frame {
	top := &stack[len(stack)-1]
	children := top.node.Children
	for top.next < len(children) {
		child := children[top.next]
		top.next++
		if child != nil {
			return append(stack, frame{node: child, state: stateProcess})
		}
	}
	top.state = stateBuildFromChildren
	return stack
}

func (b *Builder) mapSpan(span syntax.Span) syntax.Span {
	return syntax.Span{Start: b.offsets.Original(span.Start), End: b.offsets.Original(span.End)}
}

func (b *Builder) leaf(n *cst.Node) *syntax.Node {
	if n.Rule == cst.RulePlaceholder {
		return b.placeholder(n)
	}
	if n.Leaf == nil {
		return b.fail(n, "leaf without a node")
	}
	_ = syntax.Walk(n.Leaf, func(node *syntax.Node) error {
		node.Span = b.mapSpan(node.Span)
		return nil
	})
	return n.Leaf
}

func (b *Builder) placeholder(n *cst.Node) *syntax.Node {
	decl, ok := b.heredocs.Lookup(n.Text)
	if !ok {
		return b.fail(n, "unknown heredoc placeholder "+n.Text)
	}
	node := syntax.NewNode(syntax.NodeHeredoc, b.mapSpan(n.Span))
	node.Name = decl.Terminator
	node.Heredoc = decl.Attrs()
	return node
}

func (b *Builder) construct(n *cst.Node, children []*syntax.Node) *syntax.Node {
	span := b.mapSpan(n.Span)

	switch n.Rule {
	case cst.RuleProgram:
		return syntax.NewNode(syntax.NodeProgram, span, children...)

	case cst.RuleBlock:
		node := syntax.NewNode(syntax.NodeBlock, span, children...)
		node.Name = n.Name
		return node

	case cst.RuleStatement, cst.RuleExpression, cst.RuleTerm:
		switch len(children) {
		case 0:
			return nil
		case 1:
			return children[0]
		}
		return b.arity(n, span, "one", children)

	case cst.RuleAssignment:
		if len(children) == 0 {
			return nil
		}
		if len(children) != 2 {
			return b.arity(n, span, "two", children)
		}
		node := syntax.NewNode(syntax.NodeAssignment, span, children...)
		node.Op = n.Op
		return node

	case cst.RuleBinary:
		if len(children) == 0 {
			return nil
		}
		if len(children) != 2 {
			return b.arity(n, span, "two", children)
		}
		node := syntax.NewNode(syntax.NodeBinary, span, children...)
		node.Op = n.Op
		return node

	case cst.RuleTernary:
		switch len(children) {
		case 0:
			return nil
		case 1:
			return children[0]
		case 3:
			return syntax.NewNode(syntax.NodeTernary, span, children...)
		}
		return b.arity(n, span, "three", children)

	case cst.RuleConstruct:
		node := syntax.NewNode(n.Kind, span, children...)
		node.Name = n.Name
		node.Op = n.Op
		node.Value = n.Value
		node.String = n.String
		if n.Kind == syntax.NodeUse && n.Name == "" && n.Value != "" {
			node.Value = NormalizeVersion(n.Value)
		}
		return node

	case cst.RuleError:
		node := syntax.NewNode(syntax.NodeError, span, children...)
		node.Message = n.Message
		return node

	case cst.RuleLeaf, cst.RulePlaceholder:
		return b.leaf(n)
	}

	return b.fail(n, "unknown rule "+n.Rule.String())
}

func (b *Builder) arity(n *cst.Node, span syntax.Span, want string, children []*syntax.Node) *syntax.Node {
	err := syntax.NewError(syntax.ErrSyntax, span, "%s rule expects %s child nodes, got %d", n.Rule, want, len(children))
	b.errs = append(b.errs, err)
	node := syntax.NewNode(syntax.NodeError, span, children...)
	node.Message = err.Message
	return node
}

func (b *Builder) fail(n *cst.Node, message string) *syntax.Node {
	span := b.mapSpan(n.Span)
	b.errs = append(b.errs, syntax.NewError(syntax.ErrSyntax, span, "%s", message))
	node := syntax.NewNode(syntax.NodeError, span)
	node.Message = message
	return node
}
