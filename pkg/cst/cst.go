// Package cst defines the grammar tree the parser emits. Each node records
// the grammar rule that produced it; the builder turns rules into AST
// nodes. Spans are in the coordinates of the text the parser read, which
// differs from the original source when heredoc bodies were removed.
package cst

import (
	"strconv"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Rule identifies the grammar rule that produced a node.
type Rule uint8

// Grammar rules.
const (
	// RuleProgram and RuleBlock collect every child.
	RuleProgram Rule = iota
	RuleBlock

	// RuleStatement, RuleExpression and RuleTerm pass their single child
	// through.
	RuleStatement
	RuleExpression
	RuleTerm

	// RuleAssignment and RuleBinary need exactly two children.
	RuleAssignment
	RuleBinary

	// RuleTernary needs three children, or one which passes through.
	RuleTernary

	// RuleConstruct builds a node of Kind from all children.
	RuleConstruct

	// RuleLeaf carries a finished AST node.
	RuleLeaf

	// RulePlaceholder is a heredoc placeholder resolved by the builder.
	RulePlaceholder

	// RuleError marks a recovered parse error; children are the partial
	// subtree.
	RuleError
)

//nolint:gochecknoglobals // Read-only lookup table.
var ruleNames = [...]string{
	RuleProgram:     "program",
	RuleBlock:       "block",
	RuleStatement:   "statement",
	RuleExpression:  "expression",
	RuleTerm:        "term",
	RuleAssignment:  "assignment",
	RuleBinary:      "binary",
	RuleTernary:     "ternary",
	RuleConstruct:   "construct",
	RuleLeaf:        "leaf",
	RulePlaceholder: "placeholder",
	RuleError:       "error",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "Rule(" + strconv.Itoa(int(r)) + ")"
}

// IsLeaf reports whether nodes of the rule complete without children.
func (r Rule) IsLeaf() bool {
	return r == RuleLeaf || r == RulePlaceholder
}

// Node is one grammar tree node.
type Node struct {
	Rule     Rule
	Span     syntax.Span
	Children []*Node

	// Kind is the AST kind for RuleConstruct.
	Kind syntax.NodeKind

	// Name, Op and Value are copied to the AST node.
	Name  string
	Op    string
	Value string

	// Text is the placeholder text for RulePlaceholder.
	Text string

	// Message describes a RuleError node.
	Message string

	// Leaf is the finished node for RuleLeaf.
	Leaf *syntax.Node

	// String carries literal attributes for constructs such as formats.
	String *syntax.StringAttrs
}

// New creates a node for rule over span.
func New(rule Rule, span syntax.Span, children ...*Node) *Node {
	return &Node{Rule: rule, Span: span, Children: children}
}

// Construct creates a RuleConstruct node of kind.
func Construct(kind syntax.NodeKind, span syntax.Span, children ...*Node) *Node {
	return &Node{Rule: RuleConstruct, Kind: kind, Span: span, Children: children}
}

// Leaf wraps a finished AST node.
func Leaf(n *syntax.Node) *Node {
	return &Node{Rule: RuleLeaf, Span: n.Span, Leaf: n}
}

// Placeholder creates a heredoc placeholder leaf from its token.
func Placeholder(tok syntax.Token) *Node {
	return &Node{Rule: RulePlaceholder, Span: tok.Span, Text: tok.Text}
}

// Error creates a RuleError node.
func Error(span syntax.Span, message string, partial ...*Node) *Node {
	return &Node{Rule: RuleError, Span: span, Message: message, Children: partial}
}

// Wrap creates a pass-through node around child.
func Wrap(rule Rule, child *Node) *Node {
	if child == nil {
		return &Node{Rule: rule}
	}
	return &Node{Rule: rule, Span: child.Span, Children: []*Node{child}}
}

// IsConstruct reports whether n is a RuleConstruct node of kind.
func (n *Node) IsConstruct(kind syntax.NodeKind) bool {
	return n != nil && n.Rule == RuleConstruct && n.Kind == kind
}

// Unwrap follows pass-through rules down to the first node that builds
// something on its own.
func (n *Node) Unwrap() *Node {
	for n != nil && len(n.Children) == 1 &&
		(n.Rule == RuleStatement || n.Rule == RuleExpression || n.Rule == RuleTerm || n.Rule == RuleTernary) {
		n = n.Children[0]
	}
	return n
}
