package syntax

import "strconv"

// NodeKind identifies the type of an AST node. The set is closed; consumers
// switch over it exhaustively.
type NodeKind uint16

// Node kinds.
const (
	NodeProgram NodeKind = iota
	NodeBlock
	NodeError
	NodeEmpty

	// Declarations and statements.
	NodeUse
	NodePackage
	NodeSub
	NodeFormat
	NodeIf
	NodeWhile
	NodeFor
	NodeForeach
	NodeReturn
	NodeLoopControl
	NodeModifier
	NodeDataSection

	// Expressions.
	NodeDeclaration
	NodeAssignment
	NodeTernary
	NodeBinary
	NodeUnary
	NodePostfix
	NodeCall
	NodeMethodCall
	NodeSubscript
	NodeDeref
	NodeList
	NodeArrayRef
	NodeHashRef

	// Terms.
	NodeVariable
	NodeBareword
	NodeNumber
	NodeString
	NodeCommand
	NodeHeredoc
	NodeWordList
	NodeRegex
	NodeSubstitution
	NodeTransliteration
	NodeReadline

	nodeKindCount
)

//nolint:gochecknoglobals // Read-only lookup table.
var nodeKindNames = [...]string{
	NodeProgram:         "Program",
	NodeBlock:           "Block",
	NodeError:           "Error",
	NodeEmpty:           "Empty",
	NodeUse:             "Use",
	NodePackage:         "Package",
	NodeSub:             "Sub",
	NodeFormat:          "Format",
	NodeIf:              "If",
	NodeWhile:           "While",
	NodeFor:             "For",
	NodeForeach:         "Foreach",
	NodeReturn:          "Return",
	NodeLoopControl:     "LoopControl",
	NodeModifier:        "Modifier",
	NodeDataSection:     "DataSection",
	NodeDeclaration:     "Declaration",
	NodeAssignment:      "Assignment",
	NodeTernary:         "Ternary",
	NodeBinary:          "Binary",
	NodeUnary:           "Unary",
	NodePostfix:         "Postfix",
	NodeCall:            "Call",
	NodeMethodCall:      "MethodCall",
	NodeSubscript:       "Subscript",
	NodeDeref:           "Deref",
	NodeList:            "List",
	NodeArrayRef:        "ArrayRef",
	NodeHashRef:         "HashRef",
	NodeVariable:        "Variable",
	NodeBareword:        "Bareword",
	NodeNumber:          "Number",
	NodeString:          "String",
	NodeCommand:         "Command",
	NodeHeredoc:         "Heredoc",
	NodeWordList:        "WordList",
	NodeRegex:           "Regex",
	NodeSubstitution:    "Substitution",
	NodeTransliteration: "Transliteration",
	NodeReadline:        "Readline",
}

func (k NodeKind) String() string {
	if k < nodeKindCount {
		return nodeKindNames[k]
	}
	return "NodeKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseNodeKind returns the kind with the given name.
func ParseNodeKind(name string) (NodeKind, bool) {
	for k := NodeKind(0); k < nodeKindCount; k++ {
		if nodeKindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// IsStatement reports whether the kind only appears in statement position.
func (k NodeKind) IsStatement() bool {
	switch k {
	case NodeUse, NodePackage, NodeSub, NodeFormat, NodeIf, NodeWhile,
		NodeFor, NodeForeach, NodeReturn, NodeLoopControl, NodeModifier,
		NodeDataSection, NodeBlock:
		return true
	default:
		return false
	}
}

// IsLiteral reports whether the kind is a literal term.
func (k NodeKind) IsLiteral() bool {
	switch k {
	case NodeNumber, NodeString, NodeCommand, NodeHeredoc, NodeWordList,
		NodeRegex, NodeSubstitution, NodeTransliteration:
		return true
	default:
		return false
	}
}

// Node is a single AST node. A node exclusively owns its children; there
// are no parent or sibling pointers, so a subtree can be shared between
// successive trees of the same document without copying.
type Node struct {
	Kind     NodeKind
	Span     Span
	Children []*Node

	// Name holds identifiers: variable names (with sigil), sub and package
	// names, called function names, labels.
	Name string

	// Op holds the operator or keyword that distinguishes variants of a
	// kind: "=" or "+=" for assignments, "if" or "unless", "my" or "our".
	Op string

	// Value holds the literal text of numbers and versions.
	Value string

	// Message is set on NodeError.
	Message string

	String   *StringAttrs
	Regex    *RegexAttrs
	Subst    *SubstAttrs
	Translit *TranslitAttrs
	Heredoc  *HeredocAttrs
}

// NewNode creates a node of the given kind covering span.
func NewNode(kind NodeKind, span Span, children ...*Node) *Node {
	return &Node{Kind: kind, Span: span, Children: children}
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// HasChildren returns true if the node has at least one child.
func (n *Node) HasChildren() bool {
	return n.ChildCount() > 0
}

// Text returns the source text covered by the node.
func (n *Node) Text(content string) string {
	if n == nil {
		return ""
	}
	return n.Span.Text(content)
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	type frame struct {
		node  *Node
		depth int
	}
	maxDepth := 0
	stack := []frame{{n, 1}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > maxDepth {
			maxDepth = top.depth
		}
		for _, child := range top.node.Children {
			if child != nil {
				stack = append(stack, frame{child, top.depth + 1})
			}
		}
	}
	return maxDepth
}
