package parser

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// binaryLevels lists left-associative operators from loosest to tightest,
// between the range operator and unary operators.
//
//nolint:gochecknoglobals // Read-only precedence table.
var binaryLevels = [][]string{
	{"||", "//"},
	{"&&"},
	{"|", "^"},
	{"&"},
	{"==", "!=", "<=>", "eq", "ne", "cmp"},
	{"<", ">", "<=", ">=", "lt", "gt", "le", "ge", "isa"},
	{"<<", ">>"},
	{"+", "-", "."},
	{"*", "/", "%", "x"},
	{"=~", "!~"},
}

// namedUnaryLevel is where the operand of a named unary operator such as
// defined or ref starts: tighter than comparison, looser than shifts.
const namedUnaryLevel = 6

//nolint:gochecknoglobals // Read-only lookup table.
var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, ".=": true,
	"%=": true, "**=": true, "||=": true, "&&=": true, "//=": true, "|=": true,
	"&=": true, "^=": true, "<<=": true, ">>=": true,
}

func isWordOperator(word string) bool {
	switch word {
	case "x", "eq", "ne", "lt", "gt", "le", "ge", "cmp", "isa",
		"and", "or", "not", "xor":
		return true
	default:
		return false
	}
}

func isComma(tok syntax.Token) bool {
	return tok.IsOp(",") || tok.IsOp("=>")
}

func binaryOp(tok syntax.Token, level int) bool {
	if tok.Kind != syntax.TokOperator && tok.Kind != syntax.TokIdentifier {
		return false
	}
	if tok.Kind == syntax.TokIdentifier && !isWordOperator(tok.Text) {
		return false
	}
	for _, op := range binaryLevels[level] {
		if tok.Text == op {
			return true
		}
	}
	return false
}

func binary(op string, left, right *cst.Node) *cst.Node {
	n := cst.New(cst.RuleBinary, cover(left, right), left, right)
	n.Op = op
	return n
}

// parseExpr parses a full expression including the low-precedence
// logical operators.
func (p *parser) parseExpr() (*cst.Node, error) {
	if p.depth >= p.maxDepth {
		return nil, p.nestingError(p.ts.Peek())
	}
	p.depth++
	defer func() { p.depth-- }()

	n, err := p.parseLowOr()
	if err != nil || n == nil {
		return n, err
	}
	return cst.Wrap(cst.RuleExpression, n), nil
}

func (p *parser) parseLowOr() (*cst.Node, error) {
	left, err := p.parseLowAnd()
	for err == nil {
		tok := p.ts.Peek()
		if !tok.IsWord("or") && !tok.IsWord("xor") {
			break
		}
		p.ts.Next()
		var right *cst.Node
		right, err = p.parseLowAnd()
		if right == nil {
			break
		}
		left = binary(tok.Text, left, right)
	}
	return left, err
}

func (p *parser) parseLowAnd() (*cst.Node, error) {
	left, err := p.parseLowNot()
	for err == nil {
		tok := p.ts.Peek()
		if !tok.IsWord("and") {
			break
		}
		p.ts.Next()
		var right *cst.Node
		right, err = p.parseLowNot()
		if right == nil {
			break
		}
		left = binary(tok.Text, left, right)
	}
	return left, err
}

func (p *parser) parseLowNot() (*cst.Node, error) {
	tok := p.ts.Peek()
	if !tok.IsWord("not") {
		return p.parseCommaList()
	}
	p.ts.Next()
	if p.endsList(p.ts.Peek()) {
		n := cst.Construct(syntax.NodeUnary, tok.Span)
		n.Op = tok.Text
		return n, nil
	}
	operand, err := p.parseLowNot()
	n := cst.Construct(syntax.NodeUnary, extend(tok.Span, operand), operand)
	n.Op = tok.Text
	return n, err
}

// endsList reports whether tok cannot start another list element.
func (p *parser) endsList(tok syntax.Token) bool {
	switch tok.Kind {
	case syntax.TokEOF:
		return true
	case syntax.TokOperator:
		switch tok.Text {
		case ")", "]", "}", ";", ":":
			return true
		}
	case syntax.TokIdentifier:
		return isModifier(tok.Text) || isWordOperator(tok.Text)
	}
	return false
}

// parseCommaList parses assignments separated by ',' or '=>'. A single
// element is returned as is; several become a List with Op ",".
func (p *parser) parseCommaList() (*cst.Node, error) {
	first, err := p.parseAssign()
	if err != nil || !isComma(p.ts.Peek()) {
		return first, err
	}

	items := []*cst.Node{first}
	list := func() *cst.Node {
		n := cst.Construct(syntax.NodeList, cover(items...), items...)
		n.Op = ","
		return n
	}
	for isComma(p.ts.Peek()) {
		p.ts.Next()
		if p.endsList(p.ts.Peek()) && !p.ts.PeekSecond().IsOp("=>") {
			break
		}
		item, err := p.parseAssign()
		if item != nil {
			items = append(items, item)
		}
		if err != nil {
			return list(), err
		}
	}
	return list(), nil
}

func (p *parser) parseAssign() (*cst.Node, error) {
	left, err := p.parseTernary()
	if err != nil {
		return left, err
	}
	tok := p.ts.Peek()
	if tok.Kind != syntax.TokOperator || !assignOps[tok.Text] {
		return left, nil
	}
	p.ts.Next()
	right, err := p.parseAssign()
	if right == nil {
		return left, err
	}
	n := cst.New(cst.RuleAssignment, cover(left, right), left, right)
	n.Op = tok.Text
	return n, err
}

func (p *parser) parseTernary() (*cst.Node, error) {
	cond, err := p.parseRange()
	if err != nil {
		return cond, err
	}
	if !p.ts.Peek().IsOp("?") {
		return cst.Wrap(cst.RuleTernary, cond), nil
	}
	p.ts.Next()
	then, err := p.parseAssign()
	if err != nil {
		return cond, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return cond, err
	}
	otherwise, err := p.parseAssign()
	if err != nil {
		return cond, err
	}
	return cst.New(cst.RuleTernary, cover(cond, otherwise), cond, then, otherwise), nil
}

func (p *parser) parseRange() (*cst.Node, error) {
	left, err := p.parseBinary(0)
	if err != nil {
		return left, err
	}
	tok := p.ts.Peek()
	if !tok.IsOp("..") && !tok.IsOp("...") {
		return left, nil
	}
	p.ts.Next()
	right, err := p.parseBinary(0)
	if right == nil {
		return left, err
	}
	return binary(tok.Text, left, right), err
}

func (p *parser) parseBinary(level int) (*cst.Node, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	for err == nil {
		tok := p.ts.Peek()
		if !binaryOp(tok, level) {
			break
		}
		p.ts.Next()
		var right *cst.Node
		right, err = p.parseBinary(level + 1)
		if right == nil {
			break
		}
		left = binary(tok.Text, left, right)
	}
	return left, err
}

// fileTests are the -X file test operators.
const fileTests = "rwxoRWXOezsfdlpSbcugktTBAMC"

func (p *parser) parseUnary() (*cst.Node, error) {
	tok := p.ts.Peek()
	if tok.Kind != syntax.TokOperator {
		return p.parsePower()
	}

	switch tok.Text {
	case "-":
		if op, ok := p.fileTest(tok); ok {
			if !p.startsTerm(p.ts.Peek()) {
				// file tests default to $_
				n := cst.Construct(syntax.NodeUnary, syntax.Span{Start: tok.Span.Start, End: tok.Span.Start + len(op)})
				n.Op = op
				return n, nil
			}
			return p.unary(op, tok.Span.Start, p.parseUnary)
		}
		p.ts.Next()
		return p.unary(tok.Text, tok.Span.Start, p.parseUnary)
	case "!", "~", "\\", "+":
		p.ts.Next()
		return p.unary(tok.Text, tok.Span.Start, p.parseUnary)
	case "++", "--":
		p.ts.Next()
		return p.unary(tok.Text, tok.Span.Start, p.parseUnary)
	}
	return p.parsePower()
}

// fileTest consumes a file test such as -e or -d when tok starts one.
func (p *parser) fileTest(tok syntax.Token) (string, bool) {
	letter := p.ts.PeekSecond()
	if letter.Kind != syntax.TokIdentifier || len(letter.Text) != 1 || letter.Span.Start != tok.Span.End {
		return "", false
	}
	if !strings.Contains(fileTests, letter.Text) {
		return "", false
	}
	after := p.ts.PeekThird()
	if isComma(after) || after.IsOp("(") || after.IsOp("}") {
		return "", false
	}
	p.ts.Next()
	p.ts.Next()
	return "-" + letter.Text, true
}

func (p *parser) unary(op string, start int, operand func() (*cst.Node, error)) (*cst.Node, error) {
	inner, err := operand()
	span := syntax.Span{Start: start, End: start + len(op)}
	n := cst.Construct(syntax.NodeUnary, extend(span, inner), inner)
	n.Op = op
	return n, err
}

func (p *parser) parsePower() (*cst.Node, error) {
	base, err := p.parseIncDec()
	if err != nil || !p.ts.Peek().IsOp("**") {
		return base, err
	}
	op := p.ts.Next()
	exp, err := p.parseUnary()
	if exp == nil {
		return base, err
	}
	return binary(op.Text, base, exp), err
}

func (p *parser) parseIncDec() (*cst.Node, error) {
	n, err := p.parsePostfix()
	if err != nil {
		return n, err
	}
	if tok := p.ts.Peek(); tok.IsOp("++") || tok.IsOp("--") {
		p.ts.Next()
		post := cst.Construct(syntax.NodePostfix, n.Span.Cover(tok.Span), n)
		post.Op = tok.Text
		return post, nil
	}
	return n, nil
}
