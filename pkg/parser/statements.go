package parser

import (
	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

func isModifier(word string) bool {
	switch word {
	case "if", "unless", "while", "until", "for", "foreach":
		return true
	default:
		return false
	}
}

func isPhaser(word string) bool {
	switch word {
	case "BEGIN", "END", "INIT", "CHECK", "UNITCHECK":
		return true
	default:
		return false
	}
}

func isLabel(word string) bool {
	if word == "" || isModifier(word) || isWordOperator(word) {
		return false
	}
	for i := 0; i < len(word); i++ {
		c := word[i]
		if !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func (p *parser) parseStatement() (*cst.Node, error) {
	tok := p.ts.Peek()
	switch tok.Kind {
	case syntax.TokOperator:
		switch tok.Text {
		case ";":
			p.ts.Next()
			return cst.Construct(syntax.NodeEmpty, tok.Span), nil
		case "{":
			block, err := p.parseBlock()
			return cst.Wrap(cst.RuleStatement, block), err
		case "}":
			return nil, syntax.NewSyntaxError("statement", tok)
		}
	case syntax.TokDataSection:
		p.ts.Next()
		node := cst.Construct(syntax.NodeDataSection, tok.Span)
		node.Value = tok.Text
		return cst.Wrap(cst.RuleStatement, node), nil
	case syntax.TokIdentifier:
		if node, ok, err := p.keywordStatement(tok); ok {
			return cst.Wrap(cst.RuleStatement, node), err
		}
	}
	return p.simpleStatement()
}

// keywordStatement handles statements introduced by a keyword. It
// reports false when tok starts an ordinary expression statement.
func (p *parser) keywordStatement(tok syntax.Token) (*cst.Node, bool, error) {
	second := p.ts.PeekSecond()

	switch tok.Text {
	case "use", "no":
		node, err := p.parseUse()
		return node, true, err
	case "package":
		node, err := p.parsePackage()
		return node, true, err
	case "sub":
		if second.Kind == syntax.TokIdentifier {
			node, err := p.parseSub()
			if err == nil && len(node.Children) == 0 {
				err = p.endStatement()
			}
			return node, true, err
		}
	case "format":
		if second.IsOp("=") || (second.Kind == syntax.TokIdentifier && p.ts.PeekThird().IsOp("=")) {
			node, err := p.parseFormat()
			return node, true, err
		}
	case "if", "unless":
		node, err := p.parseIf()
		return node, true, err
	case "while", "until":
		node, err := p.parseWhile("")
		return node, true, err
	case "for", "foreach":
		node, err := p.parseFor("")
		return node, true, err
	}

	if isPhaser(tok.Text) && second.IsOp("{") {
		node, err := p.parsePhaser()
		return node, true, err
	}

	if second.IsOp(":") && isLabel(tok.Text) {
		node, err := p.parseLabeled()
		return node, node != nil || err != nil, err
	}
	return nil, false, nil
}

func (p *parser) simpleStatement() (*cst.Node, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return cst.Wrap(cst.RuleStatement, expr), err
	}

	if kw := p.ts.Peek(); kw.Kind == syntax.TokIdentifier && isModifier(kw.Text) {
		p.ts.Next()
		cond, err := p.parseExpr()
		mod := cst.Construct(syntax.NodeModifier, cover(expr, cond), expr, cond)
		mod.Op = kw.Text
		if err != nil {
			return cst.Wrap(cst.RuleStatement, mod), err
		}
		expr = mod
	}

	stmt := cst.Wrap(cst.RuleStatement, expr)
	return stmt, p.endStatement()
}

// endStatement consumes the ';' ending a simple statement. A closing
// brace or end of input also ends one.
func (p *parser) endStatement() error {
	tok := p.ts.Peek()
	switch {
	case tok.IsOp(";"):
		p.ts.Next()
		return nil
	case tok.IsOp("}"), tok.IsEOF():
		return nil
	}
	return syntax.NewSyntaxError("';'", tok)
}

// atStatementEnd reports whether the next token ends a statement.
func (p *parser) atStatementEnd() bool {
	tok := p.ts.Peek()
	return tok.IsEOF() || tok.IsOp(";") || tok.IsOp("}")
}

func (p *parser) parseBlock() (*cst.Node, error) {
	if p.depth >= p.maxDepth {
		return nil, p.nestingError(p.ts.Peek())
	}
	open, err := p.expectOp("{")
	if err != nil {
		return nil, err
	}
	p.depth++
	p.blocks++
	defer func() {
		p.depth--
		p.blocks--
	}()

	stmts := p.statements(true)
	closing := p.ts.Peek()
	if !closing.IsOp("}") {
		span := syntax.Span{Start: open.Span.Start, End: closing.Span.Start}
		return cst.New(cst.RuleBlock, span, stmts...), syntax.NewSyntaxError("'}'", closing)
	}
	p.ts.Next()
	return cst.New(cst.RuleBlock, syntax.Span{Start: open.Span.Start, End: closing.Span.End}, stmts...), nil
}

func (p *parser) parseUse() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeUse, kw.Span)
	node.Op = kw.Text

	tok := p.ts.Peek()
	switch tok.Kind {
	case syntax.TokVersion, syntax.TokNumber:
		p.ts.Next()
		node.Value = tok.Text
		node.Span = node.Span.Cover(tok.Span)
	case syntax.TokIdentifier:
		p.ts.Next()
		node.Name = tok.Text
		node.Span = node.Span.Cover(tok.Span)

		version := p.ts.Peek()
		if (version.Kind == syntax.TokNumber || version.Kind == syntax.TokVersion) && !isComma(p.ts.PeekSecond()) {
			p.ts.Next()
			node.Value = version.Text
			node.Span = node.Span.Cover(version.Span)
		}
		if !p.atStatementEnd() {
			args, err := p.parseExpr()
			if args != nil {
				node.Children = append(node.Children, args)
				node.Span = extend(node.Span, args)
			}
			if err != nil {
				return node, err
			}
		}
	default:
		return node, syntax.NewSyntaxError("module name or version", tok)
	}
	return node, p.endStatement()
}

func (p *parser) parsePackage() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodePackage, kw.Span)

	name := p.ts.Peek()
	if name.Kind != syntax.TokIdentifier {
		return node, syntax.NewSyntaxError("package name", name)
	}
	p.ts.Next()
	node.Name = name.Text
	node.Span = node.Span.Cover(name.Span)

	if v := p.ts.Peek(); v.Kind == syntax.TokNumber || v.Kind == syntax.TokVersion {
		p.ts.Next()
		node.Value = v.Text
		node.Span = node.Span.Cover(v.Span)
	}

	if p.ts.Peek().IsOp("{") {
		block, err := p.parseBlock()
		if block != nil {
			node.Children = append(node.Children, block)
			node.Span = extend(node.Span, block)
		}
		return node, err
	}
	return node, p.endStatement()
}

// parseSub parses named and anonymous subs. A named forward declaration
// returns a node without a body.
func (p *parser) parseSub() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeSub, kw.Span)
	node.Op = kw.Text

	if name := p.ts.Peek(); name.Kind == syntax.TokIdentifier {
		p.ts.Next()
		node.Name = name.Text
		node.Span = node.Span.Cover(name.Span)
	}
	if err := p.subSignature(node); err != nil {
		return node, err
	}
	if node.Name != "" && p.atStatementEnd() {
		return node, nil
	}

	body, err := p.parseBlock()
	if body != nil {
		node.Children = append(node.Children, body)
		node.Span = extend(node.Span, body)
	}
	return node, err
}

// subSignature records a prototype or signature in Value and skips
// attributes such as :lvalue or :prototype($).
func (p *parser) subSignature(node *cst.Node) error {
	if p.ts.Peek().IsOp("(") {
		open := p.ts.Next()
		end, err := p.skipBalanced(open)
		if err != nil {
			return err
		}
		node.Value = p.ts.Slice(open.Span.Start, end)
		node.Span.End = end
	}

	for p.ts.Peek().IsOp(":") {
		p.ts.Next()
		attr := p.ts.Peek()
		if attr.Kind != syntax.TokIdentifier {
			return syntax.NewSyntaxError("attribute name", attr)
		}
		p.ts.Next()
		node.Span.End = attr.Span.End
		if next := p.ts.Peek(); next.IsOp("(") && next.Span.Start == attr.Span.End {
			open := p.ts.Next()
			end, err := p.skipBalanced(open)
			if err != nil {
				return err
			}
			node.Span.End = end
		}
	}
	return nil
}

// skipBalanced consumes tokens up to the parenthesis matching open and
// returns the offset after it.
func (p *parser) skipBalanced(open syntax.Token) (int, error) {
	depth := 1
	for depth > 0 {
		tok := p.ts.Next()
		switch {
		case tok.IsEOF():
			return tok.Span.Start, syntax.NewSyntaxError("')'", tok)
		case tok.IsOp("("):
			depth++
		case tok.IsOp(")"):
			depth--
		}
		if depth == 0 {
			return tok.Span.End, nil
		}
	}
	return open.Span.End, nil
}

func (p *parser) parsePhaser() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeSub, kw.Span)
	node.Name = kw.Text
	node.Op = "phaser"

	body, err := p.parseBlock()
	if body != nil {
		node.Children = append(node.Children, body)
		node.Span = extend(node.Span, body)
	}
	return node, err
}

func (p *parser) parseFormat() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeFormat, kw.Span)
	node.Name = "STDOUT"
	if name := p.ts.Peek(); name.Kind == syntax.TokIdentifier {
		p.ts.Next()
		node.Name = name.Text
	}
	if _, err := p.expectOp("="); err != nil {
		return node, err
	}

	p.ts.EnterFormatMode()
	body := p.ts.Next()
	if body.Kind != syntax.TokFormatBody {
		return node, syntax.NewError(syntax.ErrSyntax, body.Span, "format %s is not terminated by a '.' line", node.Name)
	}
	node.String = &syntax.StringAttrs{Value: body.Text}
	node.Span = node.Span.Cover(body.Span)
	return node, nil
}

// parenCondition parses "( expr )"; empty parentheses yield an empty node.
func (p *parser) parenCondition() (*cst.Node, error) {
	open, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}
	if closing := p.ts.Peek(); closing.IsOp(")") {
		p.ts.Next()
		return cst.Construct(syntax.NodeEmpty, syntax.Span{Start: open.Span.Start, End: closing.Span.End}), nil
	}
	cond, err := p.parseExpr()
	if err != nil {
		return cond, err
	}
	if _, err := p.expectOp(")"); err != nil {
		return cond, err
	}
	return cond, nil
}

// parseIf parses if/unless with elsif and else. Each elsif becomes a
// nested If node in the else position of the previous one.
func (p *parser) parseIf() (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeIf, kw.Span)
	node.Op = kw.Text

	if err := p.conditionAndBlock(node); err != nil {
		return node, err
	}

	chain := []*cst.Node{node}
	tail := node
	for {
		tok := p.ts.Peek()
		if tok.IsWord("elsif") {
			p.ts.Next()
			branch := cst.Construct(syntax.NodeIf, tok.Span)
			branch.Op = "elsif"
			tail.Children = append(tail.Children, branch)
			chain = append(chain, branch)
			tail = branch
			if err := p.conditionAndBlock(branch); err != nil {
				closeChain(chain, branch.Span.End)
				return node, err
			}
			continue
		}
		if tok.IsWord("else") {
			p.ts.Next()
			block, err := p.parseBlock()
			if block != nil {
				tail.Children = append(tail.Children, block)
				tail.Span = extend(tail.Span, block)
			}
			closeChain(chain, tail.Span.End)
			return node, err
		}
		closeChain(chain, tail.Span.End)
		return node, nil
	}
}

func (p *parser) conditionAndBlock(node *cst.Node) error {
	cond, err := p.parenCondition()
	if cond != nil {
		node.Children = append(node.Children, cond)
		node.Span = extend(node.Span, cond)
	}
	if err != nil {
		return err
	}
	block, err := p.parseBlock()
	if block != nil {
		node.Children = append(node.Children, block)
		node.Span = extend(node.Span, block)
	}
	return err
}

func closeChain(chain []*cst.Node, end int) {
	for _, n := range chain {
		if n.Span.End < end {
			n.Span.End = end
		}
	}
}

func (p *parser) parseWhile(label string) (*cst.Node, error) {
	kw := p.ts.Next()
	node := cst.Construct(syntax.NodeWhile, kw.Span)
	node.Op = kw.Text
	node.Name = label

	if err := p.conditionAndBlock(node); err != nil {
		return node, err
	}
	if err := p.continueBlock(node); err != nil {
		return node, err
	}
	return node, nil
}

func (p *parser) continueBlock(node *cst.Node) error {
	if !p.ts.Peek().IsWord("continue") || !p.ts.PeekSecond().IsOp("{") {
		return nil
	}
	p.ts.Next()
	block, err := p.parseBlock()
	if block != nil {
		node.Children = append(node.Children, block)
		node.Span = extend(node.Span, block)
	}
	return err
}

// parseFor parses C-style for loops and foreach loops over a list.
func (p *parser) parseFor(label string) (*cst.Node, error) {
	kw := p.ts.Next()

	var loopVar *cst.Node
	switch tok := p.ts.Peek(); {
	case tok.Kind == syntax.TokIdentifier && isDeclarator(tok.Text):
		p.ts.Next()
		v := p.ts.Peek()
		if v.Kind != syntax.TokVariable {
			return nil, syntax.NewSyntaxError("loop variable", v)
		}
		p.ts.Next()
		loopVar = cst.Construct(syntax.NodeDeclaration, tok.Span.Cover(v.Span), variable(v))
		loopVar.Op = tok.Text
	case tok.Kind == syntax.TokVariable && p.ts.PeekSecond().IsOp("("):
		p.ts.Next()
		loopVar = variable(tok)
	}

	open, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}

	if loopVar == nil {
		var init *cst.Node
		if !p.ts.Peek().IsOp(";") && !p.ts.Peek().IsOp(")") {
			init, err = p.parseExpr()
			if err != nil {
				return init, err
			}
		}
		if p.ts.Peek().IsOp(";") {
			return p.parseCStyleFor(kw, label, open, init)
		}
		if init == nil {
			init = cst.Construct(syntax.NodeList, syntax.Span{Start: open.Span.End, End: open.Span.End})
		}
		return p.finishForeach(kw, label, nil, init)
	}

	var list *cst.Node
	if closing := p.ts.Peek(); closing.IsOp(")") {
		list = cst.Construct(syntax.NodeList, syntax.Span{Start: open.Span.End, End: closing.Span.Start})
	} else if list, err = p.parseExpr(); err != nil {
		return list, err
	}
	return p.finishForeach(kw, label, loopVar, list)
}

func (p *parser) finishForeach(kw syntax.Token, label string, loopVar, list *cst.Node) (*cst.Node, error) {
	if _, err := p.expectOp(")"); err != nil {
		return list, err
	}
	node := cst.Construct(syntax.NodeForeach, kw.Span)
	node.Op = kw.Text
	node.Name = label
	if loopVar != nil {
		node.Children = append(node.Children, loopVar)
	}
	node.Children = append(node.Children, list)

	body, err := p.parseBlock()
	if body != nil {
		node.Children = append(node.Children, body)
		node.Span = extend(node.Span, body)
	}
	if err != nil {
		return node, err
	}
	return node, p.continueBlock(node)
}

func (p *parser) parseCStyleFor(kw syntax.Token, label string, open syntax.Token, init *cst.Node) (*cst.Node, error) {
	node := cst.Construct(syntax.NodeFor, kw.Span)
	node.Op = kw.Text
	node.Name = label

	init = orEmpty(init, open.Span.End)
	first, _ := p.expectOp(";")
	cond, err := p.optionalExpr(";", first.Span.End)
	if err != nil {
		return cond, err
	}
	second, err := p.expectOp(";")
	if err != nil {
		return cond, err
	}
	step, err := p.optionalExpr(")", second.Span.End)
	if err != nil {
		return step, err
	}
	if _, err := p.expectOp(")"); err != nil {
		return step, err
	}

	node.Children = append(node.Children, init, cond, step)
	body, err := p.parseBlock()
	if body != nil {
		node.Children = append(node.Children, body)
		node.Span = extend(node.Span, body)
	}
	return node, err
}

// optionalExpr parses an expression unless the next token is stop.
func (p *parser) optionalExpr(stop string, at int) (*cst.Node, error) {
	if p.ts.Peek().IsOp(stop) {
		return orEmpty(nil, at), nil
	}
	return p.parseExpr()
}

func orEmpty(n *cst.Node, at int) *cst.Node {
	if n != nil {
		return n
	}
	return cst.Construct(syntax.NodeEmpty, syntax.Span{Start: at, End: at})
}

// parseLabeled parses "LABEL:" followed by a loop or bare block. It
// reports nil without consuming anything when the label does not precede
// one of those.
func (p *parser) parseLabeled() (*cst.Node, error) {
	third := p.ts.PeekThird()
	loop := third.Kind == syntax.TokIdentifier &&
		(third.Text == "while" || third.Text == "until" || third.Text == "for" || third.Text == "foreach")
	if !loop && !third.IsOp("{") {
		return nil, nil
	}

	label := p.ts.Next()
	p.ts.Next()

	switch third.Text {
	case "while", "until":
		node, err := p.parseWhile(label.Text)
		node.Span = node.Span.Cover(label.Span)
		return node, err
	case "for", "foreach":
		node, err := p.parseFor(label.Text)
		if node != nil {
			node.Span = node.Span.Cover(label.Span)
		}
		return node, err
	}

	block, err := p.parseBlock()
	if block != nil {
		block.Name = label.Text
		block.Span = block.Span.Cover(label.Span)
	}
	return block, err
}
