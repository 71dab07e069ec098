package parser

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/lexer"
	"github.com/yaklabco/perlparse/pkg/quote"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// namedUnary builtins take at most one argument that binds tighter than
// comparison operators.
//
//nolint:gochecknoglobals // Read-only lookup table.
var namedUnary = map[string]bool{
	"defined": true, "ref": true, "scalar": true, "lc": true, "uc": true,
	"lcfirst": true, "ucfirst": true, "length": true, "chr": true, "ord": true,
	"int": true, "abs": true, "sqrt": true, "quotemeta": true, "exists": true,
	"delete": true, "each": true, "keys": true, "values": true, "shift": true,
	"pop": true, "undef": true, "lock": true, "exit": true, "sleep": true,
	"chdir": true, "rmdir": true, "readline": true, "close": true, "hex": true,
	"oct": true, "fc": true, "caller": true, "umask": true, "localtime": true,
}

func isDeclarator(word string) bool {
	switch word {
	case "my", "our", "local", "state":
		return true
	default:
		return false
	}
}

func variable(tok syntax.Token) *cst.Node {
	n := syntax.NewNode(syntax.NodeVariable, tok.Span)
	n.Name = tok.Text
	return cst.Leaf(n)
}

func bareword(tok syntax.Token) *cst.Node {
	n := syntax.NewNode(syntax.NodeBareword, tok.Span)
	n.Name = tok.Text
	return cst.Leaf(n)
}

// startsTerm reports whether tok can begin an argument of a list
// operator called without parentheses.
func (p *parser) startsTerm(tok syntax.Token) bool {
	switch tok.Kind {
	case syntax.TokVariable, syntax.TokNumber, syntax.TokVersion, syntax.TokString,
		syntax.TokInterpolatedString, syntax.TokCommand, syntax.TokRegex,
		syntax.TokSubstitution, syntax.TokTransliteration, syntax.TokReadline,
		syntax.TokHeredocPlaceholder:
		return true
	case syntax.TokIdentifier:
		return !isModifier(tok.Text) && !isWordOperator(tok.Text) || tok.Text == "not"
	case syntax.TokOperator:
		switch tok.Text {
		case "(", "[", "{", "\\", "-", "!", "+", "$", "@", "%", "&", "$#", "++", "--":
			return true
		}
	}
	return false
}

// startsUserArgs is the stricter test for barewords that are not known
// builtins: only unambiguous terms make them calls.
func startsUserArgs(tok syntax.Token) bool {
	switch tok.Kind {
	case syntax.TokVariable, syntax.TokNumber, syntax.TokString,
		syntax.TokInterpolatedString, syntax.TokHeredocPlaceholder:
		return true
	case syntax.TokIdentifier:
		return quote.IsOperator(tok.Text)
	case syntax.TokOperator:
		return tok.Text == "\\"
	}
	return false
}

// parsePostfix parses a primary term followed by subscripts, arrows and
// calls.
func (p *parser) parsePostfix() (*cst.Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return n, err
	}
	for {
		tok := p.ts.Peek()
		switch {
		case tok.IsOp("->"):
			p.ts.Next()
			n, err = p.parseArrow(n)
		case (tok.IsOp("[") || tok.IsOp("{")) && subscriptable(n, tok):
			n, err = p.parseSubscript(n)
		case tok.IsOp("(") && callable(n) && tok.Span.Start == n.Span.End:
			n, err = p.callWith(n, "->()")
		default:
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// subscriptable reports whether an opening bracket right after n indexes
// into it rather than starting something new.
func subscriptable(n *cst.Node, tok syntax.Token) bool {
	u := n.Unwrap()
	if u.IsConstruct(syntax.NodeList) && u.Op == "()" {
		return tok.IsOp("[")
	}
	if tok.Span.Start != n.Span.End {
		return false
	}
	switch {
	case u.Rule == cst.RuleLeaf && u.Leaf.Kind == syntax.NodeVariable:
		sigil := u.Leaf.Name[0]
		return sigil == '$' || sigil == '@' || sigil == '%'
	case u.IsConstruct(syntax.NodeSubscript), u.IsConstruct(syntax.NodeDeref):
		return true
	case u.IsConstruct(syntax.NodeCall) && u.Op == "->()":
		return true
	}
	return false
}

// callable reports whether "(" directly after n calls a code reference,
// as in $h{cb}(1) or $code->()().
func callable(n *cst.Node) bool {
	u := n.Unwrap()
	return u.IsConstruct(syntax.NodeSubscript) || (u.IsConstruct(syntax.NodeCall) && u.Op == "->()")
}

func (p *parser) parseArrow(base *cst.Node) (*cst.Node, error) {
	tok := p.ts.Peek()
	switch {
	case tok.IsOp("[") || tok.IsOp("{"):
		return p.parseSubscript(base)
	case tok.IsOp("("):
		return p.callWith(base, "->()")
	case tok.Kind == syntax.TokIdentifier || (tok.Kind == syntax.TokVariable && tok.Text[0] == '$'):
		p.ts.Next()
		n := cst.Construct(syntax.NodeMethodCall, base.Span.Cover(tok.Span), base)
		n.Name = tok.Text
		if next := p.ts.Peek(); next.IsOp("(") {
			args, end, err := p.parenArgs()
			n.Children = append(n.Children, args...)
			n.Span.End = end
			return n, err
		}
		return n, nil
	case isCastSigil(tok.Text) && p.ts.PeekSecond().IsOp("*"):
		p.ts.Next()
		star := p.ts.Next()
		n := cst.Construct(syntax.NodeDeref, base.Span.Cover(star.Span), base)
		n.Op = tok.Text + "*"
		return n, nil
	}
	return base, syntax.NewSyntaxError("method name or subscript after '->'", tok)
}

func isCastSigil(text string) bool {
	switch text {
	case "$", "@", "%", "&", "$#", "*":
		return true
	default:
		return false
	}
}

func (p *parser) callWith(target *cst.Node, op string) (*cst.Node, error) {
	args, end, err := p.parenArgs()
	n := cst.Construct(syntax.NodeCall, target.Span, append([]*cst.Node{target}, args...)...)
	n.Op = op
	n.Span.End = end
	return n, err
}

func (p *parser) parseSubscript(base *cst.Node) (*cst.Node, error) {
	open := p.ts.Next()
	closing := "]"
	if open.Text == "{" {
		closing = "}"
	}

	var index *cst.Node
	var err error
	switch key, after := p.ts.Peek(), p.ts.PeekSecond(); {
	case open.Text == "{" && key.Kind == syntax.TokIdentifier && after.IsOp("}"):
		p.ts.Next()
		index = bareword(key)
	case key.IsOp(closing):
		err = syntax.NewSyntaxError("subscript", key)
	default:
		index, err = p.parseExpr()
	}

	n := cst.Construct(syntax.NodeSubscript, extend(base.Span, index), base, index)
	n.Op = open.Text
	if err != nil {
		return n, err
	}
	end, err := p.expectOp(closing)
	if err != nil {
		return n, err
	}
	n.Span.End = end.Span.End
	return n, nil
}

// parenArgs parses "( args )" and returns the flattened arguments and the
// offset after the closing parenthesis.
func (p *parser) parenArgs() ([]*cst.Node, int, error) {
	open := p.ts.Next()
	if closing := p.ts.Peek(); closing.IsOp(")") {
		p.ts.Next()
		return nil, closing.Span.End, nil
	}
	args, err := p.parseExpr()
	if err != nil {
		return flatten(args), open.Span.End, err
	}
	closing, err := p.expectOp(")")
	if err != nil {
		return flatten(args), open.Span.End, err
	}
	return flatten(args), closing.Span.End, nil
}

// flatten returns the elements of an unparenthesized comma list, or n
// itself.
func flatten(n *cst.Node) []*cst.Node {
	if n == nil {
		return nil
	}
	if u := n.Unwrap(); u.IsConstruct(syntax.NodeList) && u.Op == "," {
		return u.Children
	}
	return []*cst.Node{n}
}

// listArgs parses the arguments of a list operator called without
// parentheses.
func (p *parser) listArgs() ([]*cst.Node, error) {
	args, err := p.parseCommaList()
	return flatten(args), err
}

func (p *parser) parsePrimary() (*cst.Node, error) {
	tok := p.ts.Peek()
	switch tok.Kind {
	case syntax.TokVariable:
		p.ts.Next()
		if tok.Text[0] == '&' && p.ts.Peek().IsOp("(") {
			args, end, err := p.parenArgs()
			n := cst.Construct(syntax.NodeCall, syntax.Span{Start: tok.Span.Start, End: end}, args...)
			n.Name = tok.Text[1:]
			n.Op = "&"
			return n, err
		}
		return variable(tok), nil

	case syntax.TokNumber, syntax.TokVersion:
		p.ts.Next()
		n := syntax.NewNode(syntax.NodeNumber, tok.Span)
		n.Value = tok.Text
		return cst.Leaf(n), nil

	case syntax.TokString, syntax.TokInterpolatedString:
		p.ts.Next()
		n := syntax.NewNode(syntax.NodeString, tok.Span)
		n.String = &syntax.StringAttrs{Value: unquote(tok.Text), Interpolated: tok.Kind == syntax.TokInterpolatedString}
		return cst.Leaf(n), nil

	case syntax.TokCommand:
		p.ts.Next()
		n := syntax.NewNode(syntax.NodeCommand, tok.Span)
		n.String = &syntax.StringAttrs{Value: unquote(tok.Text), Interpolated: true}
		return cst.Leaf(n), nil

	case syntax.TokHeredocPlaceholder:
		p.ts.Next()
		return cst.Placeholder(tok), nil

	case syntax.TokRegex, syntax.TokSubstitution, syntax.TokTransliteration:
		p.ts.Next()
		return p.patternLiteral(tok)

	case syntax.TokReadline:
		p.ts.Next()
		n := syntax.NewNode(syntax.NodeReadline, tok.Span)
		n.Name = unquote(tok.Text)
		return cst.Leaf(n), nil

	case syntax.TokError:
		p.ts.Next()
		return nil, syntax.NewError(syntax.ErrLexical, tok.Span, "unexpected %q", tok.Text)

	case syntax.TokIdentifier:
		return p.parseWord()

	case syntax.TokOperator:
		return p.parseOperatorTerm(tok)
	}
	return nil, syntax.NewSyntaxError("expression", tok)
}

func unquote(text string) string {
	if len(text) < 2 {
		return ""
	}
	return text[1 : len(text)-1]
}

func (p *parser) patternLiteral(tok syntax.Token) (*cst.Node, error) {
	switch tok.Kind {
	case syntax.TokSubstitution:
		parts, err := quote.ExtractSubstitution(tok.Text)
		if err != nil {
			return nil, syntax.NewError(syntax.ErrSyntax, tok.Span, "%v", err)
		}
		n := syntax.NewNode(syntax.NodeSubstitution, tok.Span)
		n.Op = "s"
		n.Subst = &syntax.SubstAttrs{Pattern: parts.Pattern, Replacement: parts.Replacement, Modifiers: parts.Modifiers}
		return cst.Leaf(n), nil

	case syntax.TokTransliteration:
		parts, err := quote.ExtractTransliteration(tok.Text)
		if err != nil {
			return nil, syntax.NewError(syntax.ErrSyntax, tok.Span, "%v", err)
		}
		n := syntax.NewNode(syntax.NodeTransliteration, tok.Span)
		n.Op = "y"
		if strings.HasPrefix(tok.Text, "tr") {
			n.Op = "tr"
		}
		n.Translit = &syntax.TranslitAttrs{SearchList: parts.SearchList, ReplaceList: parts.ReplaceList, Modifiers: parts.Modifiers}
		return cst.Leaf(n), nil
	}

	parts, err := quote.ExtractRegexParts(tok.Text)
	if err != nil {
		return nil, syntax.NewError(syntax.ErrSyntax, tok.Span, "%v", err)
	}
	n := syntax.NewNode(syntax.NodeRegex, tok.Span)
	n.Op = "m"
	n.Regex = &syntax.RegexAttrs{
		Pattern:         parts.Pattern(),
		Modifiers:       parts.Modifiers,
		HasEmbeddedCode: quote.HasEmbeddedCode(parts.Body),
	}
	return cst.Leaf(n), nil
}

func (p *parser) parseOperatorTerm(tok syntax.Token) (*cst.Node, error) {
	switch tok.Text {
	case "(":
		p.ts.Next()
		if closing := p.ts.Peek(); closing.IsOp(")") {
			p.ts.Next()
			n := cst.Construct(syntax.NodeList, tok.Span.Cover(closing.Span))
			n.Op = "()"
			return n, nil
		}
		inner, err := p.parseExpr()
		if err != nil {
			return inner, err
		}
		closing, err := p.expectOp(")")
		if err != nil {
			return inner, err
		}
		return parenList(inner, tok.Span.Cover(closing.Span)), nil

	case "[":
		return p.anonymous(syntax.NodeArrayRef, "]")

	case "{":
		return p.anonymous(syntax.NodeHashRef, "}")

	case "*":
		if name := p.ts.PeekSecond(); name.Kind == syntax.TokIdentifier && name.Span.Start == tok.Span.End {
			p.ts.Next()
			p.ts.Next()
			n := syntax.NewNode(syntax.NodeVariable, tok.Span.Cover(name.Span))
			n.Name = "*" + name.Text
			return cst.Leaf(n), nil
		}
		if p.ts.PeekSecond().IsOp("{") {
			return p.parseCast()
		}

	case "$", "@", "%", "&", "$#":
		return p.parseCast()
	}
	return nil, syntax.NewSyntaxError("expression", tok)
}

// parenList turns the contents of parentheses into a List with Op "()".
// A bare comma list is reused; anything else, including another
// parenthesized list, becomes the single element.
func parenList(inner *cst.Node, span syntax.Span) *cst.Node {
	if u := inner.Unwrap(); u.IsConstruct(syntax.NodeList) && u.Op == "," {
		u.Op = "()"
		u.Span = span
		return u
	}
	n := cst.Construct(syntax.NodeList, span, inner)
	n.Op = "()"
	return n
}

func (p *parser) anonymous(kind syntax.NodeKind, closing string) (*cst.Node, error) {
	open := p.ts.Next()
	n := cst.Construct(kind, open.Span)
	if end := p.ts.Peek(); end.IsOp(closing) {
		p.ts.Next()
		n.Span = n.Span.Cover(end.Span)
		return n, nil
	}
	items, err := p.parseExpr()
	n.Children = flatten(items)
	if err != nil {
		return n, err
	}
	end, err := p.expectOp(closing)
	if err != nil {
		return n, err
	}
	n.Span = n.Span.Cover(end.Span)
	return n, nil
}

// parseCast parses sigil casts: $$ref, @{$ref}, %$ref, &$code(...),
// $#{$ref}, *{"name"}.
func (p *parser) parseCast() (*cst.Node, error) {
	sigil := p.ts.Next()
	n := cst.Construct(syntax.NodeDeref, sigil.Span)
	n.Op = sigil.Text

	var inner *cst.Node
	var err error
	if next := p.ts.Peek(); next.IsOp("{") {
		p.ts.Next()
		inner, err = p.parseExpr()
		if err == nil {
			var end syntax.Token
			end, err = p.expectOp("}")
			n.Span.End = end.Span.End
		}
	} else {
		inner, err = p.parsePrimary()
		if inner != nil {
			n.Span = n.Span.Cover(inner.Span)
		}
	}
	if inner != nil {
		n.Children = append(n.Children, inner)
	}
	if err != nil {
		return n, err
	}

	if sigil.Text == "&" && p.ts.Peek().IsOp("(") {
		return p.callWith(n, "&")
	}
	return n, nil
}

// parseWord parses a term that starts with a bareword: keywords that
// build terms, quote-like operators, calls and plain barewords.
func (p *parser) parseWord() (*cst.Node, error) {
	tok := p.ts.Peek()
	second := p.ts.PeekSecond()
	word := tok.Text

	if second.IsOp("=>") {
		p.ts.Next()
		return bareword(tok), nil
	}

	switch word {
	case "my", "our", "local", "state":
		return p.parseDeclaration()
	case "sub":
		return p.parseSub()
	case "do", "eval":
		if second.IsOp("{") {
			p.ts.Next()
			block, err := p.parseBlock()
			n := cst.Construct(syntax.NodeCall, extend(tok.Span, block), block)
			n.Name = word
			return n, err
		}
	case "return":
		return p.parseReturn()
	case "last", "next", "redo":
		return p.parseLoopControl()
	case "map", "grep", "sort":
		if second.IsOp("{") {
			return p.parseBlockCall()
		}
	case "print", "printf", "say":
		return p.parsePrint()
	case "__PACKAGE__", "__FILE__", "__LINE__", "__SUB__":
		p.ts.Next()
		return bareword(tok), nil
	}

	if quote.IsOperator(word) && quote.OpensBody(p.ts.Source()[second.Span.Start:], second.Span.Start == tok.Span.End) && !second.IsEOF() {
		op := p.ts.Next()
		delim := p.ts.Next()
		n, err := p.quotes.Parse(op, delim)
		if err != nil {
			return nil, err
		}
		return cst.Leaf(n), nil
	}

	p.ts.Next()
	switch {
	case second.IsOp("("):
		return p.namedCall(tok)
	case second.IsOp("->") || second.IsOp("::"):
		return bareword(tok), nil
	case namedUnary[word]:
		call := cst.Construct(syntax.NodeCall, tok.Span)
		call.Name = word
		if !p.startsTerm(p.ts.Peek()) {
			return call, nil
		}
		arg, err := p.parseBinary(namedUnaryLevel)
		if arg != nil {
			call.Children = append(call.Children, arg)
			call.Span = extend(call.Span, arg)
		}
		return call, err
	case lexer.IsTermWord(word):
		call := cst.Construct(syntax.NodeCall, tok.Span)
		call.Name = word
		if !p.startsTerm(p.ts.Peek()) {
			return call, nil
		}
		args, err := p.listArgs()
		call.Children = args
		call.Span = extend(call.Span, args...)
		return call, err
	case startsUserArgs(p.ts.Peek()),
		p.ts.Peek().Kind == syntax.TokIdentifier && p.ts.PeekSecond().IsOp("=>"):
		call := cst.Construct(syntax.NodeCall, tok.Span)
		call.Name = word
		args, err := p.listArgs()
		call.Children = args
		call.Span = extend(call.Span, args...)
		return call, err
	}
	return bareword(tok), nil
}

// namedCall parses "name(args)" after the name has been consumed.
func (p *parser) namedCall(name syntax.Token) (*cst.Node, error) {
	args, end, err := p.parenArgs()
	n := cst.Construct(syntax.NodeCall, syntax.Span{Start: name.Span.Start, End: end}, args...)
	n.Name = name.Text
	return n, err
}

func (p *parser) parseDeclaration() (*cst.Node, error) {
	kw := p.ts.Next()
	n := cst.Construct(syntax.NodeDeclaration, kw.Span)
	n.Op = kw.Text

	var target *cst.Node
	var err error
	switch next := p.ts.Peek(); {
	case next.IsOp("("):
		target, err = p.parsePrimary()
	case kw.Text == "local":
		target, err = p.parsePostfix()
	case next.Kind == syntax.TokVariable:
		p.ts.Next()
		target = variable(next)
	default:
		err = syntax.NewSyntaxError("variable after "+kw.Text, next)
	}
	if target != nil {
		n.Children = append(n.Children, target)
		n.Span = extend(n.Span, target)
	}
	if err != nil {
		return n, err
	}

	// attributes such as my $x :shared
	for p.ts.Peek().IsOp(":") && p.ts.PeekSecond().Kind == syntax.TokIdentifier && p.ts.PeekSecond().Span.Start == p.ts.Peek().Span.End {
		p.ts.Next()
		attr := p.ts.Next()
		n.Span.End = attr.Span.End
	}
	return n, nil
}

func (p *parser) parseReturn() (*cst.Node, error) {
	kw := p.ts.Next()
	n := cst.Construct(syntax.NodeReturn, kw.Span)
	if !p.startsTerm(p.ts.Peek()) {
		return n, nil
	}
	value, err := p.parseCommaList()
	if value != nil {
		n.Children = append(n.Children, value)
		n.Span = extend(n.Span, value)
	}
	return n, err
}

func (p *parser) parseLoopControl() (*cst.Node, error) {
	kw := p.ts.Next()
	n := cst.Construct(syntax.NodeLoopControl, kw.Span)
	n.Op = kw.Text
	if label := p.ts.Peek(); label.Kind == syntax.TokIdentifier && isLabel(label.Text) {
		p.ts.Next()
		n.Name = label.Text
		n.Span = n.Span.Cover(label.Span)
	}
	return n, nil
}

// parseBlockCall parses map, grep and sort with a leading block.
func (p *parser) parseBlockCall() (*cst.Node, error) {
	kw := p.ts.Next()
	n := cst.Construct(syntax.NodeCall, kw.Span)
	n.Name = kw.Text

	block, err := p.parseBlock()
	if block != nil {
		n.Children = append(n.Children, block)
		n.Span = extend(n.Span, block)
	}
	if err != nil {
		return n, err
	}
	if isComma(p.ts.Peek()) {
		p.ts.Next()
	}
	if !p.startsTerm(p.ts.Peek()) {
		return n, nil
	}
	args, err := p.listArgs()
	n.Children = append(n.Children, args...)
	n.Span = extend(n.Span, args...)
	return n, err
}

// parsePrint parses print, printf and say. An explicit filehandle is
// stored as source text in Value.
func (p *parser) parsePrint() (*cst.Node, error) {
	kw := p.ts.Next()
	n := cst.Construct(syntax.NodeCall, kw.Span)
	n.Name = kw.Text

	if p.ts.Peek().IsOp("(") && p.ts.Peek().Span.Start == kw.Span.End {
		args, end, err := p.parenArgs()
		n.Children = args
		n.Span.End = end
		return n, err
	}

	fh, err := p.filehandle()
	if err != nil {
		return n, err
	}
	if fh.Len() > 0 {
		n.Value = p.ts.Slice(fh.Start, fh.End)
		n.Span = n.Span.Cover(fh)
	}
	if !p.startsTerm(p.ts.Peek()) {
		return n, nil
	}
	args, err := p.listArgs()
	n.Children = args
	n.Span = extend(n.Span, args...)
	return n, err
}

// filehandle consumes a leading filehandle: {expr}, a bareword such as
// STDERR, or a scalar directly followed by a term.
func (p *parser) filehandle() (syntax.Span, error) {
	tok, second := p.ts.Peek(), p.ts.PeekSecond()
	switch {
	case tok.IsOp("{"):
		p.ts.Next()
		if _, err := p.parseExpr(); err != nil {
			return syntax.Span{}, err
		}
		end, err := p.expectOp("}")
		if err != nil {
			return syntax.Span{}, err
		}
		return tok.Span.Cover(end.Span), nil
	case tok.Kind == syntax.TokIdentifier && isHandleName(tok.Text) &&
		(second.IsOp(";") || second.IsEOF() || startsUserArgs(second) || second.Kind == syntax.TokIdentifier && !isModifier(second.Text) && !isWordOperator(second.Text)):
		p.ts.Next()
		return tok.Span, nil
	case tok.Kind == syntax.TokVariable && tok.Text[0] == '$' && startsUserArgs(second) && second.Kind != syntax.TokIdentifier:
		p.ts.Next()
		return tok.Span, nil
	}
	return syntax.Span{}, nil
}

// isHandleName matches upper-case barewords such as STDERR or FH.
func isHandleName(word string) bool {
	hasLetter := false
	for i := 0; i < len(word); i++ {
		c := word[i]
		switch {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c == '_' || (c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}
