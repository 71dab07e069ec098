package quote

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// TokenSource is the token stream the operator parser reads from.
type TokenSource interface {
	Peek() syntax.Token
	Next() syntax.Token

	// Slice returns the source text between two offsets.
	Slice(start, end int) string
}

// statementKeywords end a '#'-delimited word list.
//
//nolint:gochecknoglobals // Read-only lookup table.
var statementKeywords = map[string]bool{
	"use": true, "my": true, "our": true, "sub": true, "package": true,
	"if": true, "while": true, "for": true, "return": true,
}

// Parser resolves one quote-like operator at a time.
type Parser struct {
	src TokenSource
}

// NewParser creates a parser reading from src.
func NewParser(src TokenSource) *Parser {
	return &Parser{src: src}
}

// IsOperator reports whether word is a quote-like operator this parser handles.
func IsOperator(word string) bool {
	switch word {
	case "q", "qq", "qw", "qr", "qx", "m":
		return true
	default:
		return false
	}
}

// body is the accumulated content of one quote body.
type body struct {
	text strings.Builder
	end  int

	// leftover is text after the closing delimiter inside the closing token.
	leftover string
}

// Parse resolves the operator op whose delimiter token delim has already
// been consumed from the source.
func (p *Parser) Parse(op, delim syntax.Token) (*syntax.Node, error) {
	switch op.Text {
	case "q", "qq", "qw", "qr", "qx", "m":
	case "s":
		return nil, syntax.NewError(syntax.ErrSyntax, op.Span,
			"substitution must be tokenized before quote parsing")
	default:
		return nil, syntax.NewError(syntax.ErrSyntax, op.Span, "unknown quote operator %q", op.Text)
	}
	if delim.Text == "" || delim.IsEOF() {
		return nil, syntax.NewSyntaxError("quote delimiter", delim)
	}

	open := delim.Text[0]
	if open == '#' {
		return p.parseWords(op, delim)
	}

	exact := op.Text == "m" || op.Text == "qr"
	b, err := p.scanBody(delim, NewDelimiter(open), exact)
	if err != nil {
		return nil, err
	}
	if b.leftover != "" && !(exact && leadingAlpha(b.leftover) == b.leftover) {
		return nil, syntax.NewError(syntax.ErrSyntax, syntax.Span{Start: b.end, End: b.end},
			"unexpected %q after closing delimiter", b.leftover)
	}

	content := b.text.String()
	span := syntax.Span{Start: op.Span.Start, End: b.end}

	if exact {
		mods := b.leftover
		mods, span.End = p.modifiers(mods, span.End)
		node := syntax.NewNode(syntax.NodeRegex, span)
		node.Op = op.Text
		node.Regex = &syntax.RegexAttrs{
			Pattern:         string(open) + content + string(ClosingDelimiter(open)),
			Modifiers:       mods,
			HasEmbeddedCode: HasEmbeddedCode(content),
		}
		return node, nil
	}

	return build(op.Text, content, span), nil
}

// scanBody consumes tokens up to and including the closing delimiter.
func (p *Parser) scanBody(delim syntax.Token, d Delimiter, exact bool) (*body, error) {
	b := &body{end: delim.Span.End}
	d.Depth = 1
	escaped := false

	// A multi-byte delimiter token (q'abc' lexes as one string token)
	// contributes its remainder as the first fragment.
	if rest := delim.Text[1:]; rest != "" {
		done, err := b.feed(rest, delim.Span.Start+1, &d, &escaped)
		if err != nil || done {
			return b, err
		}
	}

	prevEnd := delim.Span.End
	for {
		tok := p.src.Peek()
		if tok.IsEOF() {
			return nil, syntax.NewSyntaxError("closing delimiter "+string(d.Close), tok)
		}
		p.src.Next()

		if tok.Span.Start > prevEnd {
			if exact {
				b.text.WriteString(p.src.Slice(prevEnd, tok.Span.Start))
			} else if b.text.Len() > 0 {
				b.text.WriteByte(' ')
			}
			escaped = false
		}
		prevEnd = tok.Span.End
		b.end = tok.Span.End

		done, err := b.feed(tok.Text, tok.Span.Start, &d, &escaped)
		if err != nil {
			return nil, err
		}
		if done {
			return b, nil
		}
	}
}

// feed appends one fragment, tracking depth. It reports true once the
// closing delimiter has been seen.
func (b *body) feed(text string, start int, d *Delimiter, escaped *bool) (bool, error) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if *escaped {
			*escaped = false
			b.text.WriteByte(c)
			continue
		}
		switch {
		case c == '\\':
			*escaped = true
		case d.Paired() && c == d.Open:
			d.Depth++
			if d.Depth > MaxDepth {
				return false, nestingError(start + i)
			}
		case c == d.Close:
			d.Depth--
			if d.Depth == 0 {
				b.leftover = text[i+1:]
				b.end = start + i + 1
				return true, nil
			}
		}
		b.text.WriteByte(c)
	}
	return false, nil
}

// modifiers consumes alphabetic tokens directly after the closing delimiter.
func (p *Parser) modifiers(mods string, end int) (string, int) {
	for {
		tok := p.src.Peek()
		if tok.Kind != syntax.TokIdentifier || tok.Span.Start != end {
			return mods, end
		}
		if leadingAlpha(tok.Text) != tok.Text {
			return mods, end
		}
		p.src.Next()
		mods += tok.Text
		end = tok.Span.End
	}
}

// parseWords handles '#' delimiters, which the lexer cannot reliably close
// because '#' also starts a comment. Words are identifier and number tokens
// up to ';' or the next statement keyword.
func (p *Parser) parseWords(op, delim syntax.Token) (*syntax.Node, error) {
	var words []string
	end := delim.Span.End
	for {
		tok := p.src.Peek()
		if tok.IsEOF() || tok.IsOp(";") {
			break
		}
		if tok.Kind == syntax.TokIdentifier && statementKeywords[tok.Text] {
			break
		}
		if tok.Kind != syntax.TokIdentifier && tok.Kind != syntax.TokNumber {
			break
		}
		p.src.Next()
		words = append(words, tok.Text)
		end = tok.Span.End
	}

	span := syntax.Span{Start: op.Span.Start, End: end}
	content := strings.Join(words, " ")
	if op.Text == "m" || op.Text == "qr" {
		node := syntax.NewNode(syntax.NodeRegex, span)
		node.Op = op.Text
		node.Regex = &syntax.RegexAttrs{Pattern: "#" + content + "#", HasEmbeddedCode: HasEmbeddedCode(content)}
		return node, nil
	}
	return build(op.Text, content, span), nil
}

func build(op, content string, span syntax.Span) *syntax.Node {
	switch op {
	case "qw":
		node := syntax.NewNode(syntax.NodeWordList, span)
		node.Op = op
		for _, word := range strings.Fields(content) {
			child := syntax.NewNode(syntax.NodeString, span)
			child.String = &syntax.StringAttrs{Value: word}
			node.Children = append(node.Children, child)
		}
		return node
	case "qx":
		node := syntax.NewNode(syntax.NodeCommand, span)
		node.Op = op
		node.String = &syntax.StringAttrs{Value: content, Interpolated: true}
		return node
	default:
		node := syntax.NewNode(syntax.NodeString, span)
		node.Op = op
		node.String = &syntax.StringAttrs{Value: content, Interpolated: op == "qq"}
		return node
	}
}
