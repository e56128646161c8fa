package parser

import (
	"strings"

	"github.com/mfriedlander/ledgerd/ast"
)

// Parser drives a hand-written recursive-descent parse over a pre-lexed
// token stream. Unlike the lexer, which is forward-only, the parser needs
// lookahead (peek/peekAhead) to disambiguate constructs like payee vs.
// narration, or metadata vs. the start of a new directive.
type Parser struct {
	pos      int
	source   []byte
	filename string
	tokens   []Token
	interner *Interner
}

// NewParser creates a parser over an already-lexed token stream. The caller
// is expected to have produced tokens and interner from the same Lexer over
// the same source.
func NewParser(source []byte, tokens []Token, filename string, interner *Interner) *Parser {
	return &Parser{
		source:   source,
		filename: filename,
		tokens:   tokens,
		interner: interner,
	}
}

// finishDirective attaches a trailing inline comment and any indented
// metadata lines to a directive whose required fields have already been
// parsed. Every non-transaction directive parser ends by calling this.
func (p *Parser) finishDirective(d ast.Directive) error {
	ownerLine := d.Position().Line

	if !p.isAtEnd() && p.peek().Type == COMMENT && p.peek().Line == ownerLine {
		d.SetComment(p.parseComment())
	}

	d.AddMetadata(p.parseMetadataFromLine(ownerLine)...)
	return nil
}

// parseComment consumes a COMMENT token and returns it as an *ast.Comment.
// The lexer folds a comment's trailing newline into the token itself so
// that content tokens always own their line; parseComment trims it back
// off so Content reflects only the comment text.
func (p *Parser) parseComment() *ast.Comment {
	tok := p.advance()
	pos := tokenPosition(tok, p.filename)

	text := tok.String(p.source)
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")

	return &ast.Comment{
		Pos:     pos,
		Content: text,
		Type:    ast.StandaloneComment,
	}
}
