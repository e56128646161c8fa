package parser

import (
	"context"
	"io"

	"github.com/mfriedlander/ledgerd/ast"
)

// Parse parses a Beancount file from an io.Reader.
func Parse(ctx context.Context, r io.Reader) (*ast.AST, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytesWithFilename(ctx, "", data)
}

// ParseString parses AST from a string.
func ParseString(ctx context.Context, str string) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", []byte(str))
}

// MustParseString parses AST from a string, panicking on error.
// Intended for use in tests and examples where error handling is not needed.
func MustParseString(ctx context.Context, str string) *ast.AST {
	tree, err := ParseString(ctx, str)
	if err != nil {
		panic(err)
	}
	return tree
}

// ParseBytes parses AST from bytes.
func ParseBytes(ctx context.Context, data []byte) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", data)
}

// ParseBytesWithFilename parses AST from bytes with a filename for position tracking.
// The filename will be included in position information in the AST for better error reporting.
func ParseBytesWithFilename(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	// Check for cancellation before starting
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	lex := NewLexer(data, filename)
	tokens, err := lex.ScanAll()
	if err != nil {
		return nil, NewParseErrorWithSource(filename, err, data)
	}

	p := NewParser(data, tokens, filename, lex.Interner())

	tree, err := p.parseAST()
	if err != nil {
		return nil, err
	}

	if err := ast.ApplyPushPopDirectives(tree); err != nil {
		return nil, err
	}

	return tree, ast.SortDirectives(tree)
}

// parseAST is the top-level driving loop. It consumes tokens one directive
// (or piece of trivia) at a time, routing each to the matching sub-parser and
// assembling the results into an *ast.AST.
func (p *Parser) parseAST() (*ast.AST, error) {
	tree := &ast.AST{}

	for !p.isAtEnd() {
		tok := p.peek()

		switch tok.Type {
		case NEWLINE:
			tree.BlankLines = append(tree.BlankLines, &ast.BlankLine{Pos: tokenPosition(tok, p.filename)})
			p.advance()

		case COMMENT:
			tree.Comments = append(tree.Comments, p.parseComment())

		case OPTION:
			opt, err := p.parseOption()
			if err != nil {
				return nil, err
			}
			tree.Options = append(tree.Options, opt)

		case INCLUDE:
			inc, err := p.parseInclude()
			if err != nil {
				return nil, err
			}
			tree.Includes = append(tree.Includes, inc)

		case PLUGIN:
			plugin, err := p.parsePlugin()
			if err != nil {
				return nil, err
			}
			tree.Plugins = append(tree.Plugins, plugin)

		case PUSHTAG:
			pushtag, err := p.parsePushtag()
			if err != nil {
				return nil, err
			}
			tree.Pushtags = append(tree.Pushtags, pushtag)

		case POPTAG:
			poptag, err := p.parsePoptag()
			if err != nil {
				return nil, err
			}
			tree.Poptags = append(tree.Poptags, poptag)

		case PUSHMETA:
			pushmeta, err := p.parsePushmeta()
			if err != nil {
				return nil, err
			}
			tree.Pushmetas = append(tree.Pushmetas, pushmeta)

		case POPMETA:
			popmeta, err := p.parsePopmeta()
			if err != nil {
				return nil, err
			}
			tree.Popmetas = append(tree.Popmetas, popmeta)

		case DATE:
			dir, err := p.parseDateDirective()
			if err != nil {
				return nil, err
			}
			tree.Directives = append(tree.Directives, dir)

		default:
			return nil, p.error("unexpected token %s", tok.Type)
		}
	}

	return tree, nil
}

// parseDateDirective parses a DATE token followed by either a directive
// keyword (balance, open, close, ...) or a transaction header, dispatching
// to the matching sub-parser. A bare date with no recognized keyword is
// assumed to start a transaction, matching Beancount's grammar where
// transactions have no dedicated keyword requirement.
func (p *Parser) parseDateDirective() (ast.Directive, error) {
	pos := p.tokenPositionFromPeek()

	date, err := p.parseDate()
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case BALANCE:
		return p.parseBalance(pos, date)
	case OPEN:
		return p.parseOpen(pos, date)
	case CLOSE:
		return p.parseClose(pos, date)
	case COMMODITY:
		return p.parseCommodity(pos, date)
	case PAD:
		return p.parsePad(pos, date)
	case NOTE:
		return p.parseNote(pos, date)
	case DOCUMENT:
		return p.parseDocument(pos, date)
	case PRICE:
		return p.parsePrice(pos, date)
	case EVENT:
		return p.parseEvent(pos, date)
	case CUSTOM:
		return p.parseCustom(pos, date)
	default:
		return p.parseTransaction(pos, date)
	}
}
