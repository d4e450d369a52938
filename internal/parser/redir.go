package parser

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/token"
)

// parseRedirList parses zero or more trailing redirections attached to
// a compound command or function definition (`({ ...; } > out`).
func (p *Parser) parseRedirList() ([]*ast.Redir, error) {
	var redirs []*ast.Redir
	for {
		t, err := p.cur()
		if err != nil {
			return nil, err
		}
		switch {
		case t.Kind == token.KindIoNumber:
			r, err := p.parseRedir(t.IoNumber)
			if err != nil {
				return nil, err
			}
			redirs = append(redirs, r)
		case t.Kind == token.KindOperator && isRedirOperator(t.Operator):
			r, err := p.parseRedir(-1)
			if err != nil {
				return nil, err
			}
			redirs = append(redirs, r)
		default:
			return redirs, nil
		}
	}
}

// parseRedir parses one redirection. fd is the explicit IoNumber prefix
// already lexed (-1 if none, meaning the body's default fd applies). The
// node is heap-allocated (*ast.Redir) specifically so that, for a
// here-document, internal/lexer.BindHeredocDelimiter can hold a stable
// pointer to it across the rest of this line's parsing: the lexer fills
// in its Content only later, when the following newline is reached and
// the body lines are read from the input stream (spec.md §4.2's
// "here-documents bound out of band").
func (p *Parser) parseRedir(fd int) (*ast.Redir, error) {
	startLoc := p.curLoc()
	if fd >= 0 {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	if t.Kind != token.KindOperator || !isRedirOperator(t.Operator) {
		return nil, errAt(t.Loc, "expected redirection operator")
	}
	op := t.Operator
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch op {
	case token.OpDLess, token.OpDLessDash:
		// The delimiter must be bound before advancing: advance() lexes
		// the next token eagerly, and if that token is the line's
		// newline the lexer resolves pending here-docs right there.
		t, err := p.cur()
		if err != nil {
			return nil, err
		}
		if t.Kind != token.KindWord {
			return nil, errAt(t.Loc, "expected here-document delimiter")
		}
		w, _ := t.Word.(*ast.Word)
		delim, quoted := lexer.DelimiterText(w)
		targetFd := fd
		if targetFd < 0 {
			targetFd = 0
		}
		redir := &ast.Redir{Fd: targetFd, Loc: startLoc, Body: ast.HereDoc{
			Delimiter: delim,
			StripTabs: op == token.OpDLessDash,
			Quoted:    quoted,
		}}
		p.lex.BindHeredocDelimiter(delim, quoted, redir)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return redir, nil

	case token.OpTLess:
		w, err := p.expectWordOperand("here-string operand")
		if err != nil {
			return nil, err
		}
		targetFd := fd
		if targetFd < 0 {
			targetFd = 0
		}
		return &ast.Redir{Fd: targetFd, Loc: startLoc, Body: ast.HereString{Word: w}}, nil

	case token.OpLessAnd, token.OpGreatAnd:
		w, err := p.expectWordOperand("duplication target")
		if err != nil {
			return nil, err
		}
		targetFd := fd
		if targetFd < 0 {
			if op == token.OpGreatAnd {
				targetFd = 1
			} else {
				targetFd = 0
			}
		}
		return &ast.Redir{Fd: targetFd, Loc: startLoc, Body: ast.DupRedir{Write: op == token.OpGreatAnd, Src: w}}, nil

	default:
		w, err := p.expectWordOperand("redirection target")
		if err != nil {
			return nil, err
		}
		var fro ast.FileRedirOp
		defaultFd := 1
		switch op {
		case token.OpLess:
			fro, defaultFd = ast.RedirRead, 0
		case token.OpGreat:
			fro, defaultFd = ast.RedirWrite, 1
		case token.OpDGreat:
			fro, defaultFd = ast.RedirAppend, 1
		case token.OpLessGreat:
			fro, defaultFd = ast.RedirReadWrite, 0
		case token.OpClobber:
			fro, defaultFd = ast.RedirClobber, 1
		}
		targetFd := fd
		if targetFd < 0 {
			targetFd = defaultFd
		}
		return &ast.Redir{Fd: targetFd, Loc: startLoc, Body: ast.FileRedir{Op: fro, Path: w}}, nil
	}
}

func (p *Parser) expectWordOperand(what string) (*ast.Word, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	if t.Kind != token.KindWord {
		return nil, errAt(t.Loc, "expected %s", what)
	}
	w, _ := t.Word.(*ast.Word)
	if err := p.advance(); err != nil {
		return nil, err
	}
	return w, nil
}
