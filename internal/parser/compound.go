package parser

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/token"
)

// parseGrouping parses `'{' compound_list '}'`.
func (p *Parser) parseGrouping() (ast.CompoundCommand, source.Location, error) {
	loc, err := p.expectReserved("{")
	if err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	body, err := p.parseList(false)
	if err != nil {
		return nil, source.Location{}, err
	}
	if _, err := p.expectReserved("}"); err != nil {
		return nil, source.Location{}, err
	}
	return &ast.Grouping{Body: body, Loc: loc}, loc, nil
}

// parseSubshell parses `'(' compound_list ')'`.
func (p *Parser) parseSubshell() (ast.CompoundCommand, source.Location, error) {
	loc, err := p.expectOperator(token.OpLParen)
	if err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	body, err := p.parseList(false)
	if err != nil {
		return nil, source.Location{}, err
	}
	if _, err := p.expectOperator(token.OpRParen); err != nil {
		return nil, source.Location{}, err
	}
	return &ast.Subshell{Body: body, Loc: loc}, loc, nil
}

// parseIf parses `if compound_list then compound_list else_part? fi`.
func (p *Parser) parseIf() (ast.CompoundCommand, source.Location, error) {
	loc, err := p.expectReserved("if")
	if err != nil {
		return nil, source.Location{}, err
	}
	cond, err := p.parseList(false)
	if err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	if _, err := p.expectReserved("then"); err != nil {
		return nil, source.Location{}, err
	}
	body, err := p.parseList(false)
	if err != nil {
		return nil, source.Location{}, err
	}
	node := &ast.If{Condition: cond, Body: body, Loc: loc}
	for {
		if err := p.skipLinebreak(); err != nil {
			return nil, source.Location{}, err
		}
		kw, ok := p.reservedWordAt()
		if !ok {
			return nil, source.Location{}, errAt(p.curLoc(), "expected \"elif\", \"else\" or \"fi\"")
		}
		switch kw {
		case "elif":
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			econd, err := p.parseList(false)
			if err != nil {
				return nil, source.Location{}, err
			}
			if err := p.skipLinebreak(); err != nil {
				return nil, source.Location{}, err
			}
			if _, err := p.expectReserved("then"); err != nil {
				return nil, source.Location{}, err
			}
			ebody, err := p.parseList(false)
			if err != nil {
				return nil, source.Location{}, err
			}
			node.Elifs = append(node.Elifs, ast.ElseIf{Condition: econd, Body: ebody})
			continue
		case "else":
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			eb, err := p.parseList(false)
			if err != nil {
				return nil, source.Location{}, err
			}
			node.Else = eb
			if err := p.skipLinebreak(); err != nil {
				return nil, source.Location{}, err
			}
			if _, err := p.expectReserved("fi"); err != nil {
				return nil, source.Location{}, err
			}
			return node, loc, nil
		case "fi":
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			return node, loc, nil
		default:
			return nil, source.Location{}, errAt(p.curLoc(), "expected \"elif\", \"else\" or \"fi\", found %q", kw)
		}
	}
}

func (p *Parser) curLoc() source.Location {
	t, _ := p.cur()
	return t.Loc
}

// parseFor parses `for name [;] linebreak do_group` and
// `for name linebreak in word* (; | newline) linebreak do_group`.
func (p *Parser) parseFor() (ast.CompoundCommand, source.Location, error) {
	loc, err := p.expectReserved("for")
	if err != nil {
		return nil, source.Location{}, err
	}
	t, err := p.cur()
	if err != nil {
		return nil, source.Location{}, err
	}
	if t.Kind != token.KindWord {
		return nil, source.Location{}, errAt(t.Loc, "expected name after \"for\"")
	}
	w, _ := t.Word.(*ast.Word)
	name, bare := bareWordText(w)
	if !bare || !isValidName(name) {
		return nil, source.Location{}, errAt(t.Loc, "invalid for-loop variable name")
	}
	if err := p.advance(); err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}

	node := &ast.For{Name: name, Loc: loc}
	if kw, ok := p.reservedWordAt(); ok && kw == "in" {
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
		for {
			t, err := p.cur()
			if err != nil {
				return nil, source.Location{}, err
			}
			if t.Kind != token.KindWord {
				break
			}
			w, _ := t.Word.(*ast.Word)
			node.Values = append(node.Values, w)
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
		}
		if node.Values == nil {
			node.Values = []*ast.Word{}
		}
		switch {
		case p.isOperator(token.OpSemi):
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
		case p.isOperator(token.OpNewline):
		default:
			return nil, source.Location{}, errAt(p.curLoc(), "expected \";\" or newline after for-loop value list")
		}
	} else if p.isOperator(token.OpSemi) {
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	body, err := p.parseDoGroup()
	if err != nil {
		return nil, source.Location{}, err
	}
	node.Body = body
	return node, loc, nil
}

// parseDoGroup parses `do compound_list done`.
func (p *Parser) parseDoGroup() (*ast.List, error) {
	if _, err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseList(false)
	if err != nil {
		return nil, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, err
	}
	if _, err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return body, nil
}

// parseWhileUntil returns a compound-command parser for `while`/`until
// compound_list do_group`, selected by until.
func (p *Parser) parseWhileUntil(until bool) func() (ast.CompoundCommand, source.Location, error) {
	return func() (ast.CompoundCommand, source.Location, error) {
		kw := "while"
		if until {
			kw = "until"
		}
		loc, err := p.expectReserved(kw)
		if err != nil {
			return nil, source.Location{}, err
		}
		cond, err := p.parseList(false)
		if err != nil {
			return nil, source.Location{}, err
		}
		if err := p.skipLinebreak(); err != nil {
			return nil, source.Location{}, err
		}
		body, err := p.parseDoGroup()
		if err != nil {
			return nil, source.Location{}, err
		}
		return &ast.WhileUntil{Until: until, Condition: cond, Body: body, Loc: loc}, loc, nil
	}
}

// parseCase parses `case word in linebreak case_item* esac`.
func (p *Parser) parseCase() (ast.CompoundCommand, source.Location, error) {
	loc, err := p.expectReserved("case")
	if err != nil {
		return nil, source.Location{}, err
	}
	t, err := p.cur()
	if err != nil {
		return nil, source.Location{}, err
	}
	if t.Kind != token.KindWord {
		return nil, source.Location{}, errAt(t.Loc, "expected word after \"case\"")
	}
	subject, _ := t.Word.(*ast.Word)
	if err := p.advance(); err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	if _, err := p.expectReserved("in"); err != nil {
		return nil, source.Location{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}

	node := &ast.Case{Subject: subject, Loc: loc}
	for {
		if kw, ok := p.reservedWordAt(); ok && kw == "esac" {
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			break
		}
		item, err := p.parseCaseItem()
		if err != nil {
			return nil, source.Location{}, err
		}
		node.Items = append(node.Items, item)
		if err := p.skipLinebreak(); err != nil {
			return nil, source.Location{}, err
		}
	}
	return node, loc, nil
}

func (p *Parser) parseCaseItem() (ast.CaseItem, error) {
	if p.isOperator(token.OpLParen) {
		if err := p.advance(); err != nil {
			return ast.CaseItem{}, err
		}
	}
	var patterns []*ast.Word
	for {
		t, err := p.cur()
		if err != nil {
			return ast.CaseItem{}, err
		}
		if t.Kind != token.KindWord {
			return ast.CaseItem{}, errAt(t.Loc, "expected case pattern")
		}
		w, _ := t.Word.(*ast.Word)
		patterns = append(patterns, w)
		if err := p.advance(); err != nil {
			return ast.CaseItem{}, err
		}
		if p.isOperator(token.OpPipe) {
			if err := p.advance(); err != nil {
				return ast.CaseItem{}, err
			}
			continue
		}
		break
	}
	if _, err := p.expectOperator(token.OpRParen); err != nil {
		return ast.CaseItem{}, err
	}
	if err := p.skipLinebreak(); err != nil {
		return ast.CaseItem{}, err
	}
	var body *ast.List
	if kw, ok := p.reservedWordAt(); !ok || (kw != "esac") {
		if !p.isOperator(token.OpDSemi) && !p.isOperator(token.OpSemiAmp) && !p.isOperator(token.OpDSemiAmp) {
			b, err := p.parseList(false)
			if err != nil {
				return ast.CaseItem{}, err
			}
			body = b
		}
	}
	term := ast.CaseBreak
	switch {
	case p.isOperator(token.OpDSemi):
		term = ast.CaseBreak
		if err := p.advance(); err != nil {
			return ast.CaseItem{}, err
		}
	case p.isOperator(token.OpSemiAmp):
		term = ast.CaseFallthrough
		if err := p.advance(); err != nil {
			return ast.CaseItem{}, err
		}
	case p.isOperator(token.OpDSemiAmp):
		term = ast.CaseContinue
		if err := p.advance(); err != nil {
			return ast.CaseItem{}, err
		}
	}
	if body == nil {
		body = &ast.List{}
	}
	return ast.CaseItem{Patterns: patterns, Body: body, Terminator: term}, nil
}

// parseFunctionDef parses either `NAME '(' ')' linebreak function_body`
// (withKeyword == false) or `function NAME ('(' ')')? linebreak
// function_body` (withKeyword == true; the non-POSIX ksh/bash spelling).
func (p *Parser) parseFunctionDef(withKeyword bool) (ast.Command, source.Location, error) {
	var loc source.Location
	if withKeyword {
		l, err := p.expectReserved("function")
		if err != nil {
			return nil, source.Location{}, err
		}
		loc = l
	}
	t, err := p.cur()
	if err != nil {
		return nil, source.Location{}, err
	}
	if t.Kind != token.KindWord {
		return nil, source.Location{}, errAt(t.Loc, "expected function name")
	}
	w, _ := t.Word.(*ast.Word)
	name, bare := bareWordText(w)
	if !bare || !isValidName(name) {
		return nil, source.Location{}, errAt(t.Loc, "invalid function name")
	}
	if !withKeyword {
		loc = t.Loc
	}
	if err := p.advance(); err != nil {
		return nil, source.Location{}, err
	}
	if p.isOperator(token.OpLParen) {
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
		if _, err := p.expectOperator(token.OpRParen); err != nil {
			return nil, source.Location{}, err
		}
	} else if !withKeyword {
		return nil, source.Location{}, errAt(p.curLoc(), "expected \"(\" \")\" in function definition")
	}
	if err := p.skipLinebreak(); err != nil {
		return nil, source.Location{}, err
	}
	body, _, err := p.parseCompoundBody()
	if err != nil {
		return nil, source.Location{}, err
	}
	redirs, err := p.parseRedirList()
	if err != nil {
		return nil, source.Location{}, err
	}
	return &ast.FunctionDefinition{Name: name, Body: &body, Redirs: redirs, Loc: loc}, loc, nil
}

// parseCompoundBody parses any one of the compound-command forms, used
// as a function's body (which may be a brace group, subshell, or any
// other compound command per common shell practice, though POSIX
// requires a brace group or subshell specifically; accepting the wider
// set costs nothing and matches what real shells accept).
func (p *Parser) parseCompoundBody() (ast.CompoundCommand, source.Location, error) {
	if kw, ok := p.reservedWordAt(); ok {
		switch kw {
		case "{":
			return p.parseGrouping()
		case "if":
			return p.parseIf()
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhileUntil(false)()
		case "until":
			return p.parseWhileUntil(true)()
		case "case":
			return p.parseCase()
		}
	}
	if p.isOperator(token.OpLParen) {
		return p.parseSubshell()
	}
	return nil, source.Location{}, errAt(p.curLoc(), "expected function body")
}

// parseBracketTest gives "[[ ... ]]" lexical support without full bash
// conditional-expression semantics (see DESIGN.md): it collects the
// enclosed words into a SimpleCommand named "[[" so later pipeline/
// redirection syntax around it still works. No built-in named "[[" is
// registered, so the command is looked up like any other name.
func (p *Parser) parseBracketTest() (ast.Command, source.Location, error) {
	loc, err := p.expectReserved("[[")
	if err != nil {
		return nil, source.Location{}, err
	}
	sc := &ast.SimpleCommand{Loc: loc}
	sc.Words = append(sc.Words, ast.WordOperand{Word: &ast.Word{Units: []ast.WordUnit{ast.Unquoted{Unit: ast.Literal{Value: "[["}}}, Loc: loc}})
	for {
		t, err := p.cur()
		if err != nil {
			return nil, source.Location{}, err
		}
		if t.Kind == token.KindWord {
			w, _ := t.Word.(*ast.Word)
			if bare, ok := bareWordText(w); ok && bare == "]]" {
				if err := p.advance(); err != nil {
					return nil, source.Location{}, err
				}
				break
			}
			sc.Words = append(sc.Words, ast.WordOperand{Word: w, Mode: ast.Multiple})
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			continue
		}
		if t.Kind == token.KindEOF {
			return nil, source.Location{}, errAt(t.Loc, "expected \"]]\"")
		}
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
	}
	return ast.SimpleCmd{SimpleCommand: sc}, loc, nil
}
