package parser

import (
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/token"
)

// parseCommand parses one `command`: a compound command, a function
// definition, or a simple command, plus any redirections trailing a
// compound command.
func (p *Parser) parseCommand() (ast.Command, source.Location, error) {
	if kw, ok := p.reservedWordAt(); ok {
		switch kw {
		case "{":
			return p.parseCompoundWithRedirs(p.parseGrouping)
		case "if":
			return p.parseCompoundWithRedirs(p.parseIf)
		case "for":
			return p.parseCompoundWithRedirs(p.parseFor)
		case "while":
			return p.parseCompoundWithRedirs(p.parseWhileUntil(false))
		case "until":
			return p.parseCompoundWithRedirs(p.parseWhileUntil(true))
		case "case":
			return p.parseCompoundWithRedirs(p.parseCase)
		case "function":
			return p.parseFunctionDef(true)
		case "[[":
			return p.parseBracketTest()
		}
	}
	if kw, ok := p.reservedWordAt(); ok && (listTerminators[kw] || kw == "in") {
		t, _ := p.cur()
		return nil, source.Location{}, errAt(t.Loc, "unexpected %q", kw)
	}
	if p.isOperator(token.OpLParen) {
		return p.parseCompoundWithRedirs(p.parseSubshell)
	}
	// Function definition: NAME '(' ')' compound_command.
	if t, err := p.cur(); err == nil && t.Kind == token.KindWord {
		if w, ok := t.Word.(*ast.Word); ok {
			if name, bare := bareWordText(w); bare && isValidName(name) {
				if next, err := p.peekNext(); err == nil && next.Kind == token.KindOperator && next.Operator == token.OpLParen {
					return p.parseFunctionDef(false)
				}
			}
		}
	}
	return p.parseSimpleCommand()
}

func isValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// parseCompoundWithRedirs wraps a compound-command parser with the
// optional trailing redirection list a `CompoundCmd` carries.
func (p *Parser) parseCompoundWithRedirs(parse func() (ast.CompoundCommand, source.Location, error)) (ast.Command, source.Location, error) {
	cc, loc, err := parse()
	if err != nil {
		return nil, source.Location{}, err
	}
	redirs, err := p.parseRedirList()
	if err != nil {
		return nil, source.Location{}, err
	}
	return ast.CompoundCmd{Compound: cc, Redirs: redirs}, loc, nil
}

// isAssignmentWord reports whether w's literal (pre-expansion, pre-quote)
// text matches `NAME=...` before any quoting character appears, per
// spec.md §4.3's assignment-recognition rule. It returns the name and the
// value word (the remaining units after the '=').
func isAssignmentWord(w *ast.Word) (name string, value *ast.Word, ok bool) {
	if len(w.Units) == 0 {
		return "", nil, false
	}
	uq, isLit := w.Units[0].(ast.Unquoted)
	if !isLit {
		return "", nil, false
	}
	lit, isLit2 := uq.Unit.(ast.Literal)
	if !isLit2 {
		return "", nil, false
	}
	eq := strings.IndexByte(lit.Value, '=')
	if eq < 0 {
		return "", nil, false
	}
	name = lit.Value[:eq]
	if !isValidName(name) {
		return "", nil, false
	}
	rest := lit.Value[eq+1:]
	valueUnits := []ast.WordUnit{}
	if rest != "" {
		valueUnits = append(valueUnits, ast.Unquoted{Unit: ast.Literal{Value: rest, Loc: lit.Loc}})
	}
	valueUnits = append(valueUnits, w.Units[1:]...)
	return name, &ast.Word{Units: valueUnits, Loc: w.Loc}, true
}

// parseSimpleCommand parses `(assignment|redir)* WORD (assignment|redir|WORD)*`.
func (p *Parser) parseSimpleCommand() (ast.Command, source.Location, error) {
	sc := &ast.SimpleCommand{}
	var startLoc source.Location
	haveStart := false
	commandName := ""
	sawCommandWord := false

	setStart := func(loc source.Location) {
		if !haveStart {
			startLoc = loc
			haveStart = true
		}
	}

	for {
		t, err := p.cur()
		if err != nil {
			return nil, source.Location{}, err
		}
		if t.Kind == token.KindIoNumber {
			r, err := p.parseRedir(t.IoNumber)
			if err != nil {
				return nil, source.Location{}, err
			}
			setStart(r.Loc)
			sc.Redirs = append(sc.Redirs, r)
			continue
		}
		if t.Kind == token.KindOperator {
			if isRedirOperator(t.Operator) {
				r, err := p.parseRedir(-1)
				if err != nil {
					return nil, source.Location{}, err
				}
				setStart(r.Loc)
				sc.Redirs = append(sc.Redirs, r)
				continue
			}
			break
		}
		if t.Kind != token.KindWord {
			break
		}
		w, _ := t.Word.(*ast.Word)
		if !sawCommandWord {
			if name, val, ok := isAssignmentWord(w); ok {
				setStart(t.Loc)
				sc.Assignments = append(sc.Assignments, ast.Assignment{Name: name, Value: val, Loc: t.Loc})
				if err := p.advance(); err != nil {
					return nil, source.Location{}, err
				}
				continue
			}
			setStart(t.Loc)
			sawCommandWord = true
			if bare, ok := bareWordText(w); ok {
				commandName = bare
			}
			mode := ast.Multiple
			sc.Words = append(sc.Words, ast.WordOperand{Word: w, Mode: mode})
			if err := p.advance(); err != nil {
				return nil, source.Location{}, err
			}
			continue
		}
		// After the command word: plain operands. A declaration
		// utility's assignment-shaped operands (spec.md §4.3) stay
		// operand words — unlike a pre-command-name `NAME=value`
		// prefix, `export NAME=value` is an argument the built-in
		// itself interprets — but they expand in Single mode so field
		// splitting and pathname expansion never touch them.
		sc.Words = append(sc.Words, ast.WordOperand{Word: w, Mode: operandMode(p.decl, commandName)})
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
	}

	if !haveStart {
		t, _ := p.cur()
		return nil, source.Location{}, errAt(t.Loc, "unexpected token %v", t)
	}
	sc.Loc = startLoc
	return ast.SimpleCmd{SimpleCommand: sc}, startLoc, nil
}

// operandMode reports Single for every operand of a declaration utility
// (spec.md §4.3: "the expansion mode is recorded as Single ... rather
// than Multiple"), Multiple otherwise.
func operandMode(decl DeclUtilityChecker, name string) ast.ExpandMode {
	if decl != nil && decl.IsDeclarationUtility(name) {
		return ast.Single
	}
	return ast.Multiple
}

func isRedirOperator(op token.Operator) bool {
	switch op {
	case token.OpLess, token.OpGreat, token.OpDLess, token.OpDLessDash,
		token.OpLessAnd, token.OpGreatAnd, token.OpDGreat, token.OpLessGreat,
		token.OpClobber, token.OpTLess:
		return true
	}
	return false
}
