// Package parser implements the shell's hand-written recursive-descent
// grammar (spec.md §4.3): a one-token-lookahead parser over
// internal/lexer's token stream, producing the internal/ast tree. The
// parser owns reserved-word recognition (the lexer never classifies a
// word as a keyword on its own) and the assignment/redirection/operand
// interleaving rules for simple commands.
package parser

import (
	"fmt"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/token"
)

func init() {
	// Breaks the lexer/parser cycle described in spec.md §9: the lexer
	// needs to parse a nested program body for `$(...)`/backquote
	// substitution, but the parser package is the one that knows how.
	lexer.RegisterItemsParser(func(l *lexer.Lexer) ([]*ast.Item, error) {
		p := New(l, nil)
		var items []*ast.Item
		for {
			list, err := p.CommandLine()
			if err != nil {
				return nil, err
			}
			if list == nil {
				break
			}
			items = append(items, list.Items...)
		}
		return items, nil
	})
}

// DeclUtilityChecker reports whether a resolved command name is a
// "declaration utility" (spec.md §4.3): one whose operands that look
// like assignments are re-parsed as assignments, with Single expansion
// mode. Supplied by the caller (normally internal/builtin's table) so
// the parser does not need to import the built-in registry.
type DeclUtilityChecker interface {
	IsDeclarationUtility(name string) bool
}

// Error is a parser-level syntax error: an unexpected token or an
// incomplete construct. It never attempts recovery (spec.md §4.3); the
// caller (the read-eval loop) decides whether to skip ahead (interactive)
// or abort (non-interactive).
type Error struct {
	Msg string
	Loc source.Location
}

func (e *Error) Error() string { return e.Msg }

func errAt(loc source.Location, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Loc: loc}
}

// reservedWords is the closed set from spec.md §3.2. "[[" is accepted
// for lexical fidelity with the reserved-word list but is not given
// full bash conditional-expression semantics (see DESIGN.md): it parses
// into a plain SimpleCommand named "[[" whose operands run through to
// the matching "]]"; no built-in of that name is registered.
var reservedWords = map[string]bool{
	"!": true, "[[": true, "case": true, "do": true, "done": true,
	"elif": true, "else": true, "esac": true, "fi": true, "for": true,
	"function": true, "if": true, "in": true, "then": true, "until": true,
	"while": true, "{": true, "}": true,
}

// Parser is a one-token-lookahead recursive-descent parser. tok is the
// current, not-yet-consumed token; peekTok (when valid) is one token
// further ahead, used only for the `NAME '(' ')'` function-definition
// lookahead.
type Parser struct {
	lex  *lexer.Lexer
	decl DeclUtilityChecker

	tok   token.Token
	ready bool
}

// New creates a Parser consuming tokens from lex. decl may be nil if no
// declaration utilities are registered (e.g. while parsing a nested
// command substitution where the distinction never changes the AST's
// observable shape for the purposes of that inner parse).
func New(lex *lexer.Lexer, decl DeclUtilityChecker) *Parser {
	return &Parser{lex: lex, decl: decl}
}

// cur ensures p.tok holds the current token, lexing it on first use.
func (p *Parser) cur() (token.Token, error) {
	if !p.ready {
		t, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		p.tok = t
		p.ready = true
	}
	return p.tok, nil
}

// advance consumes the current token and lexes the next one into p.tok.
func (p *Parser) advance() error {
	if _, err := p.cur(); err != nil {
		return err
	}
	t, err := p.lex.Next()
	if err != nil {
		p.ready = false
		return err
	}
	p.tok = t
	p.ready = true
	return nil
}

// peekNext returns the token after the current one without consuming
// the current one.
func (p *Parser) peekNext() (token.Token, error) {
	if _, err := p.cur(); err != nil {
		return token.Token{}, err
	}
	return p.lex.Peek()
}

func (p *Parser) atEOF() bool {
	t, err := p.cur()
	return err == nil && t.Kind == token.KindEOF
}

func (p *Parser) isOperator(op token.Operator) bool {
	t, err := p.cur()
	return err == nil && t.Kind == token.KindOperator && t.Operator == op
}

// bareWordText returns the word's text iff it consists entirely of
// plain literal characters (no quoting, no expansions) — the condition
// under which a word can be classified as a reserved word or parsed as
// NAME (spec.md §4.3: "A quoted token never matches a reserved word.").
func bareWordText(w *ast.Word) (string, bool) {
	var text string
	for _, u := range w.Units {
		uq, ok := u.(ast.Unquoted)
		if !ok {
			return "", false
		}
		lit, ok := uq.Unit.(ast.Literal)
		if !ok {
			return "", false
		}
		text += lit.Value
	}
	return text, true
}

// reservedWordAt, if the current token is a bare word matching the
// reserved-word set, returns its text.
func (p *Parser) reservedWordAt() (string, bool) {
	t, err := p.cur()
	if err != nil || t.Kind != token.KindWord {
		return "", false
	}
	w, _ := t.Word.(*ast.Word)
	if w == nil {
		return "", false
	}
	text, bare := bareWordText(w)
	if !bare || !reservedWords[text] {
		return "", false
	}
	return text, true
}

// expectReserved consumes the current token iff it is the reserved word
// kw, else returns a syntax error.
func (p *Parser) expectReserved(kw string) (source.Location, error) {
	t, err := p.cur()
	if err != nil {
		return source.Location{}, err
	}
	if w, ok := p.reservedWordAt(); !ok || w != kw {
		return source.Location{}, errAt(t.Loc, "expected %q", kw)
	}
	loc := t.Loc
	return loc, p.advance()
}

func (p *Parser) expectOperator(op token.Operator) (source.Location, error) {
	t, err := p.cur()
	if err != nil {
		return source.Location{}, err
	}
	if t.Kind != token.KindOperator || t.Operator != op {
		return source.Location{}, errAt(t.Loc, "expected %q, found %v", op, t)
	}
	loc := t.Loc
	return loc, p.advance()
}

// skipLinebreak consumes zero or more newline tokens (the grammar's
// `linebreak` non-terminal).
func (p *Parser) skipLinebreak() error {
	for p.isOperator(token.OpNewline) {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// CommandLine parses one `complete_command`: a List of Items separated
// by `;`/`&`, stopping at the terminating (consumed) newline or at EOF.
// Returns (nil, nil) at end of input, matching spec.md §4.3's
// `command_line() → optional complete_command` contract. Leading blank
// lines are skipped.
func (p *Parser) CommandLine() (*ast.List, error) {
	if err := p.skipLinebreak(); err != nil {
		return nil, err
	}
	if p.atEOF() {
		return nil, nil
	}
	return p.parseList(true)
}

// parseList parses `and_or (separator and_or)*`, where separator is `;`
// or `&` (optionally followed by a linebreak). When top is true, a bare
// trailing newline (with no preceding `;`/`&`) also ends the list and is
// consumed, matching `complete_command := list separator?`; when false
// (inside a compound command body) that same bare newline is left
// unconsumed for the caller to skip itself before checking for its own
// terminating reserved word (`fi`, `done`, `esac`, ...).
func (p *Parser) parseList(top bool) (*ast.List, error) {
	// A compound-command body (`then`, `do`, ...) may start on the next
	// line; the grammar's leading `linebreak` is consumed here so every
	// caller gets it for free.
	if err := p.skipLinebreak(); err != nil {
		return nil, err
	}
	list := &ast.List{}
	for {
		ao, loc, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		item := &ast.Item{List: ao, Loc: loc}
		list.Items = append(list.Items, item)

		switch {
		case p.isOperator(token.OpAmp):
			item.Async = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.isOperator(token.OpSemi):
			if err := p.advance(); err != nil {
				return nil, err
			}
		case !top && p.isOperator(token.OpNewline):
			// Inside a compound body a newline separates items, just
			// like `;`; the loop decides below whether the body has in
			// fact ended at a closing reserved word or operator.
		default:
			if top && p.isOperator(token.OpNewline) {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			return list, nil
		}

		if err := p.skipLinebreak(); err != nil {
			return nil, err
		}
		if p.atEOF() {
			return list, nil
		}
		if kw, ok := p.reservedWordAt(); ok && listTerminators[kw] {
			return list, nil
		}
		if p.isOperator(token.OpRParen) || p.isOperator(token.OpDSemi) ||
			p.isOperator(token.OpSemiAmp) || p.isOperator(token.OpDSemiAmp) {
			return list, nil
		}
	}
}

// listTerminators are the reserved words that close the enclosing
// compound body rather than starting a new item: a list inside
// `if ... fi` must stop at `then`/`fi`, but an `if` or `while` in item
// position starts a nested compound command.
var listTerminators = map[string]bool{
	"then": true, "elif": true, "else": true, "fi": true,
	"do": true, "done": true, "esac": true, "}": true,
}

// parseAndOr parses `pipeline ( (AND_IF|OR_IF) linebreak pipeline )*`.
func (p *Parser) parseAndOr() (*ast.AndOrList, source.Location, error) {
	first, loc, err := p.parsePipeline()
	if err != nil {
		return nil, source.Location{}, err
	}
	ao := &ast.AndOrList{First: first}
	for {
		var op ast.AndOr
		switch {
		case p.isOperator(token.OpAndIf):
			op = ast.AndOrAnd
		case p.isOperator(token.OpOrIf):
			op = ast.AndOrOr
		default:
			return ao, loc, nil
		}
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
		if err := p.skipLinebreak(); err != nil {
			return nil, source.Location{}, err
		}
		pl, _, err := p.parsePipeline()
		if err != nil {
			return nil, source.Location{}, err
		}
		ao.Rest = append(ao.Rest, ast.AndOrRest{Op: op, Pipeline: pl})
	}
}

// parsePipeline parses `'!'? command ('|' linebreak command)*`.
func (p *Parser) parsePipeline() (*ast.Pipeline, source.Location, error) {
	negated := false
	var startLoc source.Location
	if kw, ok := p.reservedWordAt(); ok && kw == "!" {
		t, _ := p.cur()
		startLoc = t.Loc
		negated = true
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
	}
	first, loc, err := p.parseCommand()
	if err != nil {
		return nil, source.Location{}, err
	}
	if !negated {
		startLoc = loc
	}
	pl := &ast.Pipeline{Negated: negated, Commands: []ast.Command{first}, Loc: startLoc}
	for p.isOperator(token.OpPipe) || p.isOperator(token.OpPipeAmp) {
		if err := p.advance(); err != nil {
			return nil, source.Location{}, err
		}
		if err := p.skipLinebreak(); err != nil {
			return nil, source.Location{}, err
		}
		cmd, _, err := p.parseCommand()
		if err != nil {
			return nil, source.Location{}, err
		}
		pl.Commands = append(pl.Commands, cmd)
	}
	return pl, startLoc, nil
}
