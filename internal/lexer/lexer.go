// Package lexer tokenizes shell source text into operators, words and
// reserved-word candidates, tracking alias-substitution and here-document
// state along the way (spec.md §4.2). It pulls lines lazily from an
// internal/input.Producer, so interactive prompting and script reading
// share the exact same tokenizing code.
//
// The Lexer keeps every character's provenance: each rune it consumes
// comes from some internal/source.Code, and every token it emits carries
// a Location into that Code. Alias substitution works by pushing a new
// Code (and resuming the old one when it is exhausted) rather than by
// rewriting the input stream, so Locations inside an alias replacement
// correctly point at the alias's own origin.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/token"
)

// AliasResolver looks up alias replacement text by name. It is supplied
// by the environment layer; the lexer only depends on this narrow
// interface to avoid importing internal/state.
type AliasResolver interface {
	// Lookup returns the replacement text for name and whether the
	// alias is "global" (checked at any word position, not just the
	// command-word position). ok is false if no such alias exists.
	Lookup(name string) (replacement string, global bool, ok bool)
}

// Error is a lexer-level syntax error: an unterminated quote,
// expansion or here-document, or an I/O error from the underlying
// input.Producer.
type Error struct {
	Msg string
	Loc source.Location
}

func (e *Error) Error() string { return e.Msg }

// frame is one entry of the alias-expansion stack: the Code currently
// being scanned, the byte position within it, and (if it was pushed by
// an alias substitution) the alias name, so recursive self-expansion at
// the same nesting level can be refused (spec.md §8 "alias
// non-reentrancy").
type frame struct {
	code      *source.Code
	pos       int
	aliasName string // "" for the original input frame

	// trailingBlank records that this alias frame's replacement text
	// ends in a blank, so the word following the whole expansion is
	// also an alias candidate (POSIX trailing-blank rule, spec.md
	// §4.2); applied when the frame is popped.
	trailingBlank bool
}

// pendingHeredoc is a here-document obligation recorded when the lexer
// emits a `<<`/`<<-` operator token; its body is filled in when the
// next newline is reached (spec.md §4.2).
type pendingHeredoc struct {
	delimiter string
	stripTabs bool
	quoted    bool
	redir     *ast.Redir // the Redir node to fill in once the body is read
}

// Lexer is a lazy, alias-aware, here-doc-aware tokenizer.
type Lexer struct {
	producer input.Producer
	origin   source.Origin

	stack []frame // stack[len-1] is the active frame; stack[0] is the root input

	ch       rune
	chWidth  int
	atEOF    bool

	resolver AliasResolver

	commandWordContext   bool // set by the parser before fetching the next token
	atCommandStart       bool // true where the next word is in command-name position
	globalAliasActive    bool // sticky until the next newline
	trailingBlankPending bool // set when an alias frame ending in a blank is popped
	firstLinePending     bool // next Producer pull begins a new command (PS1, not PS2)

	pending []pendingHeredoc

	peeked    *token.Token
	peekedErr error
}

// New creates a Lexer reading from producer. origin describes the
// provenance recorded on the root Code fragment (e.g. OriginScriptFile).
func New(producer input.Producer, origin source.Origin, resolver AliasResolver) *Lexer {
	l := &Lexer{producer: producer, origin: origin, resolver: resolver, atCommandStart: true, firstLinePending: true}
	code := source.NewCode(1, origin)
	l.stack = []frame{{code: code, pos: 0}}
	l.advance()
	return l
}

func (l *Lexer) curCode() *source.Code { return l.stack[len(l.stack)-1].code }

// loc builds a Location spanning [start,end) in the current frame's
// Code.
func (l *Lexer) loc(start, end int) source.Location {
	return source.Location{Code: l.curCode(), Start: start, End: end}
}

func (l *Lexer) curPos() int { return l.stack[len(l.stack)-1].pos }

func (l *Lexer) setPos(p int) { l.stack[len(l.stack)-1].pos = p }

// ensureLine requests another line from the Producer and appends it to
// the root Code when the current frame is the root input and has been
// exhausted. Alias-expansion frames never call back into the Producer:
// their text is fixed at push time.
func (l *Lexer) ensureLine() bool {
	top := &l.stack[len(l.stack)-1]
	if top.aliasName != "" {
		return false // alias frames are never refilled
	}
	isFirst := l.firstLinePending
	l.firstLinePending = false
	line, err := l.producer.NextLine(input.Context{IsFirstLine: isFirst})
	if err != nil || line == "" {
		return false
	}
	top.code.Append(line)
	return true
}

// advance reads the next rune into l.ch, popping exhausted alias frames
// and pulling new lines from the Producer as needed. l.atEOF is set once
// the root frame is exhausted with no more input available.
func (l *Lexer) advance() {
	for {
		top := &l.stack[len(l.stack)-1]
		text := top.code.Text()
		if top.pos >= len(text) {
			if top.aliasName != "" {
				// Pop back to the frame that triggered this alias
				// expansion and keep reading from there.
				if top.trailingBlank {
					l.trailingBlankPending = true
				}
				l.stack = l.stack[:len(l.stack)-1]
				continue
			}
			if l.ensureLine() {
				continue
			}
			l.ch = 0
			l.chWidth = 0
			l.atEOF = true
			return
		}
		r, w := utf8.DecodeRuneInString(text[top.pos:])
		l.ch = r
		l.chWidth = w
		l.atEOF = false
		return
	}
}

func (l *Lexer) consume() {
	if l.atEOF {
		return
	}
	l.stack[len(l.stack)-1].pos += l.chWidth
	l.advance()
}

// peekAt returns the rune n positions after the current one without
// consuming, scanning across frame boundaries but never requesting new
// input lines (callers needing to peek past an un-refilled root frame
// accept that the peek simply reports EOF early; this only affects
// lookahead for two-character operators and `$((`/`((` disambiguation,
// which always occur within an already-buffered line).
func (l *Lexer) peekAt(n int) rune {
	si := len(l.stack) - 1
	pos := l.stack[si].pos
	// Skip current rune's width n times.
	for i := 0; i <= n; i++ {
		for {
			text := l.stack[si].code.Text()
			if pos >= len(text) {
				if si == 0 {
					return 0
				}
				si--
				pos = l.stack[si].pos
				continue
			}
			r, w := utf8.DecodeRuneInString(text[pos:])
			if i == n {
				return r
			}
			pos += w
			break
		}
	}
	return 0
}

func isBlank(r rune) bool { return r == ' ' || r == '\t' }

// SetCommandWordContext tells the lexer that the next word it scans is
// in "command name" position, so bare alias candidates should be
// checked there even if no global alias is currently active.
func (l *Lexer) SetCommandWordContext(v bool) { l.commandWordContext = v }

// Next returns the next token, or an *Error.
func (l *Lexer) Next() (token.Token, error) {
	if l.peeked != nil {
		t := *l.peeked
		err := l.peekedErr
		l.peeked = nil
		l.peekedErr = nil
		return t, err
	}
	return l.scan()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	if l.peeked == nil {
		t, err := l.scan()
		l.peeked = &t
		l.peekedErr = err
	}
	return *l.peeked, l.peekedErr
}

func (l *Lexer) skipBlanksAndComment() {
	for {
		for isBlank(l.ch) {
			l.consume()
		}
		if l.ch == '\\' && l.peekAt(1) == '\n' {
			l.consume()
			l.consume()
			continue
		}
		if l.ch == '#' {
			for l.ch != '\n' && !l.atEOF {
				l.consume()
			}
			continue
		}
		return
	}
}

func (l *Lexer) scan() (token.Token, error) {
	l.skipBlanksAndComment()
	start := l.curPos()

	if l.ch == '\n' {
		tok := token.Token{Kind: token.KindOperator, Operator: token.OpNewline, Loc: l.loc(start, start+1)}
		if len(l.pending) > 0 && len(l.stack) == 1 {
			// Step past the newline without refilling from the
			// Producer: the lines that follow belong to the pending
			// here-document bodies, which resolvePendingHeredocs reads
			// itself (spec.md §4.2).
			l.setPos(l.curPos() + l.chWidth)
			if err := l.resolvePendingHeredocs(); err != nil {
				return tok, err
			}
		} else {
			l.consume()
			if err := l.resolvePendingHeredocs(); err != nil {
				return tok, err
			}
		}
		l.globalAliasActive = false
		l.atCommandStart = true
		if len(l.stack) == 1 && len(l.pending) == 0 {
			// The next line pulled from the Producer begins a fresh
			// command, so the prompter shows PS1 rather than PS2.
			l.firstLinePending = true
		}
		return tok, nil
	}
	if l.atEOF {
		return token.Token{Kind: token.KindEOF, Loc: l.loc(start, start)}, nil
	}

	// IoNumber: a run of digits immediately followed by < or >.
	if unicode.IsDigit(l.ch) {
		if n, ok := l.tryIoNumber(); ok {
			return token.Token{Kind: token.KindIoNumber, IoNumber: n, Loc: l.loc(start, l.curPos())}, nil
		}
	}

	if op, length, ok := l.matchOperator(); ok {
		for i := 0; i < length; i++ {
			l.consume()
		}
		l.atCommandStart = operatorStartsCommand(op)
		tok := token.Token{Kind: token.KindOperator, Operator: op, Loc: l.loc(start, start+length)}
		if op == token.OpDLess || op == token.OpDLessDash {
			if err := l.beginHeredoc(op == token.OpDLessDash, &tok); err != nil {
				return tok, err
			}
		}
		return tok, nil
	}

	w, err := l.scanWord()
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.KindWord, Word: w, Loc: w.Loc}, nil
}

// matchOperator tries the operator trie against the remaining text of
// the current frame only; an operator is never matched across an
// alias-expansion frame boundary.
func (l *Lexer) matchOperator() (token.Operator, int, bool) {
	top := l.stack[len(l.stack)-1]
	text := top.code.Text()
	if top.pos >= len(text) {
		return token.OpNone, 0, false
	}
	return token.Match(text[top.pos:])
}

func (l *Lexer) tryIoNumber() (int, bool) {
	save := l.stack[len(l.stack)-1]
	var digits []rune
	for unicode.IsDigit(l.ch) {
		digits = append(digits, l.ch)
		l.consume()
	}
	if l.ch == '<' || l.ch == '>' {
		n := 0
		for _, d := range digits {
			n = n*10 + int(d-'0')
		}
		return n, true
	}
	l.stack[len(l.stack)-1] = save
	l.advance()
	return 0, false
}

// isWordBoundary reports whether the current character ends a word
// scan: unquoted operator-starting character, blank, newline, or EOF.
func (l *Lexer) isWordBoundary() bool {
	if l.atEOF || l.ch == '\n' || isBlank(l.ch) {
		return true
	}
	if _, _, ok := l.matchOperator(); ok {
		return true
	}
	return false
}

// operatorStartsCommand reports whether the token that follows op sits
// in command-name position, making it an alias-substitution candidate
// (spec.md §4.2: "first word of a simple command"). Redirection
// operators are followed by an operand, not a command.
func operatorStartsCommand(op token.Operator) bool {
	switch op {
	case token.OpSemi, token.OpDSemi, token.OpSemiAmp, token.OpDSemiAmp,
		token.OpAmp, token.OpAndIf, token.OpOrIf, token.OpPipe,
		token.OpPipeAmp, token.OpLParen, token.OpRParen, token.OpBang:
		return true
	}
	return false
}

// commandStartKeywords are the reserved words after which the next
// word is again in command-name position. `for`, `case` and `in` are
// deliberately absent: they are followed by a name, a subject, or
// operand words.
var commandStartKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true,
	"while": true, "until": true, "do": true, "{": true, "}": true,
	"!": true,
}

func errAt(loc source.Location, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Loc: loc}
}
