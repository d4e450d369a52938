package lexer

import (
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/token"
)

// itemsParser is installed by internal/parser's init() (via
// RegisterItemsParser) so the lexer can recursively parse the body of a
// `$(...)`/backquote command substitution without importing the parser
// package directly (spec.md §9 notes this exact cyclic-dependency shape;
// here it is broken with a package-level function variable rather than
// the Environment's dependency bag, since only one hook is needed and no
// Environment exists yet at lex time).
var itemsParser func(l *Lexer) ([]*ast.Item, error)

// RegisterItemsParser installs the parser's entry point for parsing a
// nested program body (used for command and backquote substitution). It
// must be called before any Lexer scans a word containing `$(...)` or
// backquotes; internal/parser does this from an init function.
func RegisterItemsParser(f func(l *Lexer) ([]*ast.Item, error)) { itemsParser = f }

func parseItemsFrom(l *Lexer) ([]*ast.Item, error) {
	if itemsParser == nil {
		return nil, errAt(source.Location{}, "internal error: no items parser registered (internal/parser not imported)")
	}
	return itemsParser(l)
}

// newStringProducerAt returns a Producer over a fixed string, used to
// lex the captured text of a command or backquote substitution as its
// own self-contained token stream.
func newStringProducerAt(s string) input.Producer { return input.String(s) }

// beginHeredoc records a here-document obligation when the lexer emits
// the `<<`/`<<-` operator token itself; the delimiter and target Redir
// are not known yet (the parser has not read the operand word), so they
// are filled in later by BindHeredocDelimiter. tok is unused today but
// kept in the signature so a future revision can stash the operator's
// own Location without changing call sites.
func (l *Lexer) beginHeredoc(stripTabs bool, _ *token.Token) error {
	l.pending = append(l.pending, pendingHeredoc{stripTabs: stripTabs})
	return nil
}

// BindHeredocDelimiter attaches the delimiter text (already quote-
// stripped per DelimiterText), its quotedness, and the Redir node whose
// Body the eventual here-doc content should be written into, to the
// oldest still-unbound pending here-document obligation. The parser
// calls this immediately after parsing the `<<`/`<<-` operand word, in
// the same left-to-right order the lexer emitted the operators, so FIFO
// matching is always correct.
func (l *Lexer) BindHeredocDelimiter(delimiter string, quoted bool, redir *ast.Redir) {
	for i := range l.pending {
		if l.pending[i].redir == nil {
			l.pending[i].delimiter = delimiter
			l.pending[i].quoted = quoted
			l.pending[i].redir = redir
			return
		}
	}
}

// DelimiterText extracts a here-document delimiter word's literal text
// and reports whether any part of it was quoted (POSIX: any quoting
// character anywhere in the word disables expansion of the body).
func DelimiterText(w *ast.Word) (text string, quoted bool) {
	var sb strings.Builder
	for _, u := range w.Units {
		switch uu := u.(type) {
		case ast.Unquoted:
			switch tu := uu.Unit.(type) {
			case ast.Literal:
				sb.WriteString(tu.Value)
			case ast.Backslash:
				quoted = true
				sb.WriteRune(tu.Value)
			default:
				// Parameter/command/arithmetic expansions are not valid
				// inside a here-doc delimiter per POSIX; ignore opaquely
				// rather than reject (a malformed script, not our job to
				// diagnose here).
			}
		case ast.SingleQuote:
			quoted = true
			sb.WriteString(uu.Value)
		case ast.DoubleQuote:
			quoted = true
			for _, tu := range uu.Units {
				switch t := tu.(type) {
				case ast.Literal:
					sb.WriteString(t.Value)
				case ast.Backslash:
					sb.WriteRune(t.Value)
				}
			}
		case ast.DollarSingleQuote:
			quoted = true
			sb.WriteString(uu.Value)
		}
	}
	return sb.String(), quoted
}

// HeredocUnits re-lexes text (an unquoted here-document body) into the
// TextUnits its embedded expansions produce, honoring the here-document
// backslash-escape rule (backslash retains its special meaning only
// before $, `, \, or a newline; POSIX 2.7.4), so neither '"' nor "'" is
// ever special (spec.md §4.6).
func HeredocUnits(text string) ([]ast.TextUnit, error) {
	l := New(newStringProducerAt(text), source.Origin{Kind: source.OriginHeredocBody}, nil)
	var units []ast.TextUnit
	for !l.atEOF {
		u, err := l.scanHeredocUnit()
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (l *Lexer) scanHeredocUnit() (ast.TextUnit, error) {
	switch l.ch {
	case '\\':
		if l.peekAt(1) == '"' {
			// A backslash before '"' stays an ordinary character here.
			start := l.curPos()
			l.consume()
			return ast.Literal{Value: "\\", Loc: l.loc(start, l.curPos())}, nil
		}
		unit, err := l.scanBackslash(true)
		if err != nil {
			return nil, err
		}
		return unit.(ast.Unquoted).Unit, nil
	case '$':
		unit, err := l.scanDollar(true)
		if err != nil {
			return nil, err
		}
		return unit.(ast.Unquoted).Unit, nil
	case '`':
		unit, err := l.scanBackquote()
		if err != nil {
			return nil, err
		}
		return unit.(ast.Unquoted).Unit, nil
	default:
		return l.scanHeredocLiteralRun(), nil
	}
}

func (l *Lexer) scanHeredocLiteralRun() ast.TextUnit {
	start := l.curPos()
	var sb strings.Builder
	for !l.atEOF && l.ch != '\\' && l.ch != '$' && l.ch != '`' {
		sb.WriteRune(l.ch)
		l.consume()
	}
	return ast.Literal{Value: sb.String(), Loc: l.loc(start, l.curPos())}
}

// resolvePendingHeredocs is called at every unquoted newline token: it
// reads the lines immediately following the newline from the root input
// frame (here-documents are a property of the underlying input stream,
// not of any alias-expansion text) until each pending obligation's
// delimiter line is seen, writing the accumulated body into the bound
// Redir's HereDoc.Content.
func (l *Lexer) resolvePendingHeredocs() error {
	if len(l.pending) == 0 {
		return nil
	}
	pending := l.pending
	l.pending = nil
	root := &l.stack[0]

	for _, p := range pending {
		if p.redir == nil {
			continue // parser never bound this one; nothing to fill in
		}
		startOffset := root.code.Len()
		var body strings.Builder
		for {
			line, err := l.producer.NextLine(input.Context{})
			if err != nil || line == "" {
				return errAt(source.Location{Code: root.code, Start: startOffset, End: startOffset},
					"unterminated here-document (delimiter %q not found)", p.delimiter)
			}
			root.code.Append(line)
			check := strings.TrimRight(line, "\n")
			if p.stripTabs {
				check = strings.TrimLeft(check, "\t")
			}
			if check == p.delimiter {
				break
			}
			if p.stripTabs {
				body.WriteString(strings.TrimLeft(line, "\t"))
			} else {
				body.WriteString(line)
			}
		}
		endOffset := root.code.Len()
		hd := p.redir.Body.(ast.HereDoc)
		hd.Delimiter = p.delimiter
		hd.StripTabs = p.stripTabs
		hd.Quoted = p.quoted
		hd.Content = body.String()
		hd.ContentLoc = source.Location{Code: root.code, Start: startOffset, End: endOffset}
		p.redir.Body = hd
	}

	// If the frame actively being scanned is the root frame, its read
	// position must catch up past the heredoc bodies we just appended so
	// the next scan() does not re-tokenize them as command text.
	if len(l.stack) == 1 {
		l.stack[0].pos = root.code.Len()
		l.advance()
	}
	return nil
}
