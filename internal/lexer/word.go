package lexer

import (
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/source"
)

// scanWord consumes one word, performing alias substitution first when
// the current position is a candidate (spec.md §4.2's alias-substitution
// rule). Recursing after a successful substitution lets the freshly
// spliced text itself be re-examined for alias candidacy (the first
// word of the replacement is always a command-word candidate) and,
// thanks to the POSIX trailing-blank rule, so is the word that follows
// the whole invocation.
func (l *Lexer) scanWord() (*ast.Word, error) {
	candidate := l.atCommandStart || l.commandWordContext || l.globalAliasActive || l.trailingBlankPending
	l.commandWordContext = false
	if candidate {
		if expanded, err := l.tryAliasSubstitution(); err != nil {
			return nil, err
		} else if expanded {
			return l.scanWord()
		}
	}
	l.trailingBlankPending = false

	startCode := l.curCode()
	start := l.curPos()
	var units []ast.WordUnit
	// A leading ~ (possibly followed by a bare name) is tilde expansion;
	// it is only recognized at the very start of the word.
	if l.ch == '~' {
		if tu, ok := l.scanTilde(); ok {
			units = append(units, tu)
		}
	}
	for !l.isWordBoundary() {
		unit, err := l.scanWordUnit(false)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	end := l.curPos()
	if l.curCode() != startCode {
		// The word ran to the end of an alias frame that has since been
		// popped; its location stays in the alias replacement's Code.
		end = len(startCode.Text())
	}
	w := &ast.Word{Units: units, Loc: source.Location{Code: startCode, Start: start, End: end}}
	// A reserved word like `then` or `{` leaves the following word in
	// command-name position, and a `NAME=value` assignment prefix does
	// not consume it; any other word ends it.
	switch bt := bareText(w); {
	case commandStartKeywords[bt]:
		l.atCommandStart = true
	case isAssignmentText(bt):
		// leave atCommandStart untouched
	default:
		l.atCommandStart = false
	}
	return w, nil
}

// isAssignmentText reports whether s is a NAME=... word, the shape the
// parser will classify as an assignment rather than the command name.
func isAssignmentText(s string) bool {
	eq := strings.IndexByte(s, '=')
	if eq <= 0 {
		return false
	}
	for i, r := range s[:eq] {
		isAlpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && !(i > 0 && r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// bareText returns w's text iff it is entirely plain literal characters,
// mirroring the parser's reserved-word precondition; "" otherwise.
func bareText(w *ast.Word) string {
	var sb strings.Builder
	for _, u := range w.Units {
		uq, ok := u.(ast.Unquoted)
		if !ok {
			return ""
		}
		lit, ok := uq.Unit.(ast.Literal)
		if !ok {
			return ""
		}
		sb.WriteString(lit.Value)
	}
	return sb.String()
}

// tryAliasSubstitution peeks a bare (unquoted, non-expansion) word; if
// it names a known alias not already active on the expansion stack, it
// splices the replacement in as a new frame and reports success. On any
// failure to match it restores the lexer's position exactly.
func (l *Lexer) tryAliasSubstitution() (bool, error) {
	if l.resolver == nil {
		return false, nil
	}
	save := l.stack[len(l.stack)-1]
	// Scanning the name may pop exhausted alias frames, so a failed
	// match restores the whole stack rather than just its top frame.
	saveStack := append([]frame(nil), l.stack...)
	savePending := l.trailingBlankPending
	restore := func() {
		l.stack = saveStack
		l.trailingBlankPending = savePending
		l.advance()
	}
	var sb strings.Builder
	for !l.isWordBoundary() {
		if l.ch == '\'' || l.ch == '"' || l.ch == '$' || l.ch == '`' || l.ch == '\\' || l.ch == '~' {
			restore()
			return false, nil
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	name := sb.String()
	if name == "" {
		restore()
		return false, nil
	}
	repl, global, ok := l.resolver.Lookup(name)
	if !ok {
		restore()
		return false, nil
	}
	for _, f := range l.stack {
		if f.aliasName == name {
			restore()
			return false, nil
		}
	}
	code := source.NewCode(l.curCode().StartLine(), source.Origin{Kind: source.OriginAlias, Name: name, AliasAt: &source.Location{Code: save.code, Start: save.pos, End: l.curPos()}})
	code.Append(repl)
	trailing := strings.HasSuffix(repl, " ") || strings.HasSuffix(repl, "\t")
	l.stack = append(l.stack, frame{code: code, pos: 0, aliasName: name, trailingBlank: trailing})
	l.advance()
	if global {
		l.globalAliasActive = true
	}
	return true, nil
}

func (l *Lexer) restore(save frame) {
	l.stack[len(l.stack)-1] = save
	l.advance()
}

func (l *Lexer) scanTilde() (ast.Tilde, bool) {
	start := l.curPos()
	save := l.stack[len(l.stack)-1]
	l.consume() // '~'
	var sb strings.Builder
	for isTildeNameRune(l.ch) {
		sb.WriteRune(l.ch)
		l.consume()
	}
	// A tilde prefix only counts if it is immediately followed by a word
	// boundary or a path separator; otherwise treat '~' as a literal.
	if l.ch != '/' && !l.isWordBoundary() {
		l.restore(save)
		return ast.Tilde{}, false
	}
	return ast.Tilde{Name: sb.String(), Loc: l.loc(start, l.curPos())}, true
}

func isTildeNameRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// scanWordUnit scans one TextUnit or quoted span. inDouble is true when
// called while already inside a double-quoted span (so that, e.g., a
// further single-quote is literal rather than starting a SingleQuote
// unit).
func (l *Lexer) scanWordUnit(inDouble bool) (ast.WordUnit, error) {
	switch l.ch {
	case '\'':
		if inDouble {
			return l.scanLiteralRun(inDouble)
		}
		return l.scanSingleQuote()
	case '"':
		if inDouble {
			return nil, nil // handled by caller loop terminating
		}
		return l.scanDoubleQuote()
	case '\\':
		return l.scanBackslash(inDouble)
	case '$':
		return l.scanDollar(inDouble)
	case '`':
		return l.scanBackquote()
	default:
		return l.scanLiteralRun(inDouble)
	}
}

// scanLiteralRun consumes a maximal run of plain characters: stops at
// any character that scanWordUnit would otherwise treat specially, or
// (when inDouble) at an unescaped '"'.
func (l *Lexer) scanLiteralRun(inDouble bool) (ast.WordUnit, error) {
	start := l.curPos()
	var sb strings.Builder
	for {
		if inDouble {
			if l.ch == '"' || l.atEOF {
				break
			}
		} else if l.isWordBoundary() {
			break
		}
		if l.ch == '\'' && !inDouble {
			break
		}
		if l.ch == '\\' || l.ch == '$' || l.ch == '`' {
			break
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	return ast.Unquoted{Unit: ast.Literal{Value: sb.String(), Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanSingleQuote() (ast.WordUnit, error) {
	start := l.curPos()
	l.consume() // opening '
	var sb strings.Builder
	for l.ch != '\'' {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated single-quoted string")
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	l.consume() // closing '
	return ast.SingleQuote{Value: sb.String(), Loc: l.loc(start, l.curPos())}, nil
}

func (l *Lexer) scanDoubleQuote() (ast.WordUnit, error) {
	start := l.curPos()
	l.consume() // opening "
	var units []ast.TextUnit
	for l.ch != '"' {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated double-quoted string")
		}
		u, err := l.scanWordUnit(true)
		if err != nil {
			return nil, err
		}
		if uq, ok := u.(ast.Unquoted); ok {
			units = append(units, uq.Unit)
		}
	}
	l.consume() // closing "
	return ast.DoubleQuote{Units: units, Loc: l.loc(start, l.curPos())}, nil
}

func (l *Lexer) scanBackslash(inDouble bool) (ast.WordUnit, error) {
	start := l.curPos()
	l.consume() // backslash
	if l.atEOF {
		return nil, errAt(l.loc(start, l.curPos()), "trailing backslash")
	}
	// Inside double quotes, backslash only escapes $ ` " \ and newline;
	// any other backslash is literal (POSIX 2.2.3).
	if inDouble {
		switch l.ch {
		case '$', '`', '"', '\\', '\n':
		default:
			return ast.Unquoted{Unit: ast.Literal{Value: "\\", Loc: l.loc(start, start+1)}}, nil
		}
	}
	r := l.ch
	l.consume()
	return ast.Unquoted{Unit: ast.Backslash{Value: r, Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanDollar(inDouble bool) (ast.WordUnit, error) {
	start := l.curPos()
	l.consume() // '$'
	switch {
	case l.ch == '\'' && !inDouble:
		return l.scanDollarSingleQuote(start)
	case l.ch == '(' && l.peekAt(1) == '(':
		return l.scanArith(start)
	case l.ch == '(':
		return l.scanCommandSubst(start)
	case l.ch == '{':
		return l.scanBracedParam(start)
	case isNameStart(l.ch) || l.ch == '@' || l.ch == '*' || l.ch == '#' || l.ch == '?' ||
		l.ch == '$' || l.ch == '!' || l.ch == '-' || (l.ch >= '0' && l.ch <= '9'):
		return l.scanRawParam(start)
	default:
		// A bare '$' not followed by anything special is literal.
		return ast.Unquoted{Unit: ast.Literal{Value: "$", Loc: l.loc(start, start+1)}}, nil
	}
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameRune(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) scanDollarSingleQuote(start int) (ast.WordUnit, error) {
	l.consume() // opening '
	var sb strings.Builder
	for l.ch != '\'' {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated $'...' string")
		}
		if l.ch == '\\' {
			l.consume()
			sb.WriteString(decodeDollarEscape(l))
			continue
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	l.consume() // closing '
	return ast.DollarSingleQuote{Value: sb.String(), Loc: l.loc(start, l.curPos())}, nil
}

// decodeDollarEscape decodes one backslash escape inside $'...', per
// the common subset (\n \t \r \\ \' \" \a \b \f \v and octal/hex are
// not modeled; unrecognized escapes keep their backslash).
func decodeDollarEscape(l *Lexer) string {
	r := l.ch
	l.consume()
	switch r {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '\\', '\'', '"':
		return string(r)
	default:
		return "\\" + string(r)
	}
}

func (l *Lexer) scanRawParam(start int) (ast.WordUnit, error) {
	if !isNameStart(l.ch) {
		// Special one-character parameter: $@ $* $# $? $$ $! $- $0-$9.
		name := string(l.ch)
		l.consume()
		return ast.Unquoted{Unit: ast.RawParam{Name: name, Loc: l.loc(start, l.curPos())}}, nil
	}
	var sb strings.Builder
	for isNameRune(l.ch) {
		sb.WriteRune(l.ch)
		l.consume()
	}
	return ast.Unquoted{Unit: ast.RawParam{Name: sb.String(), Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanBracedParam(start int) (ast.WordUnit, error) {
	l.consume() // '{'
	var nameSb strings.Builder
	lengthForm := false
	if l.ch == '#' {
		save := l.stack[len(l.stack)-1]
		l.consume()
		if isNameStart(l.ch) || l.ch == '@' || l.ch == '*' || (l.ch >= '0' && l.ch <= '9') {
			lengthForm = true
		} else {
			l.restore(save)
		}
	}
	for isNameRune(l.ch) || (nameSb.Len() == 0 && (l.ch == '@' || l.ch == '*' || l.ch == '#' || l.ch == '?' || l.ch == '$' || l.ch == '!' || l.ch == '-' || (l.ch >= '0' && l.ch <= '9'))) {
		nameSb.WriteRune(l.ch)
		l.consume()
	}
	name := nameSb.String()
	var mod ast.Modifier = ast.NoModifier{}
	if lengthForm {
		mod = ast.LengthModifier{}
	} else if l.ch != '}' {
		m, err := l.scanParamModifier()
		if err != nil {
			return nil, err
		}
		mod = m
	}
	if l.ch != '}' {
		return nil, errAt(l.loc(start, l.curPos()), "unterminated ${...}")
	}
	l.consume() // '}'
	return ast.Unquoted{Unit: ast.BracedParam{Name: name, Modifier: mod, Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanParamModifier() (ast.Modifier, error) {
	colon := false
	if l.ch == ':' {
		colon = true
		l.consume()
	}
	switch l.ch {
	case '-':
		l.consume()
		w, err := l.scanModifierWord()
		return ast.SwitchModifier{Type: ast.SwitchUseDefault, Colon: colon, Word: w}, err
	case '=':
		l.consume()
		w, err := l.scanModifierWord()
		return ast.SwitchModifier{Type: ast.SwitchAssign, Colon: colon, Word: w}, err
	case '?':
		l.consume()
		w, err := l.scanModifierWord()
		return ast.SwitchModifier{Type: ast.SwitchError, Colon: colon, Word: w}, err
	case '+':
		l.consume()
		w, err := l.scanModifierWord()
		return ast.SwitchModifier{Type: ast.SwitchAlternate, Colon: colon, Word: w}, err
	case '%':
		l.consume()
		length := ast.TrimShortest
		if l.ch == '%' {
			length = ast.TrimLongest
			l.consume()
		}
		w, err := l.scanModifierWord()
		return ast.TrimModifier{Side: ast.TrimSuffix, Length: length, Word: w}, err
	case '#':
		l.consume()
		length := ast.TrimShortest
		if l.ch == '#' {
			length = ast.TrimLongest
			l.consume()
		}
		w, err := l.scanModifierWord()
		return ast.TrimModifier{Side: ast.TrimPrefix, Length: length, Word: w}, err
	case '/':
		l.consume()
		all := false
		anchor := byte(0)
		if l.ch == '/' {
			all = true
			l.consume()
		} else if l.ch == '#' {
			anchor = '#'
			l.consume()
		} else if l.ch == '%' {
			anchor = '%'
			l.consume()
		}
		pat, err := l.scanModifierWordUntil('/')
		if err != nil {
			return nil, err
		}
		var repl *ast.Word
		if l.ch == '/' {
			l.consume()
			repl, err = l.scanModifierWord()
			if err != nil {
				return nil, err
			}
		}
		return ast.SubstModifier{All: all, Anchor: anchor, Pattern: pat, Repl: repl}, nil
	default:
		return nil, errAt(l.loc(l.curPos(), l.curPos()), "invalid parameter modifier")
	}
}

// scanModifierWord scans the word portion of a ${name<op>word} form,
// stopping at the closing '}' (braces inside must be balanced by
// further ${...} expansions, which scanWordUnit already understands).
func (l *Lexer) scanModifierWord() (*ast.Word, error) {
	return l.scanModifierWordUntil('}')
}

func (l *Lexer) scanModifierWordUntil(stop rune) (*ast.Word, error) {
	start := l.curPos()
	var units []ast.WordUnit
	for l.ch != stop && !l.atEOF {
		if l.ch == '}' && stop != '}' {
			break
		}
		if l.ch != '\'' && l.ch != '"' && l.ch != '\\' && l.ch != '$' && l.ch != '`' {
			// Blanks and operator characters are literal inside ${...};
			// a plain run ends at the stop rune, '}' or a quoting or
			// expansion character.
			litStart := l.curPos()
			var sb strings.Builder
			for !l.atEOF && l.ch != stop && l.ch != '}' && l.ch != '\'' && l.ch != '"' && l.ch != '\\' && l.ch != '$' && l.ch != '`' {
				sb.WriteRune(l.ch)
				l.consume()
			}
			units = append(units, ast.Unquoted{Unit: ast.Literal{Value: sb.String(), Loc: l.loc(litStart, l.curPos())}})
			continue
		}
		u, err := l.scanWordUnit(false)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return &ast.Word{Units: units, Loc: l.loc(start, l.curPos())}, nil
}

func (l *Lexer) scanCommandSubst(start int) (ast.WordUnit, error) {
	l.consume() // '('
	items, err := l.scanBalancedItems(')')
	if err != nil {
		return nil, err
	}
	return ast.Unquoted{Unit: ast.CommandSubst{Body: items, Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanArith(start int) (ast.WordUnit, error) {
	l.consume() // first '('
	l.consume() // second '('
	exprStart := l.curPos()
	depth := 1
	var sb strings.Builder
	for depth > 0 {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated $((...))")
		}
		if l.ch == '(' {
			depth++
		} else if l.ch == ')' {
			if depth == 1 && l.peekAt(1) == ')' {
				break
			}
			depth--
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	_ = exprStart
	l.consume() // first ')'
	l.consume() // second ')'
	return ast.Unquoted{Unit: ast.Arith{Expr: sb.String(), Loc: l.loc(start, l.curPos())}}, nil
}

func (l *Lexer) scanBackquote() (ast.WordUnit, error) {
	start := l.curPos()
	l.consume() // opening `
	var sb strings.Builder
	for l.ch != '`' {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated `...`")
		}
		if l.ch == '\\' {
			l.consume()
			switch l.ch {
			case '$', '`', '\\':
				sb.WriteRune(l.ch)
				l.consume()
			default:
				sb.WriteByte('\\')
			}
			continue
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
	l.consume() // closing `
	inner := New(newStringProducerAt(sb.String()), source.Origin{Kind: source.OriginCommandSubstitution}, l.resolver)
	items, err := parseItemsFrom(inner)
	if err != nil {
		return nil, err
	}
	return ast.Unquoted{Unit: ast.Backquote{Body: items, Loc: l.loc(start, l.curPos())}}, nil
}

// scanBalancedItems scans a nested list of Items up to a matching close
// rune (tracking nested parens so an inner subshell's `)` does not end
// the substitution early), then parses the captured text as a full
// program body via the package-level parseItemsFrom hook (set by
// internal/parser via RegisterItemsParser to avoid an import cycle).
func (l *Lexer) scanBalancedItems(closeRune rune) ([]*ast.Item, error) {
	start := l.curPos()
	depth := 1
	var sb strings.Builder
	inSingle, inDouble := false, false
	for depth > 0 {
		if l.atEOF {
			return nil, errAt(l.loc(start, l.curPos()), "unterminated $(...)")
		}
		switch {
		case l.ch == '\\' && !inSingle:
			sb.WriteRune(l.ch)
			l.consume()
			if !l.atEOF {
				sb.WriteRune(l.ch)
				l.consume()
			}
			continue
		case l.ch == '\'' && !inDouble:
			inSingle = !inSingle
		case l.ch == '"' && !inSingle:
			inDouble = !inDouble
		case l.ch == '(' && !inSingle && !inDouble:
			depth++
		case l.ch == ')' && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				l.consume()
				goto done
			}
		}
		sb.WriteRune(l.ch)
		l.consume()
	}
done:
	inner := New(newStringProducerAt(sb.String()), source.Origin{Kind: source.OriginCommandSubstitution}, l.resolver)
	return parseItemsFrom(inner)
}
