package interp

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/parser"
	"github.com/cmdshell/posh/internal/source"
)

// parseText parses one complete_command out of text (a trap action, an
// `eval` operand, or a dot-script body) tagging the resulting source
// with origin, reusing the alias table so the parsed text sees the
// same aliases the interactive shell would (spec.md §4.8, §4.2).
func (ex *Executor) parseText(text string, origin source.Origin) (*ast.List, error) {
	lex := lexer.New(input.String(text), origin, ex.Env.Aliases)
	p := parser.New(lex, declChecker{ex.Builtins})
	return p.CommandLine()
}

// newParser is parseText's reusable half: one Lexer/Parser pair over
// text, so RunText can call CommandLine() repeatedly to drain every
// complete_command text contains (eval/dot-script bodies are rarely a
// single command) without re-lexing from the start each time.
func (ex *Executor) newParser(text string, origin source.Origin) *parser.Parser {
	lex := lexer.New(input.String(text), origin, ex.Env.Aliases)
	return parser.New(lex, declChecker{ex.Builtins})
}

// RunText parses text under origin and executes every resulting
// top-level List in sequence against this Executor, stopping at the
// first error or Divert. It is the shared implementation behind
// `eval`, `.`/`source`, and trap action bodies (spec.md §4.8, §6.4):
// each of those built-ins lives in internal/builtin, which cannot
// reach the unexported parseText, so this method is the public seam
// between the two packages (the "dependency bag" pattern of spec.md §9
// applied as a plain exported method instead of a type-indexed map).
func (ex *Executor) RunText(text string, origin source.Origin) (Divert, error) {
	p := ex.newParser(text, origin)
	for {
		list, err := p.CommandLine()
		if err != nil {
			return None, err
		}
		if list == nil {
			return None, nil
		}
		if d := ex.ExecList(list); !d.IsNone() {
			return d, nil
		}
	}
}

// declChecker adapts BuiltinLookup to parser.DeclUtilityChecker: a
// built-in is a declaration utility (spec.md §4.3) iff it is one of
// the fixed set that assigns variables through its operands.
type declChecker struct{ lookup BuiltinLookup }

var declarationUtilities = map[string]bool{
	"export":   true,
	"readonly": true,
	"local":    true,
	"typeset":  true,
}

func (d declChecker) IsDeclarationUtility(name string) bool { return declarationUtilities[name] }
