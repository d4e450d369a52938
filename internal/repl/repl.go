// Package repl glues input → parser → executor (spec.md §4.9): it
// decorates the raw input with the interactive prompter and verbose
// echo adapters, parses one command line at a time, executes it,
// applies the returned Divert per the propagation contract (spec.md
// §6.6), runs pending signal traps between iterations, and runs the
// EXIT trap exactly once on the way out.
package repl

import (
	"io"
	"os"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/diag"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/parser"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/trap"
)

// Exit statuses the loop itself produces (spec.md §6.1).
const (
	statusSyntaxError = 2
)

// Loop is one read-eval loop over a single input source.
type Loop struct {
	Ex     *interp.Executor
	Traps  *trap.Runner
	Origin source.Origin

	// Stderr receives diagnostics, prompts and verbose echo. Defaults
	// to os.Stderr; tests substitute a buffer.
	Stderr io.Writer

	producer input.Producer
}

// New builds a Loop reading from producer under origin. The prompter
// and echo decorators are installed here and consult the Environment's
// live option flags on every line, so `set -v` and `set +v` take
// effect mid-script (spec.md §4.1).
func New(ex *interp.Executor, traps *trap.Runner, producer input.Producer, origin source.Origin) *Loop {
	l := &Loop{Ex: ex, Traps: traps, Origin: origin, Stderr: os.Stderr}
	env := ex.Env
	producer = input.Echo(producer, writerFunc(l.errWrite), func() bool {
		return env.OptionSet("verbose")
	})
	producer = input.Prompter(producer, writerFunc(l.errWrite), func() bool {
		return env.OptionSet("interactive")
	}, l.promptText)
	l.producer = producer
	return l
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func (l *Loop) errWrite(p []byte) (int, error) { return l.Stderr.Write(p) }

// promptText resolves PS1/PS2 from the environment at prompt time.
// Prompt *rendering* (escape sequences, command substitution in PS1)
// is out of scope; the raw variable value is printed.
func (l *Loop) promptText(isFirstLine bool) string {
	name := "PS2"
	if isFirstLine {
		name = "PS1"
	}
	scalar, _, _, ok := l.Ex.Env.Vars.Lookup(name)
	if !ok {
		if isFirstLine {
			return "$ "
		}
		return "> "
	}
	return scalar
}

func (l *Loop) newParser() *parser.Parser {
	lex := lexer.New(l.producer, l.Origin, l.Ex.Env.Aliases)
	return parser.New(lex, declCheckerFor(l.Ex))
}

// declCheckerFor mirrors interp's internal declaration-utility check
// for the loop's own parser instances.
type declChecker struct{}

var declarationUtilities = map[string]bool{
	"export": true, "readonly": true, "local": true, "typeset": true,
}

func (declChecker) IsDeclarationUtility(name string) bool { return declarationUtilities[name] }

func declCheckerFor(*interp.Executor) parser.DeclUtilityChecker { return declChecker{} }

// Run drives the loop to completion and returns the shell's final exit
// status, after the EXIT trap has run. The executor's RunList hook is
// installed here so trap bodies and `eval` re-enter list execution
// through the same machinery (spec.md §3.5's dependency bag).
func (l *Loop) Run() int {
	if l.Ex.RunList == nil {
		l.Ex.RunList = func(list *ast.List) (interp.Divert, error) {
			return l.Ex.ExecList(list), nil
		}
	}
	if l.Traps != nil {
		l.Traps.Sync()
	}

	interactive := l.Ex.Env.OptionSet("interactive")
	p := l.newParser()
	status := l.Ex.Env.ExitStatus()
	for {
		list, err := p.CommandLine()
		if err != nil {
			l.reportError(err)
			if interactive {
				// Skip the offending line and keep reading: a fresh
				// parser drops the lexer's buffered state (spec.md
				// §4.3's error recovery contract is "the caller
				// decides").
				l.Ex.Env.SetExitStatus(statusSyntaxError)
				status = statusSyntaxError
				p = l.newParser()
				continue
			}
			status = statusSyntaxError
			break
		}
		if list == nil {
			status = l.Ex.Env.ExitStatus()
			break
		}
		if l.Ex.Env.OptionSet("noexec") {
			continue
		}

		d := l.Ex.ExecList(list)
		status = l.Ex.Env.ExitStatus()
		switch d.Kind {
		case interp.DivertNone:
		case interp.DivertInterrupt:
			status = d.StatusOr(status)
			l.Ex.Env.SetExitStatus(status)
			if !interactive {
				return l.finish(status)
			}
		case interp.DivertExit:
			status = d.StatusOr(status)
			return l.finish(status)
		case interp.DivertAbort:
			// Abort skips traps (spec.md §6.6).
			return d.StatusOr(status)
		case interp.DivertBreak, interp.DivertContinue, interp.DivertReturn:
			// A stray loop/function divert at the top level degrades to
			// normal completion; the built-in has already diagnosed it.
			status = d.StatusOr(status)
			l.Ex.Env.SetExitStatus(status)
		}

		if l.Traps != nil {
			if d := l.Traps.RunPending(); d.Kind == interp.DivertExit {
				return l.finish(d.StatusOr(l.Ex.Env.ExitStatus()))
			}
		}
	}
	return l.finish(status)
}

func (l *Loop) finish(status int) int {
	if l.Traps != nil {
		status = l.Traps.RunExit(status)
	}
	return status
}

func (l *Loop) reportError(err error) {
	switch e := err.(type) {
	case *diag.Diagnostic:
		io.WriteString(l.Stderr, e.Format(false)+"\n")
	case *parser.Error:
		io.WriteString(l.Stderr, diag.New(e.Loc, "%s", e.Msg).Format(false)+"\n")
	case *lexer.Error:
		io.WriteString(l.Stderr, diag.New(e.Loc, "%s", e.Msg).Format(false)+"\n")
	default:
		io.WriteString(l.Stderr, "posh: "+err.Error()+"\n")
	}
}
