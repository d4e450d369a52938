// Package interp implements the executor (spec.md §4.5): a recursive,
// cooperative consumer of the AST whose node methods return a Divert
// describing any non-local control transfer, the Go analogue of the
// teacher evaluator's ExecutionContext.ControlFlow() (see
// internal/interp/evaluator/visitor_statements.go).
package interp

// DivertKind is the closed set of non-local control transfers a
// command can produce (spec.md §4.5).
type DivertKind int

const (
	// DivertNone means normal completion; the caller proceeds.
	DivertNone DivertKind = iota
	DivertBreak
	DivertContinue
	DivertReturn
	DivertInterrupt
	DivertExit
	DivertAbort
)

func (k DivertKind) String() string {
	switch k {
	case DivertNone:
		return "none"
	case DivertBreak:
		return "break"
	case DivertContinue:
		return "continue"
	case DivertReturn:
		return "return"
	case DivertInterrupt:
		return "interrupt"
	case DivertExit:
		return "exit"
	case DivertAbort:
		return "abort"
	}
	return "divert(?)"
}

// Divert is the value threaded out of every executor method. Count is
// meaningful only for Break/Continue (the `break n`/`continue n`
// operand). Status is an optional override exit status for
// Return/Interrupt/Exit/Abort; nil means "use the current $?".
type Divert struct {
	Kind   DivertKind
	Count  int
	Status *int
}

// None is the zero Divert, returned by every node that completes
// normally.
var None = Divert{Kind: DivertNone}

// IsNone reports whether d represents ordinary completion.
func (d Divert) IsNone() bool { return d.Kind == DivertNone }

// StatusOr returns d.Status if set, else fallback.
func (d Divert) StatusOr(fallback int) int {
	if d.Status != nil {
		return *d.Status
	}
	return fallback
}

func exitDivert(status int) Divert {
	s := status
	return Divert{Kind: DivertExit, Status: &s}
}

func interruptDivert(status int) Divert {
	s := status
	return Divert{Kind: DivertInterrupt, Status: &s}
}
