package state

import (
	"math/rand"
	"strconv"

	"github.com/cmdshell/posh/internal/source"
)

// Quirk marks a variable entry as backed by special live-computed
// behavior instead of a plain stored value (spec.md §3.5: "quirk:
// optional (LineNumber, Random, …)"), supplemented from yash-env per
// SPEC_FULL.md §5.1.
type Quirk int

const (
	NoQuirk Quirk = iota
	QuirkLineNumber
	QuirkRandom
)

// Variable is one entry in a variable context.
type Variable struct {
	Scalar       string
	Array        []string
	IsArray      bool
	Quirk        Quirk
	Exported     bool
	AssignedAt   source.Location
	ReadonlyAt   source.Location
	IsReadonly   bool
}

// varContext is one level of the variable-context stack (spec.md §3.5:
// "an ordered stack of contexts").
type varContext struct {
	vars map[string]*Variable
}

func newVarContext() *varContext { return &varContext{vars: map[string]*Variable{}} }

// Variables is the Environment's variable subsystem: a stack of
// contexts (the base "global" context at index 0, function-local
// contexts pushed above it) plus the live LINENO/RANDOM quirks.
type Variables struct {
	contexts   []*varContext
	currentLine int
	rng        *rand.Rand
}

func newVariables() *Variables {
	v := &Variables{contexts: []*varContext{newVarContext()}, rng: rand.New(rand.NewSource(1))}
	return v
}

// PushScope pushes a new local-variable context (entered on a function
// call when function-local scoping is enabled).
func (v *Variables) PushScope() { v.contexts = append(v.contexts, newVarContext()) }

// PopScope pops the most recently pushed local-variable context.
func (v *Variables) PopScope() {
	if len(v.contexts) > 1 {
		v.contexts = v.contexts[:len(v.contexts)-1]
	}
}

// SetCurrentLine updates the line surfaced by the LINENO quirk,
// called by the executor before running each command (SPEC_FULL.md
// §5.1).
func (v *Variables) SetCurrentLine(line int) { v.currentLine = line }

// find walks the context stack top-down looking for name, returning
// the entry and the context that holds it.
func (v *Variables) find(name string) (*Variable, *varContext) {
	for i := len(v.contexts) - 1; i >= 0; i-- {
		if e, ok := v.contexts[i].vars[name]; ok {
			return e, v.contexts[i]
		}
	}
	return nil, nil
}

func (v *Variables) quirkValue(q Quirk) string {
	switch q {
	case QuirkLineNumber:
		return strconv.Itoa(v.currentLine)
	case QuirkRandom:
		return strconv.Itoa(v.rng.Intn(32768))
	}
	return ""
}

// Lookup implements expand.Variables.
func (v *Variables) Lookup(name string) (scalar string, array []string, isArray bool, ok bool) {
	e, _ := v.find(name)
	if e == nil {
		return "", nil, false, false
	}
	if e.Quirk != NoQuirk {
		return v.quirkValue(e.Quirk), nil, false, true
	}
	return e.Scalar, e.Array, e.IsArray, true
}

// Entry returns the raw Variable entry for name, or nil if unset — used
// by builtins (`export`, `readonly`, `typeset`, `unset`) that need to
// inspect or mutate flags directly.
func (v *Variables) Entry(name string) *Variable {
	e, _ := v.find(name)
	return e
}

// ReadonlyError reports an assignment attempt against a read-only
// variable, carrying both Locations per spec.md §7.
type ReadonlyError struct {
	Name       string
	At         source.Location
	ReadonlyAt source.Location
}

func (e *ReadonlyError) Error() string { return e.Name + ": is read only" }

// Assign implements expand.Variables, writing into the base global
// context unless name already exists in a pushed context, in which case
// the innermost entry holding it is updated (spec.md §3.5; `local`
// writes into the topmost function context — AssignLocal below is used
// for that case).
func (v *Variables) Assign(name, value string) error {
	return v.assignAt(name, value, source.Location{})
}

func (v *Variables) assignAt(name, value string, loc source.Location) error {
	if e, _ := v.find(name); e != nil {
		if e.IsReadonly {
			return &ReadonlyError{Name: name, At: loc, ReadonlyAt: e.ReadonlyAt}
		}
		e.Scalar, e.IsArray, e.Array = value, false, nil
		e.AssignedAt = loc
		return nil
	}
	base := v.contexts[0]
	base.vars[name] = &Variable{Scalar: value, AssignedAt: loc}
	return nil
}

// AssignLocal writes name into the topmost (innermost) context,
// creating a fresh local entry there even if a global of the same name
// exists (the `local` builtin's semantics).
func (v *Variables) AssignLocal(name, value string, loc source.Location) error {
	top := v.contexts[len(v.contexts)-1]
	if e, ok := top.vars[name]; ok && e.IsReadonly {
		return &ReadonlyError{Name: name, At: loc, ReadonlyAt: e.ReadonlyAt}
	}
	top.vars[name] = &Variable{Scalar: value, AssignedAt: loc}
	return nil
}

// AssignArray implements expand.Variables.
func (v *Variables) AssignArray(name string, values []string) error {
	if e, _ := v.find(name); e != nil {
		if e.IsReadonly {
			return &ReadonlyError{Name: name, ReadonlyAt: e.ReadonlyAt}
		}
		e.Array, e.IsArray, e.Scalar = values, true, ""
		return nil
	}
	v.contexts[0].vars[name] = &Variable{Array: values, IsArray: true}
	return nil
}

// SetExported marks name exported, creating an empty-valued entry if
// unset.
func (v *Variables) SetExported(name string, exported bool) {
	e, _ := v.find(name)
	if e == nil {
		e = &Variable{}
		v.contexts[0].vars[name] = e
	}
	e.Exported = exported
}

// SetReadonly marks name read-only at loc, creating an empty-valued
// entry if unset.
func (v *Variables) SetReadonly(name string, loc source.Location) {
	e, _ := v.find(name)
	if e == nil {
		e = &Variable{}
		v.contexts[0].vars[name] = e
	}
	e.IsReadonly = true
	e.ReadonlyAt = loc
}

// Unset removes name from whichever context holds it; fails if
// read-only.
func (v *Variables) Unset(name string) error {
	e, ctx := v.find(name)
	if e == nil {
		return nil
	}
	if e.IsReadonly {
		return &ReadonlyError{Name: name, ReadonlyAt: e.ReadonlyAt}
	}
	delete(ctx.vars, name)
	return nil
}

// Exported returns every currently exported variable as NAME=value
// pairs, the form passed to a child process's environment.
func (v *Variables) Exported() []string {
	seen := map[string]bool{}
	var out []string
	for i := len(v.contexts) - 1; i >= 0; i-- {
		for name, e := range v.contexts[i].vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if e.Exported {
				val := e.Scalar
				if e.Quirk != NoQuirk {
					val = v.quirkValue(e.Quirk)
				}
				out = append(out, name+"="+val)
			}
		}
	}
	return out
}

// InstallQuirk registers name as backed by q (LINENO/RANDOM).
func (v *Variables) InstallQuirk(name string, q Quirk) {
	v.contexts[0].vars[name] = &Variable{Quirk: q}
}

// Names returns every variable name visible from the current scope.
func (v *Variables) Names() []string {
	seen := map[string]bool{}
	var out []string
	for i := len(v.contexts) - 1; i >= 0; i-- {
		for name := range v.contexts[i].vars {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
