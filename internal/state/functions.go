package state

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/source"
)

// Function is a name-keyed function-set entry (spec.md §3.5): Body is
// shared by reference with every invocation frame, never cloned.
type Function struct {
	Name     string
	Body     *ast.FunctionBody
	Origin   source.Location
	Readonly bool
}

// Functions is the Environment's function subsystem.
type Functions struct {
	entries map[string]*Function
}

func newFunctions() *Functions { return &Functions{entries: map[string]*Function{}} }

// Define registers or replaces a function; fails if an existing entry
// of the same name is read-only (spec.md §4.5: "FunctionDefinition:
// ... an existing read-only function is a failure").
func (f *Functions) Define(name string, body *ast.FunctionBody, origin source.Location) error {
	if e, ok := f.entries[name]; ok && e.Readonly {
		return &ReadonlyError{Name: name, ReadonlyAt: e.Origin}
	}
	f.entries[name] = &Function{Name: name, Body: body, Origin: origin}
	return nil
}

// Lookup returns the entry registered for name, or nil.
func (f *Functions) Lookup(name string) *Function { return f.entries[name] }

// SetReadonly marks an existing function read-only; ok is false if it
// is not defined.
func (f *Functions) SetReadonly(name string) bool {
	e, ok := f.entries[name]
	if !ok {
		return false
	}
	e.Readonly = true
	return true
}

// Unset removes name; fails if read-only.
func (f *Functions) Unset(name string) error {
	e, ok := f.entries[name]
	if !ok {
		return nil
	}
	if e.Readonly {
		return &ReadonlyError{Name: name, ReadonlyAt: e.Origin}
	}
	delete(f.entries, name)
	return nil
}

// Names returns every defined function name.
func (f *Functions) Names() []string {
	out := make([]string, 0, len(f.entries))
	for n := range f.entries {
		out = append(out, n)
	}
	return out
}
