package state

import "fmt"

// DepBag is the "dependency bag" spec.md §3.5/§9 describes: a
// dynamic, type-indexed map of injected functions (prompt fetcher,
// read-eval-loop runner, run-function runner, trap-action runner) that
// breaks the circular dependency between the core and the
// higher-level semantics layer that hosts them, without abandoning
// static typing at the call site (each accessor below casts to a
// concrete function type once, not scattered through the codebase).
type DepBag struct {
	entries map[string]any
}

func newDepBag() *DepBag { return &DepBag{entries: map[string]any{}} }

// Install registers fn under key, overwriting any previous entry.
func (b *DepBag) Install(key string, fn any) { b.entries[key] = fn }

// Get returns the raw entry for key and whether it was installed.
func (b *DepBag) Get(key string) (any, bool) {
	v, ok := b.entries[key]
	return v, ok
}

// MustGet panics (spec.md §9: "The core panics when it needs an
// injection that has not been installed") if key was never installed,
// returning the raw value for the caller to type-assert.
func (b *DepBag) MustGet(key string) any {
	v, ok := b.entries[key]
	if !ok {
		panic(fmt.Sprintf("posh: dependency bag key %q was never installed before first use", key))
	}
	return v
}

// Well-known dependency-bag keys, installed once by cmd/posh's startup
// sequence before the first read-eval cycle (spec.md §9).
const (
	DepRunList       = "run-list"        // func(*ast.List) (Divert, error)
	DepRunFunction   = "run-function"    // func(*Function, []string) (Divert, error)
	DepFetchPrompt   = "fetch-prompt"    // func(which string) string
	DepInvokeTrap    = "invoke-trap"     // func(condition, command string) error
	DepRunCommandSub = "run-command-sub" // func([]*ast.Item) (string, int, error)
)
