package state

import "github.com/cmdshell/posh/internal/source"

// Alias is one entry in the alias set (spec.md §3.5).
type Alias struct {
	Name        string
	Replacement string
	IsGlobal    bool
	Origin      source.Location
}

// Aliases is the Environment's alias subsystem, also implementing
// internal/lexer.AliasResolver directly so the lexer can be handed the
// Environment's alias table with no adapter glue.
type Aliases struct {
	entries map[string]*Alias
}

func newAliases() *Aliases { return &Aliases{entries: map[string]*Alias{}} }

// Lookup implements lexer.AliasResolver.
func (a *Aliases) Lookup(name string) (replacement string, global bool, ok bool) {
	e, found := a.entries[name]
	if !found {
		return "", false, false
	}
	return e.Replacement, e.IsGlobal, true
}

// Set defines or redefines an alias.
func (a *Aliases) Set(name, replacement string, isGlobal bool, origin source.Location) {
	a.entries[name] = &Alias{Name: name, Replacement: replacement, IsGlobal: isGlobal, Origin: origin}
}

// Get returns the full entry for name, or nil.
func (a *Aliases) Get(name string) *Alias { return a.entries[name] }

// Unset removes name; ok is false if it did not exist.
func (a *Aliases) Unset(name string) bool {
	if _, ok := a.entries[name]; !ok {
		return false
	}
	delete(a.entries, name)
	return true
}

// UnsetAll clears every alias (`unalias -a`).
func (a *Aliases) UnsetAll() { a.entries = map[string]*Alias{} }

// Names returns every defined alias name.
func (a *Aliases) Names() []string {
	out := make([]string, 0, len(a.entries))
	for n := range a.entries {
		out = append(out, n)
	}
	return out
}
