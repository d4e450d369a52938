package state

import (
	"sort"

	"github.com/cmdshell/posh/internal/source"
)

// TrapAction is the disposition a trap condition currently has
// (spec.md §4.8).
type TrapAction int

const (
	TrapDefault TrapAction = iota
	TrapIgnore
	TrapCommand
)

// TrapEntry is one trap-set entry, keyed by condition ("EXIT" or a
// canonical signal name, e.g. "INT").
type TrapEntry struct {
	Condition string
	Action    TrapAction
	Command   string
	Origin    source.Location
	Pending   bool // caught-but-unhandled
}

// Traps is the Environment's trap subsystem.
type Traps struct {
	entries map[string]*TrapEntry
}

func newTraps() *Traps { return &Traps{entries: map[string]*TrapEntry{}} }

// Set installs a trap action for condition.
func (t *Traps) Set(condition string, action TrapAction, command string, origin source.Location) {
	t.entries[condition] = &TrapEntry{Condition: condition, Action: action, Command: command, Origin: origin}
}

// Get returns the entry for condition, or nil if it has never been
// set (i.e. still at the OS/process default with no recorded entry).
func (t *Traps) Get(condition string) *TrapEntry { return t.entries[condition] }

// MarkPending records that condition's signal has been caught and is
// awaiting trap execution at the next await point (spec.md §4.8, §9's
// "Signal races": the OS handler's moral equivalent sets this plain
// field; only designated await points read it).
func (t *Traps) MarkPending(condition string) {
	e, ok := t.entries[condition]
	if !ok {
		e = &TrapEntry{Condition: condition, Action: TrapDefault}
		t.entries[condition] = e
	}
	e.Pending = true
}

// DrainPending returns every entry currently pending with a Command
// action and clears their pending flags, in condition-name order;
// called by the trap runtime between commands (spec.md §4.8).
func (t *Traps) DrainPending() []*TrapEntry {
	var out []*TrapEntry
	for _, e := range t.entries {
		if e.Pending && e.Action == TrapCommand {
			out = append(out, e)
			e.Pending = false
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Condition < out[j].Condition })
	return out
}

// ResetForSubshell implements spec.md §4.8: "Subshells inherit Ignore
// and Default but reset Command actions to Default."
func (t *Traps) ResetForSubshell() *Traps {
	fresh := newTraps()
	for cond, e := range t.entries {
		switch e.Action {
		case TrapIgnore:
			fresh.entries[cond] = &TrapEntry{Condition: cond, Action: TrapIgnore}
		default:
			// Default and Command both reset to Default in the child.
		}
	}
	return fresh
}

// Names returns every condition with a recorded entry, for `trap -p`.
func (t *Traps) Names() []string {
	out := make([]string, 0, len(t.entries))
	for n := range t.entries {
		out = append(out, n)
	}
	return out
}
