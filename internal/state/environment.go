// Package state implements the Environment (spec.md §3.5): variables,
// positional parameters, aliases, functions, traps, the job table,
// option flags, the execution stack, and the dependency bag, one file
// per concern the way the teacher splits internal/interp into
// environment.go/functions.go/exceptions.go/array.go (SPEC_FULL.md §4).
package state

import (
	"os"
	"strconv"
)

// Environment is the single-owner, mutable shell state every component
// of the core reaches through exclusive access at each mutation point
// (spec.md §3.5, §3.6).
type Environment struct {
	Vars       *Variables
	Pos        *Positional
	Aliases    *Aliases
	Functions  *Functions
	Traps      *Traps
	Jobs       *Jobs
	Options    *Options
	Stack      *Stack
	Deps       *DepBag

	exitStatus int
	shellPid   int
	lastBgPid  int
	shellName  string
}

// New creates an Environment with args as the initial positional
// parameters (the script's operands or `$0`'s siblings) and imports
// the startup environment variables spec.md §6.2 names.
func New(shellName string, args []string) *Environment {
	e := &Environment{
		Vars:      newVariables(),
		Pos:       newPositional(args),
		Aliases:   newAliases(),
		Functions: newFunctions(),
		Traps:     newTraps(),
		Jobs:      newJobs(),
		Options:   newOptions(),
		Stack:     newStack(),
		Deps:      newDepBag(),
		shellName: shellName,
		shellPid:  os.Getpid(),
	}
	e.importStartupVars()
	e.Vars.InstallQuirk("LINENO", QuirkLineNumber)
	e.Vars.InstallQuirk("RANDOM", QuirkRandom)
	return e
}

func (e *Environment) importStartupVars() {
	defaults := map[string]string{
		"IFS":   " \t\n",
		"PS1":   "$ ",
		"PS2":   "> ",
		"PS4":   "+ ",
		"OPTIND": "1",
	}
	for _, name := range []string{
		"PATH", "HOME", "IFS", "PS1", "PS2", "PS4", "ENV", "PWD", "OLDPWD",
		"OPTARG", "OPTIND", "PPID", "CDPATH",
	} {
		if v, ok := os.LookupEnv(name); ok {
			e.Vars.Assign(name, v)
			e.Vars.SetExported(name, true)
		} else if d, ok := defaults[name]; ok {
			e.Vars.Assign(name, d)
		}
	}
	if _, ok := os.LookupEnv("PS1"); !ok && os.Getuid() == 0 {
		e.Vars.Assign("PS1", "# ")
	}
	e.Vars.Assign("PPID", strconv.Itoa(os.Getppid()))
	e.Vars.Assign("0", shellArg0(e.shellName))
}

func shellArg0(name string) string {
	if name == "" {
		return "posh"
	}
	return name
}

// Pid returns the shell process's own pid (`$$`).
func (e *Environment) Pid() int { return e.shellPid }

// SetPid overrides the recorded shell pid. The startup wiring calls it
// with the System capability's Getpid so that `$$` and self-targeted
// `kill` agree with the System in use (the virtual one reports a fixed
// pid that differs from the test process's).
func (e *Environment) SetPid(pid int) { e.shellPid = pid }

// ExitStatus returns the last completed foreground pipeline's status.
func (e *Environment) ExitStatus() int { return e.exitStatus }

// SetExitStatus overrides the current exit status ($?).
func (e *Environment) SetExitStatus(n int) { e.exitStatus = n }

// ExitStatusPtr exposes $?'s backing storage so an Expander can be
// wired to read the same cell Environment itself reads, rather than a
// copy that drifts once cloned for a subshell.
func (e *Environment) ExitStatusPtr() *int { return &e.exitStatus }

// SetLastBgPid records `$!`, the pid of the most recently started
// asynchronous command.
func (e *Environment) SetLastBgPid(pid int) { e.lastBgPid = pid }

// IFS implements expand.Variables.
func (e *Environment) IFS() string {
	scalar, _, _, ok := e.Vars.Lookup("IFS")
	if !ok {
		return " \t\n"
	}
	return scalar
}

// OptionSet implements expand.Variables.
func (e *Environment) OptionSet(name string) bool { return e.Options.Get(name) }

// Special implements expand.Variables: `$$`, `$!`, `$-`, `$?`, `$0`.
func (e *Environment) Special(name string) (string, bool) {
	switch name {
	case "$":
		return strconv.Itoa(e.shellPid), true
	case "!":
		if e.lastBgPid == 0 {
			return "", false
		}
		return strconv.Itoa(e.lastBgPid), true
	case "-":
		return e.optionString(), true
	case "?":
		return strconv.Itoa(e.exitStatus), true
	case "0":
		scalar, _, _, ok := e.Vars.Lookup("0")
		return scalar, ok
	}
	return "", false
}

func (e *Environment) optionString() string {
	letters := []byte{}
	for letter, name := range shortFlagNames {
		if e.Options.Get(name) {
			letters = append(letters, letter)
		}
	}
	return string(letters)
}

// Lookup implements expand.Variables by delegating to Vars.
func (e *Environment) Lookup(name string) (string, []string, bool, bool) { return e.Vars.Lookup(name) }

// Assign implements expand.Variables by delegating to Vars.
func (e *Environment) Assign(name, value string) error { return e.Vars.Assign(name, value) }

// AssignArray implements expand.Variables by delegating to Vars.
func (e *Environment) AssignArray(name string, values []string) error {
	return e.Vars.AssignArray(name, values)
}

// Positional implements expand.Variables by delegating to Pos.
func (e *Environment) Positional(n int) (string, bool) { return e.Pos.Positional(n) }

// PositionalCount implements expand.Variables by delegating to Pos.
func (e *Environment) PositionalCount() int { return e.Pos.PositionalCount() }

// PositionalAll implements expand.Variables by delegating to Pos.
func (e *Environment) PositionalAll() []string { return e.Pos.PositionalAll() }

// CloneForSubshell returns a logical copy of e suitable for a
// subshell: a fresh *Environment sharing the function/alias tables
// (immutable-enough in practice; POSIX subshells may still see parent
// definitions) but with independent variable scoping, job table and
// reset trap dispositions (spec.md §3.6, §4.8).
func (e *Environment) CloneForSubshell() *Environment {
	clone := &Environment{
		Vars:       e.Vars.clone(),
		Pos:        &Positional{contexts: append([][]string(nil), e.Pos.contexts...)},
		Aliases:    e.Aliases,
		Functions:  e.Functions,
		Traps:      e.Traps.ResetForSubshell(),
		Jobs:       newJobs(),
		Options:    e.Options.clone(),
		Stack:      newStack(),
		Deps:       e.Deps,
		exitStatus: e.exitStatus,
		shellPid:   e.shellPid,
		shellName:  e.shellName,
	}
	clone.Stack.Push(Frame{Kind: FrameSubshell})
	return clone
}

func (o *Options) clone() *Options {
	cp := newOptions()
	for k, v := range o.flags {
		cp.flags[k] = v
	}
	return cp
}

func (v *Variables) clone() *Variables {
	cp := &Variables{rng: v.rng}
	for _, ctx := range v.contexts {
		nc := newVarContext()
		for name, e := range ctx.vars {
			copyE := *e
			nc.vars[name] = &copyE
		}
		cp.contexts = append(cp.contexts, nc)
	}
	return cp
}
