package expand

import (
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/fnmatch"
	"github.com/cmdshell/posh/internal/source"
)

// resolved is the result of looking up a parameter name: either a
// plain scalar, or (for `@`/`*`/array variables) a list of per-element
// scalars plus a flag for how `$@` splicing should behave.
type resolved struct {
	scalar   string
	array    []string
	isArray  bool
	isAtSign bool // true only for the bare "@" special parameter
	set      bool
}

func (e *Expander) resolveParam(name string) resolved {
	switch name {
	case "@":
		return resolved{array: e.Vars.PositionalAll(), isArray: true, isAtSign: true, set: true}
	case "*":
		return resolved{array: e.Vars.PositionalAll(), isArray: true, set: true}
	case "#":
		return resolved{scalar: strconv.Itoa(e.Vars.PositionalCount()), set: true}
	case "$", "!", "-", "?", "0":
		v, ok := e.Vars.Special(name)
		return resolved{scalar: v, set: ok}
	}
	if n, err := strconv.Atoi(name); err == nil {
		v, ok := e.Vars.Positional(n)
		return resolved{scalar: v, set: ok}
	}
	scalar, array, isArray, ok := e.Vars.Lookup(name)
	return resolved{scalar: scalar, array: array, isArray: isArray, set: ok}
}

// expandParam expands a bare `$name` with no modifier.
func (e *Expander) expandParam(name string, _ ast.Modifier, loc source.Location, inDouble bool) (Field, []Field, error) {
	r := e.resolveParam(name)
	if !r.set && e.Vars.OptionSet("nounset") && !isAlwaysSetSpecial(name) {
		return nil, nil, errAt(loc, "%s: unbound variable", name)
	}
	return e.renderResolved(r, inDouble)
}

func isAlwaysSetSpecial(name string) bool {
	switch name {
	case "@", "*", "#", "$", "?", "-", "0":
		return true
	}
	return false
}

func (e *Expander) renderResolved(r resolved, inDouble bool) (Field, []Field, error) {
	if r.isArray {
		if inDouble && r.isAtSign {
			// Zero positional parameters: "$@" contributes zero fields
			// (the caller drops the enclosing quoted word entirely).
			multi := make([]Field, len(r.array))
			for i, v := range r.array {
				multi[i] = quotedSoftField(v)
			}
			return nil, multi, nil
		}
		sep := firstIFS(e.Vars.IFS())
		joined := strings.Join(r.array, sep)
		if inDouble {
			return quotedSoftField(joined), nil, nil
		}
		return softField(joined), nil, nil
	}
	if inDouble {
		return quotedSoftField(r.scalar), nil, nil
	}
	return softField(r.scalar), nil, nil
}

// expandBracedParam expands `${name}` / `${name<modifier>}`.
func (e *Expander) expandBracedParam(bp ast.BracedParam, inDouble bool) (Field, []Field, error) {
	switch mod := bp.Modifier.(type) {
	case ast.NoModifier, nil:
		return e.expandParam(bp.Name, nil, bp.Loc, inDouble)
	case ast.LengthModifier:
		r := e.resolveParam(bp.Name)
		var n int
		if r.isArray {
			n = len(r.array)
		} else {
			n = len([]rune(r.scalar))
		}
		return softField(strconv.Itoa(n)), nil, nil
	case ast.SwitchModifier:
		return e.expandSwitch(bp.Name, mod, bp.Loc, inDouble)
	case ast.TrimModifier:
		return e.expandTrim(bp.Name, mod, bp.Loc, inDouble)
	case ast.SubstModifier:
		return e.expandSubst(bp.Name, mod, bp.Loc, inDouble)
	default:
		return e.expandParam(bp.Name, nil, bp.Loc, inDouble)
	}
}

// isUnsetOrEmpty reports whether r counts as "unset or empty" for the
// ':'-flavored switch modifiers.
func (r resolved) isUnsetOrEmpty(colon bool) bool {
	if !r.set {
		return true
	}
	if !colon {
		return false
	}
	if r.isArray {
		return len(r.array) == 0
	}
	return r.scalar == ""
}

func (e *Expander) expandSwitch(name string, mod ast.SwitchModifier, loc source.Location, inDouble bool) (Field, []Field, error) {
	r := e.resolveParam(name)
	trigger := r.isUnsetOrEmpty(mod.Colon)
	switch mod.Type {
	case ast.SwitchUseDefault:
		if trigger {
			return e.expandWordAsField(mod.Word, inDouble)
		}
		return e.renderResolved(r, inDouble)
	case ast.SwitchAlternate:
		if trigger {
			return softField(""), nil, nil
		}
		return e.expandWordAsField(mod.Word, inDouble)
	case ast.SwitchError:
		if trigger {
			msg, _, err := e.expandWordAsField(mod.Word, false)
			text := msg.String()
			if err != nil {
				return nil, nil, err
			}
			if text == "" {
				text = name + ": parameter null or not set"
			}
			return nil, nil, errAt(loc, "%s", text)
		}
		return e.renderResolved(r, inDouble)
	case ast.SwitchAssign:
		if trigger {
			f, _, err := e.expandWordAsField(mod.Word, false)
			if err != nil {
				return nil, nil, err
			}
			val := f.Strip()
			if err := e.Vars.Assign(name, val); err != nil {
				return nil, nil, errAt(loc, "%s", err.Error())
			}
			r = resolved{scalar: val, set: true}
		}
		return e.renderResolved(r, inDouble)
	}
	return nil, nil, nil
}

func (e *Expander) expandWordAsField(w *ast.Word, inDouble bool) (Field, []Field, error) {
	if w == nil {
		return Field{}, nil, nil
	}
	phrase, err := e.initialExpand(w)
	if err != nil {
		return nil, nil, err
	}
	f := phrase.Flatten()
	if inDouble {
		f = markQuoted(f)
	}
	return f, nil, nil
}

func (e *Expander) expandTrim(name string, mod ast.TrimModifier, loc source.Location, inDouble bool) (Field, []Field, error) {
	r := e.resolveParam(name)
	patField, _, err := e.expandWordAsField(mod.Word, false)
	if err != nil {
		return nil, nil, err
	}
	pat := patternText(patField)
	trim := func(s string) string { return trimOne(s, pat, mod.Side, mod.Length) }
	if r.isArray {
		out := make([]string, len(r.array))
		for i, v := range r.array {
			out[i] = trim(v)
		}
		sep := firstIFS(e.Vars.IFS())
		joined := strings.Join(out, sep)
		if inDouble {
			return quotedSoftField(joined), nil, nil
		}
		return softField(joined), nil, nil
	}
	result := trim(r.scalar)
	if inDouble {
		return quotedSoftField(result), nil, nil
	}
	return softField(result), nil, nil
}

// trimOne removes the shortest/longest matching prefix/suffix pattern
// from s (spec.md §4.4's Trim modifier).
func trimOne(s, pat string, side ast.TrimSide, length ast.TrimLength) string {
	if pat == "" {
		return s
	}
	runes := []rune(s)
	if side == ast.TrimPrefix {
		if length == ast.TrimLongest {
			for i := len(runes); i >= 0; i-- {
				if ok, _ := fnmatch.Match(pat, string(runes[:i])); ok {
					return string(runes[i:])
				}
			}
		} else {
			for i := 0; i <= len(runes); i++ {
				if ok, _ := fnmatch.Match(pat, string(runes[:i])); ok {
					return string(runes[i:])
				}
			}
		}
		return s
	}
	if length == ast.TrimLongest {
		for i := 0; i <= len(runes); i++ {
			if ok, _ := fnmatch.Match(pat, string(runes[i:])); ok {
				return string(runes[:i])
			}
		}
	} else {
		for i := len(runes); i >= 0; i-- {
			if ok, _ := fnmatch.Match(pat, string(runes[i:])); ok {
				return string(runes[:i])
			}
		}
	}
	return s
}

func (e *Expander) expandSubst(name string, mod ast.SubstModifier, loc source.Location, inDouble bool) (Field, []Field, error) {
	r := e.resolveParam(name)
	patField, _, err := e.expandWordAsField(mod.Pattern, false)
	if err != nil {
		return nil, nil, err
	}
	pat := patternText(patField)
	replField, _, err := e.expandWordAsField(mod.Repl, false)
	if err != nil {
		return nil, nil, err
	}
	repl := replField.String()
	subst := func(s string) string { return substOne(s, pat, repl, mod.All, mod.Anchor) }
	if r.isArray {
		out := make([]string, len(r.array))
		for i, v := range r.array {
			out[i] = subst(v)
		}
		sep := firstIFS(e.Vars.IFS())
		joined := strings.Join(out, sep)
		if inDouble {
			return quotedSoftField(joined), nil, nil
		}
		return softField(joined), nil, nil
	}
	result := subst(r.scalar)
	if inDouble {
		return quotedSoftField(result), nil, nil
	}
	return softField(result), nil, nil
}

// substOne implements the bash-style `${name/pat/repl}` family
// (spec.md §3.4's SubstModifier, supplemented from yash-syntax).
func substOne(s, pat, repl string, all bool, anchor byte) string {
	if pat == "" {
		return s
	}
	runes := []rune(s)
	var out strings.Builder
	i := 0
	replaced := false
	for i < len(runes) {
		if replaced && !all {
			out.WriteString(string(runes[i:]))
			break
		}
		matched := false
		var matchLen int
		switch anchor {
		case '#':
			if i == 0 || all {
				for l := len(runes) - i; l >= 0; l-- {
					if ok, _ := fnmatch.Match(pat, string(runes[i:i+l])); ok {
						matched, matchLen = true, l
						break
					}
				}
			}
		case '%':
			if i+len(runes[i:]) == len(runes) {
				for l := len(runes) - i; l >= 0; l-- {
					start := len(runes) - l
					if start < i {
						continue
					}
					if ok, _ := fnmatch.Match(pat, string(runes[start:])); ok {
						out.WriteString(string(runes[i:start]))
						out.WriteString(repl)
						return out.String()
					}
				}
			}
		default:
			for l := len(runes) - i; l >= 0; l-- {
				if ok, _ := fnmatch.Match(pat, string(runes[i:i+l])); ok {
					matched, matchLen = true, l
					break
				}
			}
		}
		if matched {
			out.WriteString(repl)
			if matchLen == 0 {
				if i < len(runes) {
					out.WriteRune(runes[i])
				}
				i++
			} else {
				i += matchLen
			}
			replaced = true
			continue
		}
		out.WriteRune(runes[i])
		i++
	}
	return out.String()
}
