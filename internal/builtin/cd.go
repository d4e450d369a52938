package builtin

import (
	"path/filepath"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
)

// cdBuiltin implements `cd [-LP] [dir]` (a Non-goal's semantic depth,
// spec.md §5.1, but CDPATH search is cheap and exercises the
// variable): resolves dir against CDPATH when relative, `-` reuses
// $OLDPWD, and a bare `cd` goes to $HOME.
type cdBuiltin struct{}

func (cdBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	for len(args) > 0 && (args[0] == "-L" || args[0] == "-P") {
		args = args[1:]
	}

	var target string
	printed := false
	switch {
	case len(args) == 0:
		home, _, _, ok := ex.Env.Lookup("HOME")
		if !ok || home == "" {
			return 1, interp.None, usageError(argv[0], "HOME not set")
		}
		target = home
	case args[0] == "-":
		old, _, _, ok := ex.Env.Lookup("OLDPWD")
		if !ok || old == "" {
			return 1, interp.None, usageError(argv[0], "OLDPWD not set")
		}
		target = old
		printed = true
	default:
		target = args[0]
	}

	dir := resolveCdTarget(ex, target)
	if err := ex.Sys.Chdir(dir); err != nil {
		return 1, interp.None, usageError(argv[0], "%s: %v", target, err)
	}

	prevPwd, _, _, _ := ex.Env.Lookup("PWD")
	cwd, err := ex.Sys.Getcwd()
	if err != nil {
		cwd = dir
	}
	ex.Env.Vars.Assign("OLDPWD", prevPwd)
	ex.Env.Vars.Assign("PWD", cwd)
	if printed {
		writeOut(ex, cwd+"\n")
	}
	return 0, interp.None, nil
}

// resolveCdTarget implements CDPATH search (SPEC_FULL.md §5.1): a
// relative, non-dot-prefixed target is looked up under each CDPATH
// entry in turn, falling back to the plain relative path if none
// contains it.
func resolveCdTarget(ex *interp.Executor, target string) string {
	if filepath.IsAbs(target) || strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") || target == "." || target == ".." {
		return target
	}
	cdpath, _, _, ok := ex.Env.Lookup("CDPATH")
	if !ok || cdpath == "" {
		return target
	}
	for _, dir := range strings.Split(cdpath, ":") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, target)
		if isDir, exists, _ := ex.Sys.Stat(candidate); exists && isDir {
			return candidate
		}
	}
	return target
}
