package interp

import (
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/diag"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/system"
)

// savedFd remembers how to undo one redirection (spec.md §4.6): either
// the fd was previously closed, or a duplicate of its old target is
// stashed to be dup2'd back.
type savedFd struct {
	fd         int
	wasOpen    bool
	dup        int
	openedTemp bool
}

// openRedirs applies redirs in order, returning the saved prior state
// (to be passed to restoreRedirs) and stopping at the first error.
func (ex *Executor) openRedirs(redirs []*ast.Redir) ([]savedFd, error) {
	var saved []savedFd
	for _, r := range redirs {
		s, err := ex.openOneRedir(r)
		if err != nil {
			ex.restoreRedirs(saved)
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func (ex *Executor) restoreRedirs(saved []savedFd) {
	for i := len(saved) - 1; i >= 0; i-- {
		s := saved[i]
		ex.Sys.Close(s.fd)
		if s.wasOpen {
			ex.Sys.Dup2(s.dup, s.fd)
			ex.Sys.Close(s.dup)
		}
	}
}

func (ex *Executor) stash(fd int) savedFd {
	dup, err := ex.Sys.Dup(fd)
	if err != nil {
		return savedFd{fd: fd, wasOpen: false}
	}
	return savedFd{fd: fd, wasOpen: true, dup: dup}
}

func (ex *Executor) openOneRedir(r *ast.Redir) (savedFd, error) {
	switch body := r.Body.(type) {
	case ast.FileRedir:
		return ex.openFileRedir(r, body)
	case ast.DupRedir:
		return ex.openDupRedir(r, body)
	case ast.HereDoc:
		return ex.openHereDoc(r, body)
	case ast.HereString:
		return ex.openHereString(r, body)
	}
	return savedFd{}, diag.New(r.Loc, "unsupported redirection")
}

func defaultFd(r *ast.Redir, writeDefault int, readDefault int, isWrite bool) int {
	if r.Fd >= 0 {
		return r.Fd
	}
	if isWrite {
		return writeDefault
	}
	return readDefault
}

func (ex *Executor) openFileRedir(r *ast.Redir, body ast.FileRedir) (savedFd, error) {
	scalar, err := ex.Expander.ExpandWordScalar(body.Path)
	if err != nil {
		return savedFd{}, err
	}
	if strings.ContainsRune(scalar, 0) {
		return savedFd{}, diag.New(r.Loc, "redirection path contains a nul byte")
	}
	isWrite := body.Op != ast.RedirRead
	fd := defaultFd(r, 1, 0, isWrite)
	saved := ex.stash(fd)

	var flags system.OpenFlag
	switch body.Op {
	case ast.RedirRead:
		flags = system.OpenRead
	case ast.RedirWrite:
		flags = system.OpenWrite | system.OpenCreate | system.OpenTruncate
		if ex.Env.OptionSet("noclobber") {
			if isDir, exists, _ := ex.Sys.Stat(scalar); exists && !isDir {
				saved2 := saved
				return saved2, diag.New(r.Loc, "%s: cannot overwrite existing file (noclobber)", scalar)
			}
		}
	case ast.RedirAppend:
		flags = system.OpenWrite | system.OpenCreate | system.OpenAppend
	case ast.RedirReadWrite:
		flags = system.OpenRead | system.OpenWrite | system.OpenCreate
	case ast.RedirClobber:
		flags = system.OpenWrite | system.OpenCreate | system.OpenTruncate
	case ast.RedirExclusive:
		flags = system.OpenWrite | system.OpenCreate | system.OpenExclusive
	}
	newFd, err := ex.Sys.Open(scalar, flags, 0666)
	if err != nil {
		return saved, diag.New(r.Loc, "%s: %v", scalar, err)
	}
	if err := ex.Sys.Dup2(newFd, fd); err != nil {
		ex.Sys.Close(newFd)
		return saved, diag.New(r.Loc, "%s: %v", scalar, err)
	}
	ex.Sys.Close(newFd)
	return saved, nil
}

func (ex *Executor) openDupRedir(r *ast.Redir, body ast.DupRedir) (savedFd, error) {
	fd := defaultFd(r, 1, 0, body.Write)
	scalar, err := ex.Expander.ExpandWordScalar(body.Src)
	if err != nil {
		return savedFd{}, err
	}
	saved := ex.stash(fd)
	if scalar == "-" {
		ex.Sys.Close(fd)
		return saved, nil
	}
	srcFd, err := strconv.Atoi(scalar)
	if err != nil || srcFd < 0 {
		return saved, diag.New(r.Loc, "%s: invalid file descriptor", scalar)
	}
	if err := ex.Sys.Dup2(srcFd, fd); err != nil {
		return saved, diag.New(r.Loc, "%d: %v", srcFd, err)
	}
	return saved, nil
}

func (ex *Executor) openHereDoc(r *ast.Redir, body ast.HereDoc) (savedFd, error) {
	fd := defaultFd(r, 0, 0, false)
	saved := ex.stash(fd)

	content := body.Content
	if !body.Quoted {
		expanded, err := ex.expandHereDocBody(content, r.Loc)
		if err != nil {
			return saved, err
		}
		content = expanded
	}
	tmpFd, err := ex.Sys.OpenTmpfile("")
	if err != nil {
		return saved, diag.New(r.Loc, "heredoc: %v", err)
	}
	if _, err := ex.Sys.Write(tmpFd, []byte(content)); err != nil {
		ex.Sys.Close(tmpFd)
		return saved, diag.New(r.Loc, "heredoc: %v", err)
	}
	ex.Sys.Lseek(tmpFd, 0, 0)
	if err := ex.Sys.Dup2(tmpFd, fd); err != nil {
		ex.Sys.Close(tmpFd)
		return saved, diag.New(r.Loc, "heredoc: %v", err)
	}
	ex.Sys.Close(tmpFd)
	return saved, nil
}

func (ex *Executor) openHereString(r *ast.Redir, body ast.HereString) (savedFd, error) {
	fd := defaultFd(r, 0, 0, false)
	saved := ex.stash(fd)
	scalar, err := ex.Expander.ExpandWordScalar(body.Word)
	if err != nil {
		return saved, err
	}
	content := scalar + "\n"
	tmpFd, err := ex.Sys.OpenTmpfile("")
	if err != nil {
		return saved, diag.New(r.Loc, "here-string: %v", err)
	}
	ex.Sys.Write(tmpFd, []byte(content))
	ex.Sys.Lseek(tmpFd, 0, 0)
	if err := ex.Sys.Dup2(tmpFd, fd); err != nil {
		ex.Sys.Close(tmpFd)
		return saved, diag.New(r.Loc, "here-string: %v", err)
	}
	ex.Sys.Close(tmpFd)
	return saved, nil
}

// expandHereDocBody expands parameter/command/arithmetic references in
// an unquoted here-document body without field splitting or pathname
// expansion (spec.md §4.6).
func (ex *Executor) expandHereDocBody(text string, loc source.Location) (string, error) {
	return ex.Expander.ExpandHereDocText(text)
}
