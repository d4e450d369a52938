package builtin

import (
	"fmt"
	"strconv"

	"github.com/cmdshell/posh/internal/interp"
)

// usageError formats a built-in's diagnostic the way the teacher's CLI
// layer formats its own: "name: message".
func usageError(name, format string, args ...any) error {
	return fmt.Errorf("%s: %s", name, fmt.Sprintf(format, args...))
}

func writeOut(ex *interp.Executor, s string) {
	ex.Sys.Write(ex.Stdout, []byte(s))
}

func writeErr(ex *interp.Executor, s string) {
	ex.Sys.Write(ex.Stderr, []byte(s))
}

// parseOptionalInt parses the integer operand argv[idx] (e.g. of
// `break`/`continue`/`return`/`exit`/`shift`), defaulting to def when
// argv carries none.
func parseOptionalInt(argv []string, idx int, def int) (int, error) {
	if len(argv) <= idx {
		return def, nil
	}
	return strconv.Atoi(argv[idx])
}
