package builtin

import (
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
)

// readBuiltin implements `read [-r] var...` (spec.md §4.7): read one
// line from standard input byte at a time (so a following command sees
// the rest of the stream), split it by IFS, and assign the fields to
// the named variables, with the last variable absorbing any remainder.
type readBuiltin struct{}

func (readBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	raw := false
	if len(args) > 0 && args[0] == "-r" {
		raw = true
		args = args[1:]
	}
	if len(args) == 0 {
		return 2, interp.None, usageError(argv[0], "missing variable operand")
	}
	for _, name := range args {
		if !isName(name) {
			return 2, interp.None, usageError(argv[0], "%s: not a valid variable name", name)
		}
	}

	line, eof, err := readLine(ex, raw)
	if err != nil {
		return 1, interp.None, err
	}
	// A caught signal during the blocking read surfaces at this await
	// point (spec.md §5: `read` explicitly checks for caught signals).
	if d := ex.DrainTraps(); !d.IsNone() {
		return 1, d, nil
	}

	fields := splitByIFS(line, ex.Env.IFS(), len(args))
	for i, name := range args {
		value := ""
		if i < len(fields) {
			value = fields[i]
		}
		if err := ex.Env.Vars.Assign(name, value); err != nil {
			return 1, interp.None, err
		}
	}
	if eof && line == "" {
		return 1, interp.None, nil
	}
	return 0, interp.None, nil
}

// readLine reads through the next unescaped newline. Without -r, a
// backslash-newline pair continues the line and a backslash escapes
// the next character.
func readLine(ex *interp.Executor, raw bool) (line string, eof bool, err error) {
	var sb strings.Builder
	escaped := false
	buf := make([]byte, 1)
	for {
		n, rerr := ex.Sys.Read(ex.Stdin, buf)
		if rerr != nil {
			return sb.String(), false, rerr
		}
		if n == 0 {
			return sb.String(), true, nil
		}
		c := buf[0]
		if !raw && !escaped && c == '\\' {
			escaped = true
			continue
		}
		if c == '\n' {
			if escaped {
				escaped = false
				continue
			}
			return sb.String(), false, nil
		}
		escaped = false
		sb.WriteByte(c)
	}
}

// splitByIFS splits line into at most max fields: the final field
// keeps the remainder of the line (with trailing IFS whitespace
// removed), per POSIX read semantics.
func splitByIFS(line, ifs string, max int) []string {
	if ifs == "" || max == 1 {
		return []string{trimIFSWhitespace(line, ifs)}
	}
	isIFS := func(r rune) bool { return strings.ContainsRune(ifs, r) }
	var fields []string
	rest := strings.TrimLeftFunc(line, func(r rune) bool { return isIFS(r) && isIFSWhitespace(r) })
	for len(fields) < max-1 && rest != "" {
		idx := strings.IndexFunc(rest, isIFS)
		if idx < 0 {
			break
		}
		fields = append(fields, rest[:idx])
		rest = strings.TrimLeftFunc(rest[idx:], isIFS)
	}
	if rest != "" || len(fields) == 0 {
		fields = append(fields, trimIFSWhitespace(rest, ifs))
	}
	return fields
}

func isIFSWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }

func trimIFSWhitespace(s, ifs string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return strings.ContainsRune(ifs, r) && isIFSWhitespace(r)
	})
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && !(i > 0 && r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// getoptsBuiltin implements `getopts optstring name [arg...]` (spec.md
// §4.7): one option per invocation, driven by OPTIND, reporting the
// option character in name and its argument in OPTARG.
type getoptsBuiltin struct{}

func (getoptsBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) < 3 {
		return 2, interp.None, usageError(argv[0], "missing operand")
	}
	optstring, name := argv[1], argv[2]
	if !isName(name) {
		return 2, interp.None, usageError(argv[0], "%s: not a valid variable name", name)
	}
	args := argv[3:]
	if len(args) == 0 {
		args = ex.Env.Pos.PositionalAll()
	}
	silent := strings.HasPrefix(optstring, ":")
	if silent {
		optstring = optstring[1:]
	}

	optind := 1
	if s, _, _, ok := ex.Env.Vars.Lookup("OPTIND"); ok {
		if n, err := parseOptionalInt([]string{s}, 0, 1); err == nil && n > 0 {
			optind = n
		}
	}
	// The sub-index within a clustered option group (-abc) rides in the
	// high bits of OPTIND the way most shells encode it; here a simpler
	// scheme is used: OPTIND counts consumed argv entries and clusters
	// are re-scanned via OPTPOS, an internal variable.
	optpos := 0
	if s, _, _, ok := ex.Env.Vars.Lookup("OPTPOS"); ok {
		if n, err := parseOptionalInt([]string{s}, 0, 0); err == nil {
			optpos = n
		}
	}

	done := func() (int, interp.Divert, error) {
		ex.Env.Vars.Assign(name, "?")
		ex.Env.Vars.Unset("OPTPOS")
		return 1, interp.None, nil
	}

	if optind > len(args) {
		return done()
	}
	cur := args[optind-1]
	if optpos == 0 {
		if cur == "--" {
			ex.Env.Vars.Assign("OPTIND", strconv.Itoa(optind+1))
			return done()
		}
		if len(cur) < 2 || cur[0] != '-' {
			return done()
		}
		optpos = 1
	}

	opt := cur[optpos]
	specIdx := strings.IndexByte(optstring, opt)
	wantsArg := specIdx >= 0 && specIdx+1 < len(optstring) && optstring[specIdx+1] == ':'

	advance := func(toNext bool) {
		if toNext || optpos+1 >= len(cur) {
			ex.Env.Vars.Assign("OPTIND", strconv.Itoa(optind+1))
			ex.Env.Vars.Unset("OPTPOS")
		} else {
			ex.Env.Vars.Assign("OPTPOS", strconv.Itoa(optpos+1))
		}
	}

	if specIdx < 0 || opt == ':' {
		advance(false)
		if silent {
			ex.Env.Vars.Assign(name, "?")
			ex.Env.Vars.Assign("OPTARG", string(opt))
		} else {
			ex.Env.Vars.Assign(name, "?")
			ex.Env.Vars.Unset("OPTARG")
			writeErr(ex, argv[0]+": -"+string(opt)+": unknown option\n")
		}
		return 0, interp.None, nil
	}

	if wantsArg {
		var optarg string
		if optpos+1 < len(cur) {
			optarg = cur[optpos+1:]
			ex.Env.Vars.Assign("OPTIND", strconv.Itoa(optind+1))
			ex.Env.Vars.Unset("OPTPOS")
		} else if optind < len(args) {
			optarg = args[optind]
			ex.Env.Vars.Assign("OPTIND", strconv.Itoa(optind+2))
			ex.Env.Vars.Unset("OPTPOS")
		} else {
			ex.Env.Vars.Assign("OPTIND", strconv.Itoa(optind+1))
			ex.Env.Vars.Unset("OPTPOS")
			if silent {
				ex.Env.Vars.Assign(name, ":")
				ex.Env.Vars.Assign("OPTARG", string(opt))
			} else {
				ex.Env.Vars.Assign(name, "?")
				ex.Env.Vars.Unset("OPTARG")
				writeErr(ex, argv[0]+": -"+string(opt)+": option requires an argument\n")
			}
			return 0, interp.None, nil
		}
		ex.Env.Vars.Assign(name, string(opt))
		ex.Env.Vars.Assign("OPTARG", optarg)
		return 0, interp.None, nil
	}

	advance(false)
	ex.Env.Vars.Assign(name, string(opt))
	ex.Env.Vars.Unset("OPTARG")
	return 0, interp.None, nil
}

