package builtin

import (
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
)

// echoBuiltin implements `echo [-n] operand...`. Only the -n flag is
// recognized; backslash escapes are left untouched, matching the
// XSI-less POSIX baseline.
type echoBuiltin struct{}

func (echoBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	out := strings.Join(args, " ")
	if newline {
		out += "\n"
	}
	writeOut(ex, out)
	return 0, interp.None, nil
}

// printfBuiltin implements `printf format [argument...]`. The format is
// reused until every argument is consumed, per POSIX; missing string
// arguments format as empty, missing numeric ones as zero.
type printfBuiltin struct{}

func (printfBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) < 2 {
		return 2, interp.None, usageError(argv[0], "missing format operand")
	}
	format := argv[1]
	args := argv[2:]
	var sb strings.Builder
	for {
		n, err := formatOnce(&sb, format, args)
		if err != nil {
			writeOut(ex, sb.String())
			return 1, interp.None, usageError(argv[0], "%s", err.Error())
		}
		args = args[n:]
		// Re-run the format only while arguments remain and the format
		// actually consumes some, or printf would loop forever.
		if len(args) == 0 || n == 0 {
			break
		}
	}
	writeOut(ex, sb.String())
	return 0, interp.None, nil
}

// formatOnce renders format once into sb, consuming arguments for each
// conversion, and reports how many arguments it used.
func formatOnce(sb *strings.Builder, format string, args []string) (used int, err error) {
	nextArg := func() string {
		if used < len(args) {
			s := args[used]
			used++
			return s
		}
		return ""
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '\\':
			if i+1 < len(format) {
				i++
				sb.WriteString(unescapeOne(format[i]))
			} else {
				sb.WriteByte('\\')
			}
		case '%':
			if i+1 >= len(format) {
				sb.WriteByte('%')
				continue
			}
			i++
			switch format[i] {
			case '%':
				sb.WriteByte('%')
			case 's':
				sb.WriteString(nextArg())
			case 'c':
				if s := nextArg(); s != "" {
					sb.WriteString(string([]rune(s)[:1]))
				}
			case 'd', 'i':
				n, perr := parsePrintfInt(nextArg())
				if perr != nil {
					return used, perr
				}
				sb.WriteString(strconv.FormatInt(n, 10))
			case 'o':
				n, perr := parsePrintfInt(nextArg())
				if perr != nil {
					return used, perr
				}
				sb.WriteString(strconv.FormatInt(n, 8))
			case 'x':
				n, perr := parsePrintfInt(nextArg())
				if perr != nil {
					return used, perr
				}
				sb.WriteString(strconv.FormatInt(n, 16))
			case 'X':
				n, perr := parsePrintfInt(nextArg())
				if perr != nil {
					return used, perr
				}
				sb.WriteString(strings.ToUpper(strconv.FormatInt(n, 16)))
			case 'u':
				n, perr := parsePrintfInt(nextArg())
				if perr != nil {
					return used, perr
				}
				sb.WriteString(strconv.FormatUint(uint64(n), 10))
			default:
				return used, usageError("printf", "%%%c: invalid conversion", format[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return used, nil
}

func unescapeOne(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '\\':
		return "\\"
	case '0':
		return "\x00"
	}
	return "\\" + string(c)
}

// parsePrintfInt parses a numeric printf argument: empty counts as
// zero, and a leading quote makes the next character's value the
// number, both per POSIX.
func parsePrintfInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if s[0] == '\'' || s[0] == '"' {
		r := []rune(s[1:])
		if len(r) == 0 {
			return 0, nil
		}
		return int64(r[0]), nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, usageError("printf", "%s: expected a numeric value", s)
	}
	return n, nil
}
