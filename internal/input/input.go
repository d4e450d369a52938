// Package input provides the lazy, line-oriented producers that feed the
// lexer. A [Producer] yields one line at a time; once it reports an
// error it must never be called again. Implementations exist for
// in-memory strings, byte-at-a-time file descriptor reading, and
// decorators that add interactive prompting or verbose line echo.
package input

import (
	"errors"
	"io"
)

// ErrExhausted is not returned by any Producer in this package: they
// report exhausted input as ("", io.EOF), so callers only ever need to
// check for io.EOF.
var ErrExhausted = errors.New("input: exhausted")

// Context carries state a Producer (or a decorator) may need to decide
// how to read or display the next line.
type Context struct {
	// IsFirstLine is true when this call begins a new complete command,
	// so prompting decorators can print PS1 rather than PS2.
	IsFirstLine bool
}

// Producer yields source lines on demand.
//
// NextLine returns the characters through the next newline inclusive,
// or all remaining characters at EOF, or ("", io.EOF) once input is
// exhausted. Once an error (including io.EOF) has been returned, the
// Producer must not be called again; behavior after that point is
// undefined by contract (implementations here return io.EOF forever,
// but callers must not rely on it).
type Producer interface {
	NextLine(ctx Context) (string, error)
}

// producerFunc adapts a function to the Producer interface.
type producerFunc func(ctx Context) (string, error)

func (f producerFunc) NextLine(ctx Context) (string, error) { return f(ctx) }

// String returns a Producer that yields the lines of s, splitting after
// each '\n' and returning the final partial line (if any) as the last
// non-error result.
func String(s string) Producer {
	remaining := s
	done := false
	return producerFunc(func(ctx Context) (string, error) {
		if done {
			return "", io.EOF
		}
		if remaining == "" {
			done = true
			return "", io.EOF
		}
		idx := indexByte(remaining, '\n')
		if idx < 0 {
			line := remaining
			remaining = ""
			return line, nil
		}
		line := remaining[:idx+1]
		remaining = remaining[idx+1:]
		return line, nil
	})
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Reader returns a Producer reading one byte at a time from r, stopping
// at each newline. Byte-at-a-time reads avoid overshooting redirection
// driven boundaries on seekable and unseekable streams alike: a shell
// reading its own script from fd 0 must leave bytes meant for a
// subsequent `read` or a redirected here-string untouched.
func Reader(r io.Reader) Producer {
	one := make([]byte, 1)
	done := false
	return producerFunc(func(ctx Context) (string, error) {
		if done {
			return "", io.EOF
		}
		var buf []byte
		for {
			_, err := io.ReadFull(r, one)
			b := one[0]
			if err != nil {
				done = true
				if len(buf) > 0 {
					return string(buf), nil
				}
				return "", io.EOF
			}
			buf = append(buf, b)
			if b == '\n' {
				return string(buf), nil
			}
		}
	})
}
