package input

import "io"

// PromptFunc returns the prompt text to print for the current line;
// isFirstLine distinguishes a primary prompt (PS1) from a continuation
// prompt (PS2). It is supplied by the caller (the read-eval loop) rather
// than imported directly, breaking the circular dependency between the
// leaf input layer and the environment/expansion layers that compute
// prompt text (spec's "dependency bag" pattern, applied here as a plain
// function value instead of a type-indexed map since only one hook is
// needed).
type PromptFunc func(isFirstLine bool) string

// Prompter decorates a Producer so that, when active, it writes the
// expanded prompt to w before delegating to the underlying Producer.
// Shells typically enable this only in interactive mode.
func Prompter(p Producer, w io.Writer, active func() bool, prompt PromptFunc) Producer {
	return producerFunc(func(ctx Context) (string, error) {
		if active != nil && active() && prompt != nil {
			io.WriteString(w, prompt(ctx.IsFirstLine))
		}
		return p.NextLine(ctx)
	})
}

// Echo decorates a Producer so that, when active, every line it
// successfully returns is also mirrored to w. This implements the
// `verbose` (-v) option: the shell echoes input lines as they are read,
// not as they are executed.
func Echo(p Producer, w io.Writer, active func() bool) Producer {
	return producerFunc(func(ctx Context) (string, error) {
		line, err := p.NextLine(ctx)
		if err == nil && active != nil && active() {
			io.WriteString(w, line)
		}
		return line, err
	})
}
