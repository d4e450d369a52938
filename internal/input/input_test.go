package input

import (
	"io"
	"strings"
	"testing"
)

func drain(t *testing.T, p Producer) []string {
	t.Helper()
	var lines []string
	first := true
	for {
		line, err := p.NextLine(Context{IsFirstLine: first})
		first = false
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("NextLine error: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestStringSplitsAfterNewlines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one\n", []string{"one\n"}},
		{"one\ntwo\n", []string{"one\n", "two\n"}},
		{"no trailing newline", []string{"no trailing newline"}},
		{"a\nb", []string{"a\n", "b"}},
		{"\n\n", []string{"\n", "\n"}},
	}
	for _, tt := range tests {
		got := drain(t, String(tt.in))
		if len(got) != len(tt.want) {
			t.Fatalf("String(%q) yielded %q, want %q", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("String(%q) line %d = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestStringStaysExhausted(t *testing.T) {
	p := String("x\n")
	p.NextLine(Context{})
	if _, err := p.NextLine(Context{}); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
	if _, err := p.NextLine(Context{}); err != io.EOF {
		t.Fatalf("expected EOF to persist, got %v", err)
	}
}

func TestReaderLineBoundaries(t *testing.T) {
	p := Reader(strings.NewReader("first\nsecond"))
	got := drain(t, p)
	want := []string{"first\n", "second"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Reader lines = %q, want %q", got, want)
	}
}

func TestPrompterWritesPS1ThenPS2(t *testing.T) {
	var prompts strings.Builder
	active := true
	p := Prompter(String("a\nb\n"), &prompts, func() bool { return active }, func(first bool) string {
		if first {
			return "$ "
		}
		return "> "
	})

	p.NextLine(Context{IsFirstLine: true})
	p.NextLine(Context{IsFirstLine: false})
	if prompts.String() != "$ > " {
		t.Errorf("prompt stream = %q, want %q", prompts.String(), "$ > ")
	}
}

func TestPrompterInactive(t *testing.T) {
	var prompts strings.Builder
	p := Prompter(String("a\n"), &prompts, func() bool { return false }, func(bool) string { return "$ " })
	p.NextLine(Context{IsFirstLine: true})
	if prompts.String() != "" {
		t.Errorf("inactive prompter wrote %q", prompts.String())
	}
}

func TestEchoMirrorsLines(t *testing.T) {
	var echoed strings.Builder
	on := true
	p := Echo(String("one\ntwo\n"), &echoed, func() bool { return on })

	p.NextLine(Context{})
	on = false
	p.NextLine(Context{})
	if echoed.String() != "one\n" {
		t.Errorf("echoed = %q, want %q", echoed.String(), "one\n")
	}
}
