package diag

import (
	"strings"
	"testing"

	"github.com/cmdshell/posh/internal/source"
)

func testLoc(text string, start, end int) source.Location {
	c := source.NewCode(1, source.Origin{Kind: source.OriginScriptFile, Name: "test.sh"})
	c.Append(text)
	return source.Location{Code: c, Start: start, End: end}
}

func TestFormatWithSnippet(t *testing.T) {
	loc := testLoc("echo 'oops\n", 5, 10)
	got := New(loc, "unterminated single-quoted string").Format(false)

	if !strings.Contains(got, "test.sh:1:6: unterminated single-quoted string") {
		t.Errorf("header missing: %q", got)
	}
	if !strings.Contains(got, "echo 'oops") {
		t.Errorf("source excerpt missing: %q", got)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	caretCol := strings.IndexByte(lines[2], '^')
	srcCol := strings.Index(lines[1], "'")
	if caretCol != srcCol {
		t.Errorf("caret at column %d, quote at column %d:\n%s", caretCol, srcCol, got)
	}
}

func TestFormatWithoutLocation(t *testing.T) {
	got := New(source.Location{}, "plain message").Format(false)
	if got != "plain message" {
		t.Errorf("Format = %q", got)
	}
}

func TestAnnotations(t *testing.T) {
	loc := testLoc("cat <<EOF\n", 4, 6)
	d := New(loc, "unterminated here-document").
		Annotate(testLoc("cat <<EOF\n", 6, 9), "delimiter declared here")
	got := d.Format(false)

	if !strings.Contains(got, "unterminated here-document") {
		t.Errorf("primary missing: %q", got)
	}
	if !strings.Contains(got, "delimiter declared here") {
		t.Errorf("annotation missing: %q", got)
	}
}

func TestColorEscapes(t *testing.T) {
	loc := testLoc("x\n", 0, 1)
	plain := New(loc, "msg").Format(false)
	colored := New(loc, "msg").Format(true)
	if strings.Contains(plain, "\033[") {
		t.Error("plain output contains ANSI escapes")
	}
	if !strings.Contains(colored, "\033[") {
		t.Error("colored output lacks ANSI escapes")
	}
}

func TestFormatAll(t *testing.T) {
	d1 := New(source.Location{}, "first")
	d2 := New(source.Location{}, "second")
	got := FormatAll([]*Diagnostic{d1, d2}, false)
	if got != "first\n\nsecond" {
		t.Errorf("FormatAll = %q", got)
	}
}
