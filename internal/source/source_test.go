package source

import "testing"

func TestCodeAppendAndText(t *testing.T) {
	c := NewCode(1, Origin{Kind: OriginStdin})
	off1 := c.Append("echo hi\n")
	off2 := c.Append("echo bye\n")

	if off1 != 0 {
		t.Errorf("first append offset = %d, want 0", off1)
	}
	if off2 != 8 {
		t.Errorf("second append offset = %d, want 8", off2)
	}
	if got := c.Text(); got != "echo hi\necho bye\n" {
		t.Errorf("Text() = %q", got)
	}
	if c.Len() != 17 {
		t.Errorf("Len() = %d, want 17", c.Len())
	}
}

func TestLineCol(t *testing.T) {
	c := NewCode(1, Origin{Kind: OriginStdin})
	c.Append("abc\n")
	c.Append("defg\n")

	tests := []struct {
		offset    int
		wantLine  int
		wantCol   int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 1, 4}, // the newline itself
		{4, 2, 1},
		{7, 2, 4},
	}
	for _, tt := range tests {
		line, col := c.LineCol(tt.offset)
		if line != tt.wantLine || col != tt.wantCol {
			t.Errorf("LineCol(%d) = (%d,%d), want (%d,%d)", tt.offset, line, col, tt.wantLine, tt.wantCol)
		}
	}
}

func TestLineColRespectsStartLine(t *testing.T) {
	c := NewCode(10, Origin{Kind: OriginScriptFile, Name: "script.sh"})
	c.Append("first\n")
	c.Append("second\n")

	if line, _ := c.LineCol(0); line != 10 {
		t.Errorf("first line = %d, want 10", line)
	}
	if line, _ := c.LineCol(6); line != 11 {
		t.Errorf("second line = %d, want 11", line)
	}
}

func TestLineColCountsRunes(t *testing.T) {
	c := NewCode(1, Origin{})
	c.Append("héllo\n")
	// The 'o' sits at byte offset 5 ('é' is two bytes) but rune column 5.
	if _, col := c.LineCol(5); col != 5 {
		t.Errorf("column = %d, want 5", col)
	}
}

func TestLineText(t *testing.T) {
	c := NewCode(1, Origin{})
	c.Append("one\n")
	c.Append("two\n")

	if got := c.LineText(1); got != "one" {
		t.Errorf("LineText(1) = %q", got)
	}
	if got := c.LineText(2); got != "two" {
		t.Errorf("LineText(2) = %q", got)
	}
	if got := c.LineText(5); got != "" {
		t.Errorf("LineText(5) = %q, want empty", got)
	}
}

func TestLocationText(t *testing.T) {
	c := NewCode(1, Origin{})
	c.Append("echo hello\n")
	loc := Location{Code: c, Start: 5, End: 10}

	if got := loc.Text(); got != "hello" {
		t.Errorf("Text() = %q", got)
	}
	if loc.Line() != 1 || loc.Column() != 6 {
		t.Errorf("Line/Column = %d/%d, want 1/6", loc.Line(), loc.Column())
	}
	if !loc.Valid() {
		t.Error("Valid() = false for a real location")
	}
	if (Location{}).Valid() {
		t.Error("zero Location reported Valid")
	}
}
