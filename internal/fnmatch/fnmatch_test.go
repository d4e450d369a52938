package fnmatch

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pat   string
		name  string
		want  bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"?", "a", true},
		{"?", "ab", false},
		{"a*b", "ab", true},
		{"a*b", "axxb", true},
		{"a*b", "axxc", false},
		{"[abc]", "b", true},
		{"[abc]", "d", false},
		{"[!abc]", "d", true},
		{"[a-c]x", "bx", true},
		{"*.go", "main.go", true},
		{"*.go", "main.gox", false},
		{"*2", "12312312", true},
		{"*2", "123123123", false},
		{`\*`, "*", true},
		{`\*`, "x", false},
		// Full-string semantics: a pattern never matches a proper
		// substring of the subject.
		{"a", "xax", false},
		{"2*", "123", false},
	}
	for _, tt := range tests {
		t.Run(tt.pat+"/"+tt.name, func(t *testing.T) {
			got, err := Match(tt.pat, tt.name)
			if err != nil {
				t.Fatalf("Match(%q, %q) error: %v", tt.pat, tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pat, tt.name, got, tt.want)
			}
		})
	}
}

func TestTranslateFilenameMode(t *testing.T) {
	re, err := Translate("*.txt", true)
	if err != nil {
		t.Fatal(err)
	}
	if re.MatchString("dir/file.txt") {
		t.Error("filename-mode * crossed a path separator")
	}
	if !re.MatchString("file.txt") {
		t.Error("filename-mode pattern failed on a plain name")
	}
}

func TestHasMeta(t *testing.T) {
	tests := []struct {
		pat  string
		want bool
	}{
		{"plain", false},
		{"has*star", true},
		{"has?mark", true},
		{"has[class", true},
		{`escaped\*`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasMeta(tt.pat); got != tt.want {
			t.Errorf("HasMeta(%q) = %v, want %v", tt.pat, got, tt.want)
		}
	}
}
