package debug

import (
	"testing"
)

func TestTreeWriter_Empty(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" || tw.Nodes() != 0 {
		t.Errorf("new TreeWriter is not empty: %q, %d nodes", tw.String(), tw.Nodes())
	}
}

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 1", 1, "indented", nil, "  indented\n"},
		{"depth 2", 2, "double indent", nil, "    double indent\n"},
		{"with formatting", 1, "items: %d", []any{42}, "  items: 42\n"},
		{"multiple args", 0, "%s = %d", []any{"count", 5}, "count = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{"empty value", 0, "selector", "", "selector: \n"},
		{"with value", 0, "block", "a > b", "block: \"a > b\"\n"},
		{"nested", 2, "declaration", "color:red", "    declaration: \"color:red\"\n"},
		{"value with quotes", 0, "value", `content:"x"`, "value: \"content:\\\"x\\\"\"\n"},
		{"value with newline", 0, "comment", "/*!\nx*/", "comment: \"/*!\\nx*/\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_List(t *testing.T) {
	tw := NewTreeWriter()
	tw.List(1, "values", []string{"url(a.png)", "red"})

	want := "  values: [2]\n    0: \"url(a.png)\"\n    1: \"red\"\n"
	if got := tw.String(); got != want {
		t.Errorf("List() = %q, want %q", got, want)
	}
	if tw.Nodes() != 3 {
		t.Errorf("Nodes() = %d, want 3", tw.Nodes())
	}

	tw = NewTreeWriter()
	tw.List(0, "values", nil)
	if got := tw.String(); got != "values: [0]\n" {
		t.Errorf("List() = %q", got)
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{`say "hi"`, `"say \"hi\""`},
		{"line1\nline2", `"line1\nline2"`},
		{"col1\tcol2", `"col1\tcol2"`},
		{`a\b`, `"a\\b"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := encodeText(tt.input); got != tt.want {
				t.Errorf("encodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
