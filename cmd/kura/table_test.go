package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsAndAligns(t *testing.T) {
	out := renderTable([]string{"Phase", "Count", "Note"}, [][]string{
		{"Filed", "12"},
		{"Failed", "3", "see log"},
	})
	lines := strings.Split(out, "\n")
	var filed string
	for _, line := range lines {
		if strings.Contains(line, "Filed") {
			filed = line
		}
	}
	if filed == "" {
		t.Fatalf("missing row in:\n%s", out)
	}
	if !strings.Contains(filed, "    12 │") {
		t.Fatalf("count column should be right-aligned, got %q", filed)
	}
	if !strings.Contains(out, "see log") {
		t.Fatalf("missing note cell:\n%s", out)
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if got := renderTable(nil, [][]string{{"x"}}); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
