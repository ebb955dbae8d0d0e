package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/starford/tidy/internal/models"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"sì\n", true},
		{"si", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Remove?")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Remove? [y/N] " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"#", "Keyword", "Folder"}, [][]string{
		{"0", "fattura", "Documenti/Fatture"},
		{"1", "screenshot"},
	}, []columnAlignment{alignRight})

	for _, want := range []string{"Keyword", "fattura", "Documenti/Fatture", "screenshot"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("table without headers should render empty")
	}
}

func TestMoveRows(t *testing.T) {
	rows := moveRows([]models.MoveResult{
		{Name: "a.pdf", Kind: "category", Folder: "Documents", Size: 2048},
		{Name: "b.txt", Kind: "rule", Folder: "../x", Error: "outside target"},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][3] != "2.0 kB" || rows[0][4] != "moved" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1][4] != "outside target" {
		t.Errorf("row 1 = %v", rows[1])
	}
}
