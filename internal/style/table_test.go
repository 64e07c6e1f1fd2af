package style

import (
	"strings"
	"testing"
)

func TestNewTableDefaults(t *testing.T) {
	tbl := NewTable(
		Column{Name: "Agent", Width: 12},
		Column{Name: "State", Width: 10},
	)
	if tbl == nil {
		t.Fatal("NewTable() returned nil")
	}
	if len(tbl.columns) != 2 {
		t.Errorf("columns = %d, want 2", len(tbl.columns))
	}
	if !tbl.headerSep {
		t.Error("header separator should be on by default")
	}
	if tbl.indent != "  " {
		t.Errorf("indent = %q, want two spaces", tbl.indent)
	}
}

func TestTableChaining(t *testing.T) {
	tbl := NewTable(Column{Name: "ID", Width: 6})
	if tbl.SetIndent("") != tbl {
		t.Error("SetIndent should return the table")
	}
	if tbl.SetHeaderSeparator(false) != tbl {
		t.Error("SetHeaderSeparator should return the table")
	}
	if tbl.AddRow("x") != tbl {
		t.Error("AddRow should return the table")
	}
	if tbl.indent != "" || tbl.headerSep {
		t.Errorf("setters did not stick: indent=%q headerSep=%v", tbl.indent, tbl.headerSep)
	}
}

func TestAddRowPadsShortRows(t *testing.T) {
	tbl := NewTable(
		Column{Name: "ID", Width: 6},
		Column{Name: "Pattern", Width: 20},
	)
	tbl.AddRow("abc123")

	if len(tbl.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(tbl.rows))
	}
	row := tbl.rows[0]
	if len(row) != 2 {
		t.Fatalf("row len = %d, want padded to 2 cells", len(row))
	}
	if row[0] != "abc123" || row[1] != "" {
		t.Errorf("row = %v, want the value plus an empty cell", row)
	}
}

func TestRenderNoColumns(t *testing.T) {
	if out := NewTable().Render(); out != "" {
		t.Errorf("Render() with no columns = %q, want empty", out)
	}
}

func TestRenderRows(t *testing.T) {
	tbl := NewTable(
		Column{Name: "Action", Width: 12},
		Column{Name: "Rate", Width: 5},
	).SetHeaderSeparator(false).SetIndent("")
	tbl.AddRow("retry_build", "90%")
	tbl.AddRow("clean", "50%")

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus two rows: %v", len(lines), lines)
	}
	if row := stripAnsi(lines[1]); !strings.Contains(row, "retry_build") || !strings.Contains(row, "90%") {
		t.Errorf("first row missing cells: %q", row)
	}
	if row := stripAnsi(lines[2]); !strings.Contains(row, "clean") || !strings.Contains(row, "50%") {
		t.Errorf("second row missing cells: %q", row)
	}
}

func TestRenderHeaderSeparator(t *testing.T) {
	tbl := NewTable(Column{Name: "Agent", Width: 8}).SetIndent("")
	tbl.AddRow("furiosa")

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header, separator, row", len(lines))
	}
	if sep := stripAnsi(lines[1]); !strings.Contains(sep, "─") {
		t.Errorf("separator line has no rule characters: %q", sep)
	}

	// Without the separator the rule line disappears.
	tbl.SetHeaderSeparator(false)
	lines = strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("got %d lines with separator off, want 2", len(lines))
	}
}

func TestRenderIndentsEveryLine(t *testing.T) {
	tbl := NewTable(Column{Name: "ID", Width: 6}).SetIndent("    ")
	tbl.AddRow("a1")

	for _, line := range strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n") {
		if !strings.HasPrefix(line, "    ") {
			t.Errorf("line not indented: %q", line)
		}
	}
}

func TestRenderTruncatesWideCells(t *testing.T) {
	tbl := NewTable(Column{Name: "Pattern", Width: 10}).
		SetHeaderSeparator(false).SetIndent("")
	tbl.AddRow("error: build failed: missing header file")

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	cell := strings.TrimSpace(stripAnsi(lines[1]))
	if !strings.HasSuffix(cell, "...") {
		t.Errorf("wide cell not truncated with ellipsis: %q", cell)
	}
	if len(cell) > 10 {
		t.Errorf("truncated cell is %d chars, want at most the column width", len(cell))
	}
}

func TestPadAlignments(t *testing.T) {
	tbl := &Table{}
	tests := []struct {
		name  string
		align Alignment
		want  string
	}{
		{"left", AlignLeft, "ok        "},
		{"right", AlignRight, "        ok"},
		{"center", AlignCenter, "    ok    "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.pad("ok", "ok", 10, tt.align); got != tt.want {
				t.Errorf("pad = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPadAtOrOverWidth(t *testing.T) {
	tbl := &Table{}
	if got := tbl.pad("exact", "exact", 5, AlignLeft); got != "exact" {
		t.Errorf("pad at exact width = %q, want unchanged", got)
	}
	if got := tbl.pad("overflowing", "overflowing", 4, AlignRight); got != "overflowing" {
		t.Errorf("pad past width = %q, want passed through", got)
	}
}

func TestPadMeasuresPlainText(t *testing.T) {
	tbl := &Table{}
	styled := "\x1b[31mhigh\x1b[0m"
	got := tbl.pad(styled, "high", 8, AlignLeft)
	if !strings.HasPrefix(got, styled) {
		t.Errorf("pad dropped the styled text: %q", got)
	}
	if len(stripAnsi(got)) != 8 {
		t.Errorf("visible width = %d, want 8", len(stripAnsi(got)))
	}
}

func TestStripAnsi(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"\x1b[1mbold\x1b[0m", "bold"},
		{"\x1b[1m\x1b[196mstacked\x1b[0m", "stacked"},
		{"a\x1b[32mb\x1b[0mc", "abc"},
	}
	for _, tt := range tests {
		if got := stripAnsi(tt.in); got != tt.want {
			t.Errorf("stripAnsi(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAlignmentsDistinct(t *testing.T) {
	if AlignLeft == AlignRight || AlignLeft == AlignCenter || AlignRight == AlignCenter {
		t.Error("alignment constants must be distinct")
	}
}
