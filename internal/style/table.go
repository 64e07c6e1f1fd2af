// Package style provides terminal output styling for the mech CLI:
// a fixed-width table renderer and the severity/disposition palette.
package style

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alignment controls how a cell is padded within its column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column describes one table column.
type Column struct {
	Name  string
	Width int
	Align Alignment
}

// Table renders rows of fixed-width columns with an optional header
// separator. Values wider than their column are truncated with an
// ellipsis.
type Table struct {
	columns   []Column
	rows      [][]string
	headerSep bool
	indent    string
}

// NewTable creates a table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		headerSep: true,
		indent:    "  ",
	}
}

// SetIndent sets the prefix for every rendered line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator controls the rule between header and rows.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row. Missing trailing values render as empty cells.
func (t *Table) AddRow(values ...string) *Table {
	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
	return t
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)

// Render produces the table as a string, one trailing newline per line.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(t.indent)
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(t.pad(headerStyle.Render(col.Name), col.Name, col.Width, col.Align))
	}
	b.WriteString("\n")

	if t.headerSep {
		b.WriteString(t.indent)
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(strings.Repeat("─", col.Width))
		}
		b.WriteString("\n")
	}

	for _, row := range t.rows {
		b.WriteString(t.indent)
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString("  ")
			}
			cell := row[i]
			plain := stripAnsi(cell)
			if len(plain) > col.Width {
				// Styled overlong cells lose their styling on truncation.
				if col.Width > 3 {
					cell = plain[:col.Width-3] + "..."
				} else {
					cell = plain[:col.Width]
				}
				plain = cell
			}
			b.WriteString(t.pad(cell, plain, col.Width, col.Align))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// pad aligns styled text within width using the plain (unstyled) text
// for measurement. Text at or beyond the width passes through as-is.
func (t *Table) pad(styled, plain string, width int, align Alignment) string {
	gap := width - len(plain)
	if gap <= 0 {
		return styled
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + styled
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", gap-left)
	default:
		return styled + strings.Repeat(" ", gap)
	}
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripAnsi removes ANSI SGR sequences so widths measure visible text.
func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
