package main

import (
	"fmt"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// LengthError means a table could not be laid out as 16x16.
type LengthError struct {
	Got int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("expected %d values, got %d", sboxSize, e.Got)
}

// Grid is the 17x17 textual layout of an S-Box: one header row, one header
// column, and 16x16 hex cells. Cells[0][0] is empty.
type Grid struct {
	Cells [gridSize + 1][gridSize + 1]string
}

func BuildGrid(s SBox) (Grid, error) {
	var g Grid
	if len(s) != sboxSize {
		return g, &LengthError{Got: len(s)}
	}
	for i := 0; i < gridSize; i++ {
		digit := fmt.Sprintf("%X", i)
		g.Cells[0][i+1] = digit
		g.Cells[i+1][0] = digit
	}
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			g.Cells[r+1][c+1] = hexByte(s[r*gridSize+c])
		}
	}
	return g, nil
}

// Cell returns the interior cell at row r, column c (both 0..15).
func (g Grid) Cell(r, c int) string { return g.Cells[r+1][c+1] }

// Text is the plain, unstyled grid, one row per line.
func (g Grid) Text() string {
	var sb strings.Builder
	for _, row := range g.Cells {
		for i, cell := range row {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%2s", cell)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

var (
	gridHeaderStyle = styles.NewStyle().Foreground(selectedColor).Bold(true).Padding(0, 1)
	gridCellStyle   = styles.NewStyle().Padding(0, 1)
	gridBadStyle    = gridCellStyle.Foreground(dangerColor)
)

func renderGrid(g Grid) string {
	headers := make([]string, 0, gridSize+1)
	headers = append(headers, g.Cells[0][:]...)
	rows := make([][]string, 0, gridSize)
	for _, row := range g.Cells[1:] {
		rows = append(rows, row[:])
	}
	t := table.New().
		Border(styles.NormalBorder()).
		BorderStyle(borderFg).
		BorderColumn(false).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) styles.Style {
			if row == table.HeaderRow || col == 0 {
				return gridHeaderStyle
			}
			if g.Cells[row+1][col] == "--" {
				return gridBadStyle
			}
			return gridCellStyle
		})
	return t.Render()
}
