package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// cellStyle is the look of one terminal cell. Comparable so runs of equal
// cells can be rendered as one lipgloss segment.
type cellStyle struct {
	Fg, Bg    string
	Bold      bool
	Faint     bool
	Underline bool
}

func (s cellStyle) lipgloss() lipgloss.Style {
	st := lipgloss.NewStyle().Bold(s.Bold).Faint(s.Faint).Underline(s.Underline)
	if s.Fg != "" {
		st = st.Foreground(lipgloss.Color(s.Fg))
	}
	if s.Bg != "" {
		st = st.Background(lipgloss.Color(s.Bg))
	}
	return st
}

type cell struct {
	ch    rune
	style cellStyle
	key   string
}

// grid is a fixed-size character canvas that remembers which region key
// each cell belongs to.
type grid struct {
	w, h  int
	cells [][]cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([][]cell, h)}
	for y := range g.cells {
		row := make([]cell, w)
		for x := range row {
			row[x].ch = ' '
		}
		g.cells[y] = row
	}
	return g
}

// put writes text at (x, y). A non-empty key makes every written cell
// clickable. Text past the right edge is clipped.
func (g *grid) put(x, y int, text string, st cellStyle, key string) int {
	if y < 0 || y >= g.h {
		return x
	}
	for _, r := range text {
		if x >= 0 && x < g.w {
			g.cells[y][x] = cell{ch: r, style: st, key: key}
		}
		x++
	}
	return x
}

// at returns the region key under (x, y).
func (g *grid) at(x, y int) (string, bool) {
	if y < 0 || y >= g.h || x < 0 || x >= g.w {
		return "", false
	}
	k := g.cells[y][x].key
	return k, k != ""
}

// line returns row y without styling.
func (g *grid) line(y int) string {
	var b strings.Builder
	for _, c := range g.cells[y] {
		b.WriteRune(c.ch)
	}
	return strings.TrimRight(b.String(), " ")
}

func (g *grid) render() string {
	var b strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].style == row[start].style {
				continue
			}
			var seg strings.Builder
			for _, c := range row[start:x] {
				seg.WriteRune(c.ch)
			}
			if row[start].style == (cellStyle{}) {
				b.WriteString(seg.String())
			} else {
				b.WriteString(row[start].style.lipgloss().Render(seg.String()))
			}
			start = x
		}
	}
	return b.String()
}
