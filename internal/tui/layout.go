package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ehr/odontogram/internal/domain/dentalchart"
)

// Terminal layout, in cells.
const (
	leftPad    = 2
	toothCols  = 6
	toolbarRow = 1
	upperLabel = 3
	upperTop   = 4
	biteRow    = 7
	lowerTop   = 8
	lowerLabel = 11
	detailRow  = 13
	historyRow = 18
	historyLen = 5
	gridWidth  = leftPad*2 + toothCols*16
	gridHeight = historyRow + historyLen + 2
)

var (
	inkStyle      = cellStyle{Fg: "#263238"}
	mutedStyle    = cellStyle{Fg: "#90A4AE", Faint: true}
	accentStyle   = cellStyle{Fg: "#1565C0", Bold: true}
	activeButton  = cellStyle{Fg: "#FFFFFF", Bg: "#1565C0", Bold: true}
	idleButton    = cellStyle{Fg: "#1565C0"}
	resetStyle    = cellStyle{Fg: "#C62828", Bold: true}
	headlineStyle = cellStyle{Bold: true}
)

// view is everything one terminal frame is drawn from.
type view struct {
	patient string
	state   dentalchart.ChartState
	ui      dentalchart.UIState
	editing bool
	note    string
	status  string
}

// layout draws v into a grid whose cells carry the same region keys as the
// SVG frame, so clicks decode through dentalchart.ParseTarget.
func layout(v view) *grid {
	g := newGrid(gridWidth, gridHeight)
	g.put(leftPad, 0, "Odontogram", headlineStyle, "")
	g.put(leftPad+12, 0, "patient "+v.patient, mutedStyle, "")

	drawToolbar(g, v.ui)
	for i, id := range dentalchart.UpperRow() {
		drawTooth(g, v, id, leftPad+i*toothCols, upperTop, upperLabel)
	}
	g.put(leftPad, biteRow, strings.Repeat("─", toothCols*16-1), mutedStyle, "")
	g.put(leftPad+toothCols*8-1, biteRow, "┼", mutedStyle, "")
	for i, id := range dentalchart.LowerRow() {
		drawTooth(g, v, id, leftPad+i*toothCols, lowerTop, lowerLabel)
	}
	drawDetail(g, v)
	drawHistory(g, v.state.History)
	return g
}

func drawToolbar(g *grid, ui dentalchart.UIState) {
	x := leftPad
	for _, m := range []dentalchart.Mode{dentalchart.ModeSurface, dentalchart.ModeWhole} {
		st := idleButton
		if ui.Mode == m {
			st = activeButton
		}
		key := dentalchart.Target{Kind: dentalchart.TargetMode, Mode: m}.Key()
		x = g.put(x, toolbarRow, " "+string(m)+" ", st, key) + 1
	}
	x += 2
	for _, e := range dentalchart.EntriesFor(ui.Mode.Category()) {
		key := "cond:" + e.Key
		label := " " + e.Label + " "
		st := cellStyle{Fg: "#263238"}
		if ui.Active != nil && ui.Active.Key() == e.Key {
			st = cellStyle{Fg: "#1565C0", Bold: true, Underline: true}
		}
		x = g.put(x, toolbarRow, "■", cellStyle{Fg: e.Color}, key)
		x = g.put(x, toolbarRow, label, st, key) + 1
	}
}

func surfaceLetter(s dentalchart.Surface) string {
	return string(unicode.ToUpper(rune(s.String()[0])))
}

// drawTooth draws a 5x3 surface diagram at (x, top) and the FDI label on
// labelRow.
func drawTooth(g *grid, v view, id, x, top, labelRow int) {
	rec := v.state.Teeth[id-1]
	toothKey := dentalchart.Target{Kind: dentalchart.TargetTooth, Tooth: id}.Key()
	selected := v.ui.SelectedTooth == id

	label := cellStyle{Fg: "#263238"}
	if rec.WholeCondition != dentalchart.WholeNone {
		label = cellStyle{Fg: "#263238", Bg: dentalchart.Color(rec.WholeCondition)}
	}
	if selected {
		label.Bold, label.Underline = true, true
	}
	if rec.IsMissing() {
		label = mutedStyle
	}
	g.put(x, labelRow, " ", cellStyle{}, toothKey)
	g.put(x+1, labelRow, dentalchart.ToDisplay(id), label, toothKey)
	g.put(x+3, labelRow, "  ", cellStyle{}, toothKey)

	lay := dentalchart.LayoutFor(id)
	slot := func(p dentalchart.Position, dx, dy int, pad bool) {
		s := lay.At(p)
		key := dentalchart.Target{Kind: dentalchart.TargetSurface, Tooth: id, Surface: s}.Key()
		text := surfaceLetter(s)
		if rec.IsMissing() {
			text = "╳"
		}
		if pad {
			text = " " + text + " "
		}
		st := cellStyle{Fg: "#263238", Bg: dentalchart.Color(rec.Surfaces[s])}
		if rec.IsMissing() {
			st = mutedStyle
		}
		if selected && v.ui.SelectedSurface == s {
			st.Bold, st.Underline = true, true
		}
		g.put(x+dx, top+dy, text, st, key)
	}
	slot(dentalchart.PosTop, 1, 0, true)
	slot(dentalchart.PosLeft, 0, 1, false)
	slot(dentalchart.PosCenter, 1, 1, true)
	slot(dentalchart.PosRight, 4, 1, false)
	slot(dentalchart.PosBottom, 1, 2, true)
}

func drawDetail(g *grid, v view) {
	id := v.ui.SelectedTooth
	rec, ok := v.state.Tooth(id)
	if !ok {
		g.put(leftPad, detailRow, "Click a tooth, or use ←/→, to see its details.", mutedStyle, "")
		return
	}
	cls := dentalchart.Classify(id)
	head := fmt.Sprintf("Tooth %s  %s, %s arch, Q%d (%s)", dentalchart.ToDisplay(id),
		strings.ReplaceAll(string(cls.Type), "_", " "), cls.Arch, cls.Quadrant, rec.Status())
	if rec.WholeCondition != dentalchart.WholeNone {
		head += "  whole: " + dentalchart.Label(rec.WholeCondition)
	}
	g.put(leftPad, detailRow, head, accentStyle, "")

	x := leftPad
	for i, s := range dentalchart.Surfaces {
		st := inkStyle
		if v.ui.SelectedSurface == s {
			st = accentStyle
		}
		x = g.put(x, detailRow+1, fmt.Sprintf("%d %s: %s", i+1, s, dentalchart.Label(rec.Surfaces[s])), st, "") + 3
	}

	x = g.put(leftPad, detailRow+2, "Mobility ", inkStyle, "")
	for m := 0; m <= dentalchart.MaxMobility; m++ {
		st := idleButton
		if rec.Mobility == m {
			st = activeButton
		}
		key := dentalchart.Target{Kind: dentalchart.TargetMobility, Mobility: m}.Key()
		x = g.put(x, detailRow+2, fmt.Sprintf("[%d]", m), st, key) + 1
	}
	g.put(x+2, detailRow+2, "[reset tooth]", resetStyle, string(dentalchart.TargetReset))

	if v.editing {
		g.put(leftPad, detailRow+3, "Note: "+v.note+"█", accentStyle, "")
		return
	}
	note := rec.Note
	if note == "" {
		note = "(no note)"
	}
	g.put(leftPad, detailRow+3, "Note: "+note, inkStyle, "")
}

func drawHistory(g *grid, history []dentalchart.HistoryEntry) {
	g.put(leftPad, historyRow, "History", headlineStyle, "")
	for i, e := range dentalchart.RecentHistory(history, historyLen) {
		line := fmt.Sprintf("%s  %-3s %s", e.Timestamp.Format("15:04:05"), e.ToothID, e.Description)
		g.put(leftPad+2, historyRow+1+i, line, inkStyle, "")
	}
}
