package dentalchart

import (
	"fmt"
	"strings"

	"github.com/ehr/odontogram/internal/platform/canvas"
)

// Frame layout, in scene units.
const (
	margin      = 20.0
	cellWidth   = 56.0
	boxSize     = 40.0
	boxInset    = 12.0
	toolbarY    = 12.0
	buttonH     = 28.0
	upperRowY   = 64.0
	rowHeight   = 176.0
	lowerRowY   = upperRowY + rowHeight + 16
	panelY      = lowerRowY + rowHeight + 16
	panelHeight = 330.0
	detailWidth = 420.0

	// HistoryLimit is how many entries the history panel shows.
	HistoryLimit = 20

	FrameWidth  = margin*2 + cellWidth*16
	FrameHeight = panelY + panelHeight + margin
)

const (
	inkColor      = "#263238"
	mutedInk      = "#90A4AE"
	accentColor   = "#1565C0"
	selectedFill  = "#E3F2FD"
	crownFill     = "#FAFAFA"
	rootFill      = "#F5F0E6"
	panelFill     = "#F7F9FA"
	missingAlpha  = 0.35
	rootAlpha     = 0.9
	labelFontSize = 11.0
)

// View is everything a frame is drawn from.
type View struct {
	State ChartState
	UI    UIState
}

// Render draws the chart for v. It is a pure function of v.
func Render(v View) canvas.Scene {
	sc := canvas.Scene{Width: FrameWidth, Height: FrameHeight}
	sc.DrawRect(canvas.Rect{W: FrameWidth, H: FrameHeight}, canvas.Style{Fill: "#FFFFFF"})

	renderToolbar(&sc, v.UI)
	for i, id := range UpperRow() {
		renderTooth(&sc, v, id, margin+float64(i)*cellWidth, upperRowY)
	}
	for i, id := range LowerRow() {
		renderTooth(&sc, v, id, margin+float64(i)*cellWidth, lowerRowY)
	}
	midX := margin + cellWidth*8
	sc.DrawPath(*new(canvas.Path).MoveTo(midX, upperRowY).LineTo(midX, lowerRowY+rowHeight),
		canvas.Style{Stroke: mutedInk, StrokeWidth: 1, Dashed: true})
	biteY := lowerRowY - 8
	sc.DrawPath(*new(canvas.Path).MoveTo(margin, biteY).LineTo(FrameWidth-margin, biteY),
		canvas.Style{Stroke: mutedInk, StrokeWidth: 1, Dashed: true})

	renderDetail(&sc, v)
	renderHistory(&sc, v.State.History)
	return sc
}

func renderToolbar(sc *canvas.Scene, ui UIState) {
	x := margin
	for _, m := range []Mode{ModeSurface, ModeWhole} {
		r := canvas.Rect{X: x, Y: toolbarY, W: 90, H: buttonH}
		st := canvas.Style{Fill: "#FFFFFF", Stroke: accentColor, StrokeWidth: 1}
		ink := accentColor
		if ui.Mode == m {
			st.Fill, ink = accentColor, "#FFFFFF"
		}
		label := "Surface"
		if m == ModeWhole {
			label = "Whole tooth"
		}
		sc.DrawRect(r, st)
		sc.DrawText(label, canvas.Point{X: r.X + r.W/2, Y: r.Y + 18}, 12, canvas.AnchorMiddle, canvas.Style{Fill: ink})
		sc.AddRegion(Target{Kind: TargetMode, Mode: m}.Key(), r)
		x += r.W + 4
	}
	x += 8
	for _, e := range EntriesFor(ui.Mode.Category()) {
		r := canvas.Rect{X: x, Y: toolbarY, W: 80, H: buttonH}
		st := canvas.Style{Fill: "#FFFFFF", Stroke: mutedInk, StrokeWidth: 1}
		if ui.Active != nil && ui.Active.Key() == e.Key {
			st.Stroke, st.StrokeWidth = accentColor, 2.5
		}
		sc.DrawRect(r, st)
		sc.DrawRect(canvas.Rect{X: r.X + 6, Y: r.Y + 8, W: 12, H: 12}, canvas.Style{Fill: e.Color, Stroke: inkColor, StrokeWidth: 0.5})
		sc.DrawText(e.Label, canvas.Point{X: r.X + 22, Y: r.Y + 18}, 10, canvas.AnchorStart, canvas.Style{Fill: inkColor})
		sc.AddRegion("cond:"+e.Key, r)
		x += r.W + 4
	}
}

// SurfacePolygon returns the outline of the slot p in a surface box whose
// top-left corner is (bx, by).
func SurfacePolygon(p Position, bx, by float64) []canvas.Point {
	s, in := boxSize, boxInset
	pt := func(x, y float64) canvas.Point { return canvas.Point{X: bx + x, Y: by + y} }
	switch p {
	case PosTop:
		return []canvas.Point{pt(0, 0), pt(s, 0), pt(s-in, in), pt(in, in)}
	case PosBottom:
		return []canvas.Point{pt(0, s), pt(in, s-in), pt(s-in, s-in), pt(s, s)}
	case PosLeft:
		return []canvas.Point{pt(0, 0), pt(in, in), pt(in, s-in), pt(0, s)}
	case PosRight:
		return []canvas.Point{pt(s, 0), pt(s, s), pt(s-in, s-in), pt(s-in, in)}
	}
	return []canvas.Point{pt(in, in), pt(s-in, in), pt(s-in, s-in), pt(in, s-in)}
}

func renderTooth(sc *canvas.Scene, v View, id int, x, y float64) {
	rec := v.State.Teeth[id-1]
	cls := Classify(id)
	missing := rec.IsMissing()
	selected := v.UI.SelectedTooth == id

	cell := canvas.Rect{X: x + 2, Y: y, W: cellWidth - 4, H: rowHeight}
	if selected {
		sc.DrawRect(cell, canvas.Style{Fill: selectedFill, Stroke: accentColor, StrokeWidth: 1})
	}

	// Upper teeth: label, roots up, crown, surface box. Lower teeth mirror it.
	shapeX := x + (cellWidth-ShapeWidth)/2
	var labelY, shapeY, boxY float64
	if cls.Arch == ArchUpper {
		labelY, shapeY, boxY = y+12, y+18, y+124
	} else {
		boxY, shapeY, labelY = y+12, y+58, y+170
	}
	ink := inkColor
	if missing {
		ink = mutedInk
	}
	sc.DrawText(ToDisplay(id), canvas.Point{X: x + cellWidth/2, Y: labelY}, labelFontSize, canvas.AnchorMiddle, canvas.Style{Fill: ink})

	shape := ShapesFor(cls.Type, cls.Arch)
	outline := canvas.Style{Stroke: inkColor, StrokeWidth: 1}
	crown := canvas.Style{Fill: crownFill, Stroke: inkColor, StrokeWidth: 1.2}
	if rec.WholeCondition != WholeNone {
		crown.Fill = Color(rec.WholeCondition)
	}
	if missing {
		outline.Opacity, outline.Dashed = missingAlpha, true
		crown.Opacity, crown.Dashed = missingAlpha, true
	}
	rootStyle := outline
	rootStyle.Fill = rootFill
	if !missing {
		rootStyle.Opacity = rootAlpha
	}
	for _, r := range shape.Roots {
		sc.DrawPath(r.Transform(1, 1, shapeX, shapeY), rootStyle)
	}
	sc.DrawPath(shape.Crown.Transform(1, 1, shapeX, shapeY), crown)
	if missing {
		cross := canvas.Style{Stroke: Color(Missing), StrokeWidth: 2}
		sc.DrawPath(*new(canvas.Path).MoveTo(shapeX, shapeY).LineTo(shapeX+ShapeWidth, shapeY+ShapeHeight), cross)
		sc.DrawPath(*new(canvas.Path).MoveTo(shapeX+ShapeWidth, shapeY).LineTo(shapeX, shapeY+ShapeHeight), cross)
	}
	if rec.Mobility > 0 {
		sc.DrawText(fmt.Sprintf("M%d", rec.Mobility), canvas.Point{X: x + cellWidth - 4, Y: shapeY + ShapeHeight/2}, 9, canvas.AnchorEnd, canvas.Style{Fill: "#D84315"})
	}
	if rec.Note != "" {
		sc.DrawText("*", canvas.Point{X: x + 6, Y: shapeY + ShapeHeight/2}, 12, canvas.AnchorStart, canvas.Style{Fill: accentColor})
	}
	sc.AddRegion(Target{Kind: TargetTooth, Tooth: id}.Key(), canvas.Rect{X: shapeX, Y: shapeY, W: ShapeWidth, H: ShapeHeight})

	bx := x + (cellWidth-boxSize)/2
	layout := ResolveSurfaces(cls.Arch, cls.Quadrant)
	for _, p := range Positions {
		surface := layout.At(p)
		poly := SurfacePolygon(p, bx, boxY)
		st := canvas.Style{Fill: Color(rec.Surfaces[surface]), Stroke: inkColor, StrokeWidth: 0.8}
		if missing {
			st.Opacity, st.Dashed = missingAlpha, true
		}
		if selected && v.UI.SelectedSurface == surface {
			st.Stroke, st.StrokeWidth = accentColor, 2
		}
		sc.DrawPath(canvas.Polygon(poly...), st)
		sc.AddPolygonRegion(Target{Kind: TargetSurface, Tooth: id, Surface: surface}.Key(), poly)
	}
}

func renderDetail(sc *canvas.Scene, v View) {
	panel := canvas.Rect{X: margin, Y: panelY, W: detailWidth, H: panelHeight}
	sc.DrawRect(panel, canvas.Style{Fill: panelFill, Stroke: mutedInk, StrokeWidth: 1})
	text := func(s string, row int, st canvas.Style) {
		sc.DrawText(s, canvas.Point{X: panel.X + 12, Y: panel.Y + 22 + float64(row)*20}, 12, canvas.AnchorStart, st)
	}
	ink := canvas.Style{Fill: inkColor}

	id := v.UI.SelectedTooth
	rec, ok := v.State.Tooth(id)
	if !ok {
		text("Select a tooth to see its details.", 0, canvas.Style{Fill: mutedInk})
		return
	}
	cls := Classify(id)
	text(fmt.Sprintf("Tooth %s  %s, %s arch, quadrant %d  (%s)",
		ToDisplay(id), strings.ReplaceAll(string(cls.Type), "_", " "), cls.Arch, cls.Quadrant, rec.Status()), 0, canvas.Style{Fill: inkColor})
	whole := "none"
	if rec.WholeCondition != WholeNone {
		whole = Label(rec.WholeCondition)
	}
	text("Whole tooth: "+whole, 1, ink)
	for i, s := range Surfaces {
		line := fmt.Sprintf("%d  %-9s %s", i+1, s, Label(rec.Surfaces[s]))
		st := ink
		if rec.IsMissing() {
			st = canvas.Style{Fill: mutedInk}
		}
		if v.UI.SelectedSurface == s {
			st = canvas.Style{Fill: accentColor}
		}
		text(line, 2+i, st)
	}

	text("Mobility", 8, ink)
	for m := 0; m <= MaxMobility; m++ {
		r := canvas.Rect{X: panel.X + 80 + float64(m)*34, Y: panel.Y + 22 + 8*20 - 16, W: 28, H: 22}
		st := canvas.Style{Fill: "#FFFFFF", Stroke: accentColor, StrokeWidth: 1}
		tx := accentColor
		if rec.Mobility == m {
			st.Fill, tx = accentColor, "#FFFFFF"
		}
		sc.DrawRect(r, st)
		sc.DrawText(fmt.Sprint(m), canvas.Point{X: r.X + r.W/2, Y: r.Y + 15}, 12, canvas.AnchorMiddle, canvas.Style{Fill: tx})
		sc.AddRegion(Target{Kind: TargetMobility, Mobility: m}.Key(), r)
	}

	note := rec.Note
	if note == "" {
		note = "(no note)"
	}
	text("Note: "+truncate(note, 52), 10, ink)

	reset := canvas.Rect{X: panel.X + 12, Y: panel.Y + panelHeight - 40, W: 110, H: 26}
	sc.DrawRect(reset, canvas.Style{Fill: "#FFEBEE", Stroke: "#C62828", StrokeWidth: 1})
	sc.DrawText("Reset tooth", canvas.Point{X: reset.X + reset.W/2, Y: reset.Y + 17}, 12, canvas.AnchorMiddle, canvas.Style{Fill: "#C62828"})
	sc.AddRegion(string(TargetReset), reset)
}

func renderHistory(sc *canvas.Scene, history []HistoryEntry) {
	x := margin + detailWidth + 16
	panel := canvas.Rect{X: x, Y: panelY, W: FrameWidth - margin - x, H: panelHeight}
	sc.DrawRect(panel, canvas.Style{Fill: panelFill, Stroke: mutedInk, StrokeWidth: 1})
	sc.DrawText("History", canvas.Point{X: panel.X + 12, Y: panel.Y + 20}, 13, canvas.AnchorStart, canvas.Style{Fill: inkColor})
	for i, e := range RecentHistory(history, HistoryLimit) {
		line := fmt.Sprintf("%s  %-3s %s", e.Timestamp.Format("15:04:05"), e.ToothID, e.Description)
		sc.DrawText(truncate(line, 60), canvas.Point{X: panel.X + 12, Y: panel.Y + 38 + float64(i)*14.5}, 10.5, canvas.AnchorStart, canvas.Style{Fill: inkColor})
	}
}

// RecentHistory returns at most n entries, newest first.
func RecentHistory(history []HistoryEntry, n int) []HistoryEntry {
	if n > len(history) {
		n = len(history)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(history) - 1; i >= len(history)-n; i-- {
		out = append(out, history[i])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
