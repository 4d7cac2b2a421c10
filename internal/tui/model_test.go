package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/domain/dentalchart"
)

func newTestModel(t *testing.T) (Model, *dentalchart.Service, uuid.UUID) {
	t.Helper()
	dir := t.TempDir()
	repo, err := dentalchart.NewSQLiteChartRepo(context.Background(), filepath.Join(dir, "chart.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := dentalchart.NewService(repo, zerolog.Nop())
	patient := uuid.New()
	if _, err := svc.OpenSession(context.Background(), patient); err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(svc.Shutdown)
	return New(svc, patient, dir), svc, patient
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func chart(t *testing.T, svc *dentalchart.Service, patient uuid.UUID) (dentalchart.ChartState, dentalchart.UIState) {
	t.Helper()
	e, err := svc.Session(patient)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return e.TeethData(), e.UI()
}

func TestLayout_RegionKeys(t *testing.T) {
	g := layout(view{state: dentalchart.NewChartState(), ui: dentalchart.NewUIState()})

	tests := []struct {
		x, y int
		want string
	}{
		{leftPad + 1, upperLabel, "tooth:1"},
		{leftPad + 2, upperTop, "surface:1:buccal"},
		{leftPad, upperTop + 1, "surface:1:distal"},
		{leftPad + 4, upperTop + 1, "surface:1:mesial"},
		{leftPad + 2, upperTop + 1, "surface:1:occlusal"},
		{leftPad + 8*toothCols, upperTop + 1, "surface:9:mesial"},
		{leftPad + 2, lowerTop, "surface:32:lingual"},
		{leftPad + 2, lowerTop + 2, "surface:32:buccal"},
		{leftPad + 1, lowerLabel, "tooth:32"},
		{leftPad, toolbarRow, "mode:surface"},
	}
	for _, tt := range tests {
		got, ok := g.at(tt.x, tt.y)
		if !ok || got != tt.want {
			t.Errorf("at(%d,%d) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
	if _, ok := g.at(0, biteRow); ok {
		t.Error("bite line should not be clickable")
	}
	if !strings.Contains(g.line(upperLabel), "18") || !strings.Contains(g.line(lowerLabel), "48") {
		t.Error("expected FDI labels on label rows")
	}
}

func TestLayout_MissingToothIsCrossed(t *testing.T) {
	state := dentalchart.NewChartState()
	state.Teeth[0].WholeCondition = dentalchart.Missing
	g := layout(view{state: state, ui: dentalchart.NewUIState()})
	if !strings.Contains(g.line(upperTop+1), "╳") {
		t.Errorf("expected crossed surfaces, got %q", g.line(upperTop+1))
	}
}

func TestModel_MouseClickAppliesCondition(t *testing.T) {
	m, svc, patient := newTestModel(t)

	// tooth 3 occlusal sits in the third column
	m = press(t, m, tea.MouseMsg{X: leftPad + 2*toothCols + 2, Y: upperTop + 1, Type: tea.MouseLeft})

	state, ui := chart(t, svc, patient)
	if state.Teeth[2].Surfaces[dentalchart.Occlusal] != dentalchart.Caries {
		t.Fatalf("expected caries on tooth 3 occlusal, got %q", state.Teeth[2].Surfaces[dentalchart.Occlusal])
	}
	if ui.SelectedTooth != 3 || ui.SelectedSurface != dentalchart.Occlusal {
		t.Errorf("unexpected selection %+v", ui)
	}
	if !strings.Contains(m.status, "16 occlusal: Caries") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestModel_KeyboardFlow(t *testing.T) {
	m, svc, patient := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = press(t, m, runes("4"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state, ui := chart(t, svc, patient)
	if ui.SelectedTooth != 1 || ui.SelectedSurface != dentalchart.Distal {
		t.Fatalf("unexpected selection %+v", ui)
	}
	if state.Teeth[0].Surfaces[dentalchart.Distal] != dentalchart.Caries {
		t.Errorf("expected caries on distal, got %q", state.Teeth[0].Surfaces[dentalchart.Distal])
	}

	m = press(t, m, runes("+"))
	m = press(t, m, runes("+"))
	state, _ = chart(t, svc, patient)
	if state.Teeth[0].Mobility != 2 {
		t.Errorf("expected mobility 2, got %d", state.Teeth[0].Mobility)
	}

	m = press(t, m, runes("r"))
	state, _ = chart(t, svc, patient)
	if !state.Teeth[0].IsBaseline() {
		t.Errorf("expected tooth reset, got %+v", state.Teeth[0])
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, ui = chart(t, svc, patient)
	if ui.SelectedTooth != 0 {
		t.Error("expected Escape to clear the selection")
	}
}

func TestModel_ModeAndConditionCycle(t *testing.T) {
	m, svc, patient := newTestModel(t)

	m = press(t, m, runes("m"))
	_, ui := chart(t, svc, patient)
	if ui.Mode != dentalchart.ModeWhole {
		t.Fatalf("expected whole mode, got %s", ui.Mode)
	}
	first := ui.Active.Key()
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, ui = chart(t, svc, patient)
	if ui.Active.Key() == first || ui.Active.Category() != dentalchart.CategoryWhole {
		t.Errorf("expected next whole condition, got %s", ui.Active.Key())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if !strings.Contains(m.status, "surface mode") {
		t.Errorf("expected navigation hint, got %q", m.status)
	}
}

func TestModel_NoteEditingIgnoresChartKeys(t *testing.T) {
	m, svc, patient := newTestModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = press(t, m, runes("n"))
	if !m.editing {
		t.Fatal("expected note editing")
	}

	// "3" is text here, not a surface shortcut
	m = press(t, m, runes("3"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, runes("mm"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state, ui := chart(t, svc, patient)
	if ui.SelectedSurface != dentalchart.NoSurface {
		t.Errorf("expected no surface selected, got %v", ui.SelectedSurface)
	}
	if state.Teeth[0].Note != "3 mm" {
		t.Errorf("expected note %q, got %q", "3 mm", state.Teeth[0].Note)
	}
	if m.editing {
		t.Error("expected editing to end on enter")
	}
}

func TestModel_ExportAndCopy(t *testing.T) {
	m, _, patient := newTestModel(t)
	var copied string
	m.copyText = func(s string) error { copied = s; return nil }

	m = press(t, m, runes("y"))
	if copied != "No findings.\n" {
		t.Errorf("unexpected clipboard text %q", copied)
	}

	m = press(t, m, runes("e"))
	path := filepath.Join(m.exportDir, "chart-"+patient.String()+".png")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v (status %q)", err, m.status)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("expected png file")
	}
}

func TestModel_View(t *testing.T) {
	m, _, _ := newTestModel(t)
	out := m.View()
	if !strings.Contains(out, "Odontogram") || !strings.Contains(out, "History") {
		t.Errorf("unexpected view %q", out)
	}
}

func TestNeighbour(t *testing.T) {
	if got := neighbour(0, true); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := neighbour(16, true); got != 32 {
		t.Errorf("expected 32 after 16, got %d", got)
	}
	if got := neighbour(1, false); got != 17 {
		t.Errorf("expected wrap to 17, got %d", got)
	}
}
