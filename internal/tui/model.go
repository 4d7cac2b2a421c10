// Package tui is a terminal chart editor. It drives the same Service as the
// HTTP API: mouse clicks hit-test the terminal grid and decode into region
// keys, and key presses reach the engine through the session's key bus.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ehr/odontogram/internal/domain/dentalchart"
	"github.com/ehr/odontogram/internal/platform/canvas"
)

const helpLine = "click / 1-5 surface · enter apply · ←→ tooth · m mode · tab condition · +/- mobility · n note · r reset · e png · y copy · esc clear · q quit"

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1565C0"))
var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90A4AE"))

// Model is the bubbletea model of one open chart.
type Model struct {
	svc       *dentalchart.Service
	patient   uuid.UUID
	exportDir string
	copyText  func(string) error

	width, height int
	editing       bool
	note          string
	status        string
}

// New builds a model over an already opened session.
func New(svc *dentalchart.Service, patient uuid.UUID, exportDir string) Model {
	return Model{
		svc:       svc,
		patient:   patient,
		exportDir: exportDir,
		copyText:  clipboard.WriteAll,
	}
}

// Run opens the session, runs the program and closes the session on exit.
func Run(ctx context.Context, svc *dentalchart.Service, patient uuid.UUID, exportDir string) error {
	if _, err := svc.OpenSession(ctx, patient); err != nil {
		return err
	}
	defer svc.CloseSession(patient)

	p := tea.NewProgram(New(svc, patient, exportDir), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) current() (dentalchart.ChartState, dentalchart.UIState, error) {
	e, err := m.svc.Session(m.patient)
	if err != nil {
		return dentalchart.ChartState{}, dentalchart.UIState{}, err
	}
	return e.TeethData(), e.UI(), nil
}

func (m Model) view() (view, error) {
	state, ui, err := m.current()
	if err != nil {
		return view{}, err
	}
	return view{patient: m.patient.String(), state: state, ui: ui, editing: m.editing, note: m.note, status: m.status}, nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.MouseMsg:
		if msg.Type != tea.MouseLeft || m.editing {
			return m, nil
		}
		v, err := m.view()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if key, ok := layout(v).at(msg.X, msg.Y); ok {
			m.region(key)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateNote(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *Model) region(key string) {
	out, err := m.svc.HandleRegion(context.Background(), m.patient, key)
	m.report(out, err)
}

func (m *Model) apply(a dentalchart.Action) {
	out, err := m.svc.Apply(context.Background(), m.patient, a)
	m.report(out, err)
}

func (m *Model) report(out dentalchart.Outcome, err error) {
	switch {
	case err != nil:
		m.status = err.Error()
	case out.Change != nil:
		m.status = fmt.Sprintf("%s %s", out.Change.Entry.ToothID, out.Change.Entry.Description)
	default:
		m.status = ""
	}
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, ui, err := m.current()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "m":
		next := dentalchart.ModeWhole
		if ui.Mode == dentalchart.ModeWhole {
			next = dentalchart.ModeSurface
		}
		if _, err := m.svc.SetMode(m.patient, next); err != nil {
			m.status = err.Error()
		}

	case "tab":
		entries := dentalchart.EntriesFor(ui.Mode.Category())
		idx := 0
		for i, e := range entries {
			if ui.Active != nil && e.Key == ui.Active.Key() {
				idx = (i + 1) % len(entries)
			}
		}
		if _, err := m.svc.SetActiveCondition(m.patient, entries[idx].Condition()); err != nil {
			m.status = err.Error()
		}

	case "left", "right":
		if ui.Mode != dentalchart.ModeSurface {
			m.status = "switch to surface mode to move the selection"
			break
		}
		m.region(dentalchart.Target{Kind: dentalchart.TargetTooth, Tooth: neighbour(ui.SelectedTooth, key == "right")}.Key())

	case "enter", " ":
		switch {
		case ui.SelectedTooth == 0:
			m.status = "no tooth selected"
		case ui.Mode == dentalchart.ModeWhole:
			m.region(dentalchart.Target{Kind: dentalchart.TargetTooth, Tooth: ui.SelectedTooth}.Key())
		case ui.SelectedSurface == dentalchart.NoSurface:
			m.status = "press 1-5 to pick a surface"
		default:
			m.region(dentalchart.Target{Kind: dentalchart.TargetSurface, Tooth: ui.SelectedTooth, Surface: ui.SelectedSurface}.Key())
		}

	case "+", "=", "-":
		state, _, _ := m.current()
		rec, ok := state.Tooth(ui.SelectedTooth)
		if !ok {
			m.status = "no tooth selected"
			break
		}
		next := rec.Mobility + 1
		if key == "-" {
			next = rec.Mobility - 1
		}
		m.apply(dentalchart.SetMobility{Tooth: ui.SelectedTooth, Mobility: next})

	case "r":
		if ui.SelectedTooth == 0 {
			m.status = "no tooth selected"
			break
		}
		m.apply(dentalchart.ResetTooth{Tooth: ui.SelectedTooth})

	case "n":
		state, _, _ := m.current()
		rec, ok := state.Tooth(ui.SelectedTooth)
		if !ok {
			m.status = "no tooth selected"
			break
		}
		m.editing, m.note = true, rec.Note

	case "e":
		path, err := m.exportPNG()
		if err != nil {
			m.status = "export failed: " + err.Error()
			break
		}
		m.status = "saved " + path

	case "y":
		state, _, _ := m.current()
		if err := m.copyText(dentalchart.Summary(state)); err != nil {
			m.status = "copy failed: " + err.Error()
			break
		}
		m.status = "summary copied"

	default:
		if _, err := m.svc.PressKey(m.patient, dentalchart.KeyEvent{Key: key}); err != nil {
			m.status = err.Error()
		}
	}
	return m, nil
}

// updateNote handles keys while the note field has focus. Keys still reach
// the bus flagged as focused so the engine can ignore them.
func (m Model) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, _ = m.svc.PressKey(m.patient, dentalchart.KeyEvent{Key: msg.String(), FocusedInput: true})

	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		out, err := m.svc.CommitNote(context.Background(), m.patient, m.note)
		m.report(out, err)
	case tea.KeyEsc:
		m.editing = false
		m.status = "note discarded"
	case tea.KeyBackspace:
		if r := []rune(m.note); len(r) > 0 {
			m.note = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.note += " "
	case tea.KeyRunes:
		m.note += string(msg.Runes)
	}
	return m, nil
}

// neighbour walks the upper row left to right, then the lower row, wrapping.
func neighbour(current int, forward bool) int {
	order := append(dentalchart.UpperRow(), dentalchart.LowerRow()...)
	if current == 0 {
		return order[0]
	}
	for i, id := range order {
		if id != current {
			continue
		}
		if forward {
			return order[(i+1)%len(order)]
		}
		return order[(i-1+len(order))%len(order)]
	}
	return order[0]
}

func (m Model) exportPNG() (string, error) {
	frame, err := m.svc.Frame(context.Background(), m.patient)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf, frame, canvas.DefaultPNGOptions()); err != nil {
		return "", err
	}
	dir := m.exportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("chart-%s.png", m.patient))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (m Model) View() string {
	v, err := m.view()
	if err != nil {
		return "chart unavailable: " + err.Error() + "\n"
	}
	out := layout(v).render()
	if m.status != "" {
		out += "\n" + statusStyle.Render("  "+m.status)
	} else {
		out += "\n"
	}
	return out + "\n" + helpStyle.Render("  "+helpLine)
}
