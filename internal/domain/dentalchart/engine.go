package dentalchart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/platform/canvas"
)

// Display is the rendering surface a chart draws on. Draw receives every
// frame after a state or selection change; Release is called once on
// teardown.
type Display interface {
	Draw(frame canvas.Scene)
	Release()
}

// Options configures a new Engine. Every field is optional. State is the
// chart the first frame is drawn from; callers validate it beforehand.
type Options struct {
	State   *ChartState
	Adapter PersistenceAdapter
	Display Display
	Keys    KeySource
	Logger  zerolog.Logger
	Clock   func() time.Time
}

// Outcome reports what an input did.
type Outcome struct {
	Mutated bool    `json:"mutated"`
	Change  *Change `json:"-"`
	UI      UIState `json:"ui"`
}

// Engine is one live chart view. It owns its ChartState exclusively; all
// mutations go through the reducer and are followed by a redraw and an
// asynchronous persistence notification.
type Engine struct {
	mu        sync.Mutex
	state     ChartState
	ui        UIState
	frame     canvas.Scene
	destroyed bool

	adapter     PersistenceAdapter
	display     Display
	logger      zerolog.Logger
	clock       func() time.Time
	unsubscribe func()
	inflight    sync.WaitGroup
}

// NewEngine builds an engine over opts.State, or an all-healthy chart when it
// is nil, subscribes to the key source and draws the first frame.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		state:   NewChartState(),
		ui:      NewUIState(),
		adapter: opts.Adapter,
		display: opts.Display,
		logger:  opts.Logger,
		clock:   opts.Clock,
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if opts.State != nil {
		e.state = opts.State.Clone()
	}
	if opts.Keys != nil {
		e.unsubscribe = opts.Keys.Subscribe(e.handleKey)
	}
	e.mu.Lock()
	e.redraw()
	e.mu.Unlock()
	return e
}

// LoadTeethData replaces the chart, clears the selection and redraws.
func (e *Engine) LoadTeethData(state ChartState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("load chart: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	e.state = state.Clone()
	e.ui = e.ui.ClearSelection()
	e.redraw()
	return nil
}

// TeethData returns a snapshot that does not alias engine state.
func (e *Engine) TeethData() ChartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// UI returns the current selection and mode.
func (e *Engine) UI() UIState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ui
}

// Frame returns the last drawn scene.
func (e *Engine) Frame() canvas.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// HandlePointer hit-tests the last frame at (x, y) and clicks what it finds.
// A miss is not an error.
func (e *Engine) HandlePointer(x, y float64) (Outcome, error) {
	e.mu.Lock()
	key, ok := e.frame.HitTest(x, y)
	ui := e.ui
	e.mu.Unlock()
	if !ok {
		return Outcome{UI: ui}, nil
	}
	return e.HandleRegion(key)
}

// HandleRegion clicks the region with the given key.
func (e *Engine) HandleRegion(key string) (Outcome, error) {
	t, err := ParseTarget(key)
	if err != nil {
		return Outcome{UI: e.UI()}, err
	}
	return e.Click(t)
}

// Click runs t through the controller. Selection changes apply even when
// the resulting action is rejected; a surface click on a missing tooth
// selects the tooth but no surface.
func (e *Engine) Click(t Target) (Outcome, error) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return Outcome{}, ErrDestroyed
	}
	ui, action := Interpret(e.ui, t)
	if as, ok := action.(ApplySurface); ok && e.state.Teeth[as.Tooth-1].IsMissing() {
		ui.SelectedSurface = NoSurface
	}
	e.ui = ui
	if action == nil {
		e.redraw()
		out := Outcome{UI: e.ui}
		e.mu.Unlock()
		return out, nil
	}
	return e.applyLocked(action)
}

// SetMode switches between surface and whole-tooth editing.
func (e *Engine) SetMode(m Mode) error {
	_, err := e.Click(Target{Kind: TargetMode, Mode: m})
	return err
}

// SetActiveCondition selects the condition applied by the next click. It
// must belong to the active mode.
func (e *Engine) SetActiveCondition(c Condition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	ui, err := e.ui.WithActive(c)
	if err != nil {
		return err
	}
	e.ui = ui
	e.redraw()
	return nil
}

// CommitNote stores note on the selected tooth.
func (e *Engine) CommitNote(note string) (Outcome, error) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return Outcome{}, ErrDestroyed
	}
	if e.ui.SelectedTooth == 0 {
		out := Outcome{UI: e.ui}
		e.mu.Unlock()
		return out, errors.New("no tooth selected")
	}
	return e.applyLocked(SetNote{Tooth: e.ui.SelectedTooth, Note: note})
}

// Apply reduces an explicit action, bypassing pointer interpretation.
func (e *Engine) Apply(a Action) (Outcome, error) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return Outcome{}, ErrDestroyed
	}
	return e.applyLocked(a)
}

// applyLocked must be entered with e.mu held; it releases it before
// notifying persistence.
func (e *Engine) applyLocked(a Action) (Outcome, error) {
	next, ch, err := Reduce(e.state, a, e.clock())
	if err != nil {
		e.redraw()
		out := Outcome{UI: e.ui}
		e.mu.Unlock()
		return out, err
	}
	e.state = next
	e.redraw()
	out := Outcome{Mutated: true, Change: &ch, UI: e.ui}
	e.mu.Unlock()

	e.notify(ch)
	return out, nil
}

func (e *Engine) notify(ch Change) {
	name, fn := e.adapter.callbackFor(ch)
	if fn == nil {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if err := fn(context.Background()); err != nil {
			e.logger.Error().Err(err).
				Str("callback", name).
				Str("tooth_id", ch.Entry.ToothID).
				Msg("persistence callback failed")
		}
	}()
}

// Wait blocks until every persistence callback started so far returns.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) handleKey(ev KeyEvent) {
	if ev.FocusedInput {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	ui, changed := e.ui.HandleKey(ev.Key)
	if !changed {
		return
	}
	e.ui = ui
	e.redraw()
}

// Destroy removes the key subscription and releases the display. Later
// calls are no-ops; every other method then reports ErrDestroyed or
// does nothing.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	unsubscribe, display := e.unsubscribe, e.display
	e.unsubscribe, e.display = nil, nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if display != nil {
		display.Release()
	}
}

// Destroyed reports whether Destroy has run.
func (e *Engine) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

func (e *Engine) redraw() {
	e.frame = Render(View{State: e.state, UI: e.ui})
	if e.display != nil {
		e.display.Draw(e.frame)
	}
}
