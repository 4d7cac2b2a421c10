package dentalchart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/platform/canvas"
	"github.com/ehr/odontogram/internal/platform/metrics"
	"github.com/ehr/odontogram/internal/platform/websocket"
)

// ErrSessionNotFound is returned for inputs addressed to a chart that has no
// open session.
var ErrSessionNotFound = errors.New("chart session not found")

type session struct {
	engine   *Engine
	keys     *KeyBus
	lastUsed time.Time
}

// Service owns the live chart sessions, one engine per patient, and wires
// each engine to storage, metrics and the websocket hub.
type Service struct {
	repo    ChartRepository
	logger  zerolog.Logger
	pub     websocket.EventPublisher
	metrics *metrics.Metrics
	idle    time.Duration
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	opening  map[uuid.UUID]*patientLock
}

func NewService(repo ChartRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		logger:   logger.With().Str("component", "dentalchart").Logger(),
		clock:    time.Now,
		sessions: make(map[uuid.UUID]*session),
		opening:  make(map[uuid.UUID]*patientLock),
	}
}

func (s *Service) SetPublisher(pub websocket.EventPublisher) { s.pub = pub }
func (s *Service) SetMetrics(m *metrics.Metrics)             { s.metrics = m }

// SetIdleTimeout enables the idle sweep. Zero keeps sessions until closed.
func (s *Service) SetIdleTimeout(d time.Duration) { s.idle = d }

// Repository exposes the backing store, e.g. for health checks.
func (s *Service) Repository() ChartRepository { return s.repo }

// OpenSession loads the patient's chart into a fresh engine. Opens for the
// same patient are serialised and any existing session is destroyed before
// the new engine is built, so at most one engine per patient is live.
func (s *Service) OpenSession(ctx context.Context, patientID uuid.UUID) (*Engine, error) {
	unlock := s.lockPatient(patientID)
	defer unlock()

	s.closeSession(patientID)

	state, err := s.repo.LoadChart(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}

	keys := NewKeyBus()
	opts := Options{
		State:   &state,
		Adapter: s.adapterFor(patientID),
		Keys:    keys,
		Logger:  s.logger.With().Str("patient_id", patientID.String()).Logger(),
		Clock:   s.clock,
	}
	if s.pub != nil {
		opts.Display = &hubDisplay{pub: s.pub, patientID: patientID.String(), logger: s.logger}
	}
	engine := NewEngine(opts)

	s.mu.Lock()
	s.sessions[patientID] = &session{engine: engine, keys: keys, lastUsed: s.clock()}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LiveSessions.Inc()
	}
	s.logger.Info().Str("patient_id", patientID.String()).Msg("chart session opened")
	return engine, nil
}

type patientLock struct {
	mu   sync.Mutex
	refs int
}

// lockPatient holds the open lock for one patient. Entries are dropped once
// no caller waits on them.
func (s *Service) lockPatient(patientID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.opening[patientID]
	if !ok {
		l = &patientLock{}
		s.opening[patientID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.opening, patientID)
		}
		s.mu.Unlock()
	}
}

// CloseSession destroys the patient's engine and waits for its pending
// persistence callbacks.
func (s *Service) CloseSession(patientID uuid.UUID) error {
	if !s.closeSession(patientID) {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Service) closeSession(patientID uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.sessions[patientID]
	delete(s.sessions, patientID)
	if ok {
		s.sessionClosed()
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.engine.Destroy()
	sess.engine.Wait()
	s.logger.Info().Str("patient_id", patientID.String()).Msg("chart session closed")
	return true
}

// sessionClosed must be called with s.mu held.
func (s *Service) sessionClosed() {
	if s.metrics != nil {
		s.metrics.LiveSessions.Dec()
	}
}

// Session returns the live engine and marks it used.
func (s *Service) Session(patientID uuid.UUID) (*Engine, error) {
	sess, err := s.touch(patientID)
	if err != nil {
		return nil, err
	}
	return sess.engine, nil
}

func (s *Service) touch(patientID uuid.UUID) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[patientID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = s.clock()
	return sess, nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Snapshot returns the live chart, or the stored one when no session is open.
func (s *Service) Snapshot(ctx context.Context, patientID uuid.UUID) (ChartState, error) {
	if e, err := s.Session(patientID); err == nil {
		return e.TeethData(), nil
	}
	return s.repo.LoadChart(ctx, patientID)
}

// Frame returns the scene to show for the patient. Without a live session
// the stored chart is rendered with nothing selected.
func (s *Service) Frame(ctx context.Context, patientID uuid.UUID) (canvas.Scene, error) {
	if e, err := s.Session(patientID); err == nil {
		return e.Frame(), nil
	}
	state, err := s.repo.LoadChart(ctx, patientID)
	if err != nil {
		return canvas.Scene{}, err
	}
	return Render(View{State: state, UI: NewUIState()}), nil
}

// ReplaceChart stores state as the patient's whole chart and loads it into
// the live engine, if any.
func (s *Service) ReplaceChart(ctx context.Context, patientID uuid.UUID, state ChartState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveChart(ctx, patientID, state); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	if e, err := s.Session(patientID); err == nil {
		return e.LoadTeethData(state)
	}
	return nil
}

func (s *Service) HandlePointer(ctx context.Context, patientID uuid.UUID, x, y float64) (Outcome, error) {
	return s.do(ctx, patientID, func(e *Engine) (Outcome, error) { return e.HandlePointer(x, y) })
}

func (s *Service) HandleRegion(ctx context.Context, patientID uuid.UUID, key string) (Outcome, error) {
	return s.do(ctx, patientID, func(e *Engine) (Outcome, error) { return e.HandleRegion(key) })
}

func (s *Service) CommitNote(ctx context.Context, patientID uuid.UUID, note string) (Outcome, error) {
	return s.do(ctx, patientID, func(e *Engine) (Outcome, error) { return e.CommitNote(note) })
}

func (s *Service) Apply(ctx context.Context, patientID uuid.UUID, a Action) (Outcome, error) {
	return s.do(ctx, patientID, func(e *Engine) (Outcome, error) { return e.Apply(a) })
}

func (s *Service) SetMode(patientID uuid.UUID, m Mode) (UIState, error) {
	e, err := s.Session(patientID)
	if err != nil {
		return UIState{}, err
	}
	if err := e.SetMode(m); err != nil {
		return UIState{}, err
	}
	return e.UI(), nil
}

func (s *Service) SetActiveCondition(patientID uuid.UUID, c Condition) (UIState, error) {
	e, err := s.Session(patientID)
	if err != nil {
		return UIState{}, err
	}
	if err := e.SetActiveCondition(c); err != nil {
		return UIState{}, err
	}
	return e.UI(), nil
}

// PressKey delivers a key press through the session's key bus.
func (s *Service) PressKey(patientID uuid.UUID, ev KeyEvent) (UIState, error) {
	sess, err := s.touch(patientID)
	if err != nil {
		return UIState{}, err
	}
	sess.keys.Publish(ev)
	return sess.engine.UI(), nil
}

// History pages through the stored change log, newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]HistoryEntry, int, error) {
	return s.repo.ListEvents(ctx, patientID, limit, offset)
}

func (s *Service) do(ctx context.Context, patientID uuid.UUID, fn func(*Engine) (Outcome, error)) (Outcome, error) {
	sess, err := s.touch(patientID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := fn(sess.engine)
	if err != nil {
		return out, err
	}
	if out.Change != nil {
		s.recordChange(ctx, patientID, *out.Change)
	}
	return out, nil
}

// recordChange logs an accepted mutation. A failed event write does not undo
// the mutation; it is logged and counted like a failed callback.
func (s *Service) recordChange(ctx context.Context, patientID uuid.UUID, ch Change) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(string(ch.Kind)).Inc()
	}
	if err := s.repo.AppendEvent(ctx, patientID, ch.Entry); err != nil {
		s.logger.Error().Err(err).
			Str("patient_id", patientID.String()).
			Str("tooth_id", ch.Entry.ToothID).
			Msg("append chart event")
		s.countFailure("event")
	}
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(struct {
		Kind ChangeKind `json:"kind"`
		HistoryEntry
	}{ch.Kind, ch.Entry})
	if err != nil {
		return
	}
	_ = s.pub.Publish(ctx, websocket.Event{
		Type:      websocket.EventChange,
		Topic:     websocket.ChartTopic(patientID.String()),
		PatientID: patientID.String(),
		Timestamp: ch.Entry.Timestamp,
		Data:      data,
	})
}

func (s *Service) countFailure(callback string) {
	if s.metrics != nil {
		s.metrics.PersistenceFailures.WithLabelValues(callback).Inc()
	}
}

// adapterFor binds the five callbacks to the patient's rows.
func (s *Service) adapterFor(patientID uuid.UUID) PersistenceAdapter {
	counted := func(name string, err error) error {
		if err != nil {
			s.countFailure(name)
		}
		return err
	}
	return PersistenceAdapter{
		OnSurfaceChange: func(ctx context.Context, toothID string, surface Surface, condition SurfaceCondition) error {
			return counted("surface", s.repo.UpsertSurface(ctx, patientID, toothID, surface, condition))
		},
		OnWholeToothChange: func(ctx context.Context, toothID string, condition WholeCondition) error {
			return counted("whole", s.repo.UpsertWhole(ctx, patientID, toothID, condition))
		},
		OnMobilityChange: func(ctx context.Context, toothID string, mobility int) error {
			return counted("mobility", s.repo.UpsertMobility(ctx, patientID, toothID, mobility))
		},
		OnNoteChange: func(ctx context.Context, toothID string, note string) error {
			return counted("note", s.repo.UpsertNote(ctx, patientID, toothID, note))
		},
		OnResetTooth: func(ctx context.Context, toothID string) error {
			return counted("reset", s.repo.ResetTooth(ctx, patientID, toothID))
		},
	}
}

// SweepIdle closes sessions unused for longer than the idle timeout and
// returns how many it closed.
func (s *Service) SweepIdle(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	var stale []uuid.UUID
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.idle {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range stale {
		if s.closeSession(id) {
			n++
		}
	}
	if n > 0 {
		s.logger.Info().Int("closed", n).Msg("idle chart sessions swept")
	}
	return n
}

// Run sweeps idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.idle <= 0 {
		return
	}
	interval := s.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.SweepIdle(now)
		}
	}
}

// Shutdown closes every session, draining pending callbacks.
func (s *Service) Shutdown() {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.closeSession(id)
	}
}

// hubDisplay publishes every frame to the chart's websocket topic as SVG.
type hubDisplay struct {
	pub       websocket.EventPublisher
	patientID string
	logger    zerolog.Logger
}

func (d *hubDisplay) Draw(frame canvas.Scene) {
	var buf bytes.Buffer
	if err := canvas.EncodeSVG(&buf, frame); err != nil {
		d.logger.Error().Err(err).Str("patient_id", d.patientID).Msg("encode frame")
		return
	}
	data, _ := json.Marshal(map[string]string{"svg": buf.String()})
	d.publish(websocket.EventFrame, data)
}

func (d *hubDisplay) Release() {
	d.publish(websocket.EventReleased, nil)
}

func (d *hubDisplay) publish(typ string, data json.RawMessage) {
	_ = d.pub.Publish(context.Background(), websocket.Event{
		Type:      typ,
		Topic:     websocket.ChartTopic(d.patientID),
		PatientID: d.patientID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
