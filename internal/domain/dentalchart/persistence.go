package dentalchart

import "context"

// PersistenceAdapter receives a notification after each accepted mutation.
// Every callback is optional. Tooth ids are display (FDI) codes. The engine
// runs callbacks on their own goroutine, never waits for them and never
// retries a failure.
type PersistenceAdapter struct {
	OnSurfaceChange    func(ctx context.Context, toothID string, surface Surface, condition SurfaceCondition) error
	OnWholeToothChange func(ctx context.Context, toothID string, condition WholeCondition) error
	OnMobilityChange   func(ctx context.Context, toothID string, mobility int) error
	OnNoteChange       func(ctx context.Context, toothID string, note string) error
	OnResetTooth       func(ctx context.Context, toothID string) error
}

// callbackFor binds the callback matching ch, or returns nil when the
// adapter leaves it unset.
func (a PersistenceAdapter) callbackFor(ch Change) (string, func(context.Context) error) {
	id := ToDisplay(ch.Tooth)
	switch ch.Kind {
	case ChangeSurface:
		if a.OnSurfaceChange == nil {
			return "", nil
		}
		return "surface", func(ctx context.Context) error { return a.OnSurfaceChange(ctx, id, ch.Surface, ch.Condition) }
	case ChangeWhole:
		if a.OnWholeToothChange == nil {
			return "", nil
		}
		return "whole", func(ctx context.Context) error { return a.OnWholeToothChange(ctx, id, ch.Whole) }
	case ChangeMobility:
		if a.OnMobilityChange == nil {
			return "", nil
		}
		return "mobility", func(ctx context.Context) error { return a.OnMobilityChange(ctx, id, ch.Mobility) }
	case ChangeNote:
		if a.OnNoteChange == nil {
			return "", nil
		}
		return "note", func(ctx context.Context) error { return a.OnNoteChange(ctx, id, ch.Note) }
	case ChangeReset:
		if a.OnResetTooth == nil {
			return "", nil
		}
		return "reset", func(ctx context.Context) error { return a.OnResetTooth(ctx, id) }
	}
	return "", nil
}
