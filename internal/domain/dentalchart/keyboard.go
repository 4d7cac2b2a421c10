package dentalchart

import "sync"

// KeyEvent is a key press delivered to a chart view. FocusedInput is set
// when a text-entry control owned the focus at the time of the press.
type KeyEvent struct {
	Key          string
	FocusedInput bool
}

// KeySource delivers key presses to subscribers. The returned function
// removes the subscription and is safe to call more than once.
type KeySource interface {
	Subscribe(fn func(KeyEvent)) (unsubscribe func())
}

// KeyBus is an in-process KeySource. Each view owns its own bus.
type KeyBus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(KeyEvent)
}

// NewKeyBus creates an empty bus.
func NewKeyBus() *KeyBus {
	return &KeyBus{subs: make(map[int]func(KeyEvent))}
}

func (b *KeyBus) Subscribe(fn func(KeyEvent)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber.
func (b *KeyBus) Publish(ev KeyEvent) {
	b.mu.RLock()
	fns := make([]func(KeyEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *KeyBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
