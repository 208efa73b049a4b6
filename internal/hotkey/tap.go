package hotkey

import (
	"sync"

	"emubridge/internal/input"
	"emubridge/internal/keymap"
)

// Tap is a Sink decorator that feeds key and button transitions to a Manager
// before forwarding them unchanged.
type Tap struct {
	next input.Sink
	mgr  *Manager

	mu      sync.Mutex
	buttons int
}

var _ input.Sink = (*Tap)(nil)

// NewTap wraps next. A nil next only feeds the manager.
func NewTap(next input.Sink, mgr *Manager) *Tap {
	return &Tap{next: next, mgr: mgr}
}

func (t *Tap) OnKey(code int, down bool) {
	if key, ok := keymap.ByAndroid(code); ok {
		t.mgr.UpdateState(keymap.HotkeyName(key), down)
	}
	if t.next != nil {
		t.next.OnKey(code, down)
	}
}

func (t *Tap) OnMouseMove(dx, dy, wheel float32) {
	if t.next != nil {
		t.next.OnMouseMove(dx, dy, wheel)
	}
}

// OnMouseButton diffs the button mask against the previous one so each
// changed bit becomes one MOUSEn transition.
func (t *Tap) OnMouseButton(pressed bool, mask int) {
	t.mu.Lock()
	prev := t.buttons
	t.buttons = mask
	t.mu.Unlock()

	for n := 1; n <= 5; n++ {
		bit := 1 << (n - 1)
		if prev&bit != mask&bit {
			t.mgr.UpdateState(MouseName(n), mask&bit != 0)
		}
	}

	if t.next != nil {
		t.next.OnMouseButton(pressed, mask)
	}
}
