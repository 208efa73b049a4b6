package gioinput

import (
	"sync"

	"emubridge/internal/input"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
)

// Host is a gio window acting as the bridge host. Gio has no exclusive
// pointer grab, so capture hides the cursor and the window keeps reporting
// relative motion through the Adapter.
type Host struct {
	mu       sync.Mutex
	captured bool
	listener input.CaptureListener
}

var (
	_ input.Host = (*Host)(nil)
	_ input.View = (*Host)(nil)
)

// NewHost creates an uncaptured host
func NewHost() *Host {
	return &Host{}
}

func (h *Host) View() input.View { return h }

// DefaultKeyEvent leaves keys to the window's own widgets
func (h *Host) DefaultKeyEvent(ev input.KeyEvent) bool { return false }

// DefaultMotionEvent leaves uncaptured motion to the window's own widgets
func (h *Host) DefaultMotionEvent(ev input.MotionEvent) bool { return false }

func (h *Host) RequestCapture() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captured = true
	return nil
}

func (h *Host) ReleaseCapture() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captured = false
	return nil
}

func (h *Host) SetCaptureListener(l input.CaptureListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

// Cursor is the cursor the window should set for its input area
func (h *Host) Cursor() pointer.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.captured {
		return pointer.CursorNone
	}
	return pointer.CursorDefault
}

// Deliver translates e with a and passes it to handler. While captured, motion
// is offered to the capture listener first and dropped if it declines.
func (h *Host) Deliver(a *Adapter, handler input.Handler, e event.Event) bool {
	raw, ok := a.Translate(e)
	if !ok {
		return false
	}

	h.mu.Lock()
	captured, l := h.captured, h.listener
	h.mu.Unlock()

	if m, isMotion := raw.(input.MotionEvent); isMotion && captured && l != nil {
		if !l.OnCapturedPointer(m) {
			return false
		}
	}
	return handler.Handle(raw)
}
