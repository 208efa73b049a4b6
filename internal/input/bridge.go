package input

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Bridge owns the pointer-capture state and translates raw host events into
// Sink calls. Translation happens synchronously inside the host's delivery
// call; nothing is queued.
type Bridge struct {
	mu       sync.Mutex
	host     Host
	sink     Sink
	captured bool
	// last button mask forwarded while captured
	buttons int

	onCaptureChange func(captured bool)
}

// New creates a Bridge delivering translated events from host to sink.
// It starts uncaptured.
func New(host Host, sink Sink) *Bridge {
	if host == nil || sink == nil {
		panic("input: bridge requires a host and a sink")
	}
	return &Bridge{
		host: host,
		sink: sink,
	}
}

// SetOnCaptureChange sets the callback invoked after every capture transition
func (b *Bridge) SetOnCaptureChange(callback func(captured bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCaptureChange = callback
}

// Captured reports whether pointer motion is currently routed to the sink
func (b *Bridge) Captured() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captured
}

// CaptureMouse grabs pointer input and registers the bridge as the captured
// pointer listener. Calling it while captured repeats the request harmlessly.
// It panics if the host has no view attached.
func (b *Bridge) CaptureMouse() error {
	return b.setCaptured(true)
}

// UncaptureMouse unregisters the listener and releases the grab. Buttons
// still held on the sink are released first, since their physical release
// arrives after capture ends and is never forwarded. The bridge is
// uncaptured afterwards even if the host fails to release its grab.
// It panics if the host has no view attached.
func (b *Bridge) UncaptureMouse() error {
	return b.setCaptured(false)
}

func (b *Bridge) setCaptured(on bool) error {
	changed, callback, err := b.transition(on)
	if err != nil {
		log.Error().Str("component", "bridge").Err(err).Bool("capture", on).Msg("Capture transition failed")
	}
	if changed {
		log.Info().Str("component", "bridge").Bool("captured", on).Msg("Capture state changed")
		if callback != nil {
			callback(on)
		}
	}
	return err
}

func (b *Bridge) transition(on bool) (bool, func(bool), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	view := b.host.View()
	if view == nil {
		panic(ErrNoView)
	}

	was := b.captured
	if on {
		if err := view.RequestCapture(); err != nil {
			return false, nil, fmt.Errorf("request capture: %w", err)
		}
		view.SetCaptureListener(b)
		b.captured = true
	} else {
		if b.captured && b.buttons != 0 {
			log.Debug().Str("component", "bridge").Int("mask", b.buttons).Msg("Releasing held buttons")
			b.sink.OnMouseButton(false, 0)
		}
		b.buttons = 0
		view.SetCaptureListener(nil)
		b.captured = false
		if err := view.ReleaseCapture(); err != nil {
			return was, b.onCaptureChange, fmt.Errorf("release capture: %w", err)
		}
	}
	return was != on, b.onCaptureChange, nil
}

// HandleKeyDown translates a key press
func (b *Bridge) HandleKeyDown(code int, source DeviceClass) bool {
	return b.HandleKey(KeyEvent{Code: code, Action: KeyDown, Source: source})
}

// HandleKeyUp translates a key release
func (b *Bridge) HandleKeyUp(code int, source DeviceClass) bool {
	return b.HandleKey(KeyEvent{Code: code, Action: KeyUp, Source: source})
}

// HandleKey forwards ev to the sink and returns the host's default result.
// A back key coming from a mouse is dropped and reported as unhandled so the
// host does not navigate away.
func (b *Bridge) HandleKey(ev KeyEvent) bool {
	if ev.Source.IsMouse() && ev.Code == KeyCodeBack {
		log.Debug().Str("component", "bridge").Int("code", ev.Code).Msg("Dropped back key from mouse")
		return false
	}

	b.mu.Lock()
	b.sink.OnKey(ev.Code, ev.Action == KeyDown)
	b.mu.Unlock()

	return b.host.DefaultKeyEvent(ev)
}

// HandleMotion translates ev while captured and reports it handled. While
// uncaptured the host's default handling decides and nothing is emitted.
func (b *Bridge) HandleMotion(ev MotionEvent) bool {
	b.mu.Lock()
	if !b.captured {
		b.mu.Unlock()
		return b.host.DefaultMotionEvent(ev)
	}
	defer b.mu.Unlock()

	out := TranslateMotion(ev)
	if btn, ok := out.(MouseButton); ok {
		b.buttons = btn.Mask
	}
	Dispatch(b.sink, out)
	return true
}

// Handle dispatches a raw event to HandleKey or HandleMotion
func (b *Bridge) Handle(ev RawEvent) bool {
	switch e := ev.(type) {
	case KeyEvent:
		return b.HandleKey(e)
	case MotionEvent:
		return b.HandleMotion(e)
	default:
		return false
	}
}

// OnCapturedPointer acknowledges a captured pointer notification so the host
// does not redispatch it.
func (b *Bridge) OnCapturedPointer(ev MotionEvent) bool {
	return true
}

// TranslateMotion maps a captured motion event to its translated form.
// Wheel values are passed through even when zero.
func TranslateMotion(ev MotionEvent) Event {
	switch ev.Kind() {
	case KindButtonPress:
		return MouseButton{Pressed: true, Mask: ev.ButtonState}
	case KindButtonRelease:
		return MouseButton{Pressed: false, Mask: ev.ButtonState}
	default:
		return MouseMove{DX: ev.X, DY: ev.Y, Wheel: ev.VScroll}
	}
}
