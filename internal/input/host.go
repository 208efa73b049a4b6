package input

// Sink consumes translated events. It is the emulator core's entry point.
type Sink interface {
	OnKey(code int, down bool)
	OnMouseMove(dx, dy, wheel float32)
	OnMouseButton(pressed bool, mask int)
}

// CaptureListener receives captured-pointer notifications from a View
type CaptureListener interface {
	OnCapturedPointer(ev MotionEvent) bool
}

// View is the capturable surface owned by the host
type View interface {
	// RequestCapture grabs pointer input exclusively for this view.
	RequestCapture() error
	// ReleaseCapture gives the grab back to the host.
	ReleaseCapture() error
	// SetCaptureListener registers l for captured-pointer notifications.
	// A nil listener unregisters.
	SetCaptureListener(l CaptureListener)
}

// Host is the windowing environment delivering raw events to the bridge
type Host interface {
	// View returns the capturable view, or nil if none is attached yet.
	View() View
	DefaultKeyEvent(ev KeyEvent) bool
	DefaultMotionEvent(ev MotionEvent) bool
}

// Handler accepts raw events from a host event loop
type Handler interface {
	Handle(ev RawEvent) bool
}
