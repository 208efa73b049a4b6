// Package input provides the pointer-capture bridge between host input events
// and the emulator's translated event vocabulary.
package input

import "fmt"

// Platform key codes. The pipeline carries Android KEYCODE_* values end to end.
const (
	KeyCodeBack    = 4
	KeyCodeForward = 125
)

// Motion action values, matching Android MotionEvent.ACTION_*.
const (
	ActionDown          = 0
	ActionUp            = 1
	ActionMove          = 2
	ActionCancel        = 3
	ActionHoverMove     = 7
	ActionScroll        = 8
	ActionButtonPress   = 11
	ActionButtonRelease = 12

	// ActionMask strips the pointer index bits from a raw action.
	ActionMask = 0xff
)

// Mouse button bits, matching Android MotionEvent.BUTTON_*.
const (
	ButtonPrimary   = 1 << 0
	ButtonSecondary = 1 << 1
	ButtonTertiary  = 1 << 2
	ButtonBack      = 1 << 3
	ButtonForward   = 1 << 4
)

// DeviceClass tags the kind of device a raw event originated from
type DeviceClass int

const (
	DeviceUnknown DeviceClass = iota
	DeviceKeyboard
	DeviceMouse
	DeviceTrackball
	DeviceTouchscreen
	DeviceGamepad
)

func (d DeviceClass) String() string {
	switch d {
	case DeviceKeyboard:
		return "keyboard"
	case DeviceMouse:
		return "mouse"
	case DeviceTrackball:
		return "trackball"
	case DeviceTouchscreen:
		return "touchscreen"
	case DeviceGamepad:
		return "gamepad"
	default:
		return "unknown"
	}
}

// IsMouse reports whether the device is a mouse-class pointing device
func (d DeviceClass) IsMouse() bool {
	return d == DeviceMouse
}

// KeyAction is the direction of a key event
type KeyAction int

const (
	KeyDown KeyAction = iota
	KeyUp
)

// ActionKind is the classification of a motion action used for translation
type ActionKind int

const (
	KindMove ActionKind = iota
	KindButtonPress
	KindButtonRelease
)

func (k ActionKind) String() string {
	switch k {
	case KindButtonPress:
		return "button_press"
	case KindButtonRelease:
		return "button_release"
	default:
		return "move"
	}
}

// RawEvent is a host input event: either a KeyEvent or a MotionEvent.
type RawEvent interface {
	rawEvent()
}

// KeyEvent is a raw key transition reported by the host
type KeyEvent struct {
	Code   int
	Action KeyAction
	Source DeviceClass
}

// MotionEvent is a raw pointer event reported by the host. While captured,
// X and Y carry relative deltas rather than screen coordinates.
type MotionEvent struct {
	Action      int
	X, Y        float32
	ButtonState int
	VScroll     float32
	Source      DeviceClass
}

func (KeyEvent) rawEvent()    {}
func (MotionEvent) rawEvent() {}

// Kind classifies the event's action. Everything that is not a button press
// or release is treated as motion.
func (e MotionEvent) Kind() ActionKind {
	switch e.Action & ActionMask {
	case ActionButtonPress:
		return KindButtonPress
	case ActionButtonRelease:
		return KindButtonRelease
	default:
		return KindMove
	}
}

// Event is a translated event delivered to a Sink: KeyState, MouseMove or
// MouseButton.
type Event interface {
	event()
}

// KeyState reports a key going down or up
type KeyState struct {
	Code int
	Down bool
}

// MouseMove reports relative motion and vertical wheel movement
type MouseMove struct {
	DX, DY float32
	Wheel  float32
}

// MouseButton reports a button transition together with the full button mask
type MouseButton struct {
	Pressed bool
	Mask    int
}

func (KeyState) event()    {}
func (MouseMove) event()   {}
func (MouseButton) event() {}

func (e KeyState) String() string {
	return fmt.Sprintf("key(code=%d down=%v)", e.Code, e.Down)
}

func (e MouseMove) String() string {
	return fmt.Sprintf("move(dx=%g dy=%g wheel=%g)", e.DX, e.DY, e.Wheel)
}

func (e MouseButton) String() string {
	return fmt.Sprintf("button(pressed=%v mask=%#x)", e.Pressed, e.Mask)
}
