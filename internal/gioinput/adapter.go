// Package gioinput adapts gio pointer and key events into the bridge's raw
// event vocabulary.
package gioinput

import (
	"sync"

	"emubridge/internal/input"
	"emubridge/internal/keymap"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
)

// gio names that differ from the key table
var keyNames = map[key.Name]string{
	key.NameLeftArrow:      "Left",
	key.NameRightArrow:     "Right",
	key.NameUpArrow:        "Up",
	key.NameDownArrow:      "Down",
	key.NameReturn:         "Enter",
	key.NameEnter:          "KPEnter",
	key.NameEscape:         "Esc",
	key.NameHome:           "Home",
	key.NameEnd:            "End",
	key.NameDeleteBackward: "Backspace",
	key.NameDeleteForward:  "Delete",
	key.NamePageUp:         "PageUp",
	key.NamePageDown:       "PageDown",
	key.NameSuper:          "Meta",
	key.NameCommand:        "Meta",
	key.NameBack:           "Back",
	"-":                    "Minus",
	"=":                    "Equals",
	"[":                    "LeftBracket",
	"]":                    "RightBracket",
	";":                    "Semicolon",
	"'":                    "Apostrophe",
	"`":                    "Grave",
	"\\":                   "Backslash",
	",":                    "Comma",
	".":                    "Period",
	"/":                    "Slash",
}

// Adapter converts gio events into input.RawEvent values. Pointer positions
// become relative deltas against the previous position of the same source.
type Adapter struct {
	mu   sync.Mutex
	last map[pointer.Source]f32.Point
}

// NewAdapter creates an adapter with no pointer history
func NewAdapter() *Adapter {
	return &Adapter{last: make(map[pointer.Source]f32.Point)}
}

// Translate converts e. The second result is false for events the bridge
// has no use for.
func (a *Adapter) Translate(e event.Event) (input.RawEvent, bool) {
	switch e := e.(type) {
	case pointer.Event:
		return a.translatePointer(e)
	case key.Event:
		return translateKey(e)
	default:
		return nil, false
	}
}

func (a *Adapter) translatePointer(e pointer.Event) (input.RawEvent, bool) {
	ev := input.MotionEvent{
		ButtonState: buttonMask(e.Buttons),
		Source:      deviceClass(e.Source),
	}

	switch e.Kind {
	case pointer.Press:
		a.remember(e)
		ev.Action = input.ActionButtonPress
	case pointer.Release:
		a.remember(e)
		ev.Action = input.ActionButtonRelease
	case pointer.Move, pointer.Drag:
		d := a.delta(e)
		ev.X, ev.Y = d.X, d.Y
		ev.Action = input.ActionMove
		if e.Kind == pointer.Move {
			ev.Action = input.ActionHoverMove
		}
	case pointer.Scroll:
		// gio scrolls down with positive Y, the wheel axis is the opposite
		ev.Action = input.ActionScroll
		ev.VScroll = -e.Scroll.Y
	case pointer.Leave, pointer.Cancel:
		a.forget(e.Source)
		return nil, false
	default:
		return nil, false
	}
	return ev, true
}

func (a *Adapter) remember(e pointer.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[e.Source] = e.Position
}

func (a *Adapter) forget(src pointer.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.last, src)
}

// delta returns the motion since the previous event; the first one is zero
func (a *Adapter) delta(e pointer.Event) f32.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.last[e.Source]
	a.last[e.Source] = e.Position
	if !ok {
		return f32.Point{}
	}
	return e.Position.Sub(prev)
}

func buttonMask(b pointer.Buttons) int {
	mask := 0
	if b.Contain(pointer.ButtonPrimary) {
		mask |= input.ButtonPrimary
	}
	if b.Contain(pointer.ButtonSecondary) {
		mask |= input.ButtonSecondary
	}
	if b.Contain(pointer.ButtonTertiary) {
		mask |= input.ButtonTertiary
	}
	return mask
}

func deviceClass(src pointer.Source) input.DeviceClass {
	switch src {
	case pointer.Mouse:
		return input.DeviceMouse
	case pointer.Touch:
		return input.DeviceTouchscreen
	default:
		return input.DeviceUnknown
	}
}

func translateKey(e key.Event) (input.RawEvent, bool) {
	name := string(e.Name)
	if mapped, ok := keyNames[e.Name]; ok {
		name = mapped
	}
	k, err := keymap.ByName(name)
	if err != nil {
		return nil, false
	}

	action := input.KeyDown
	if e.State == key.Release {
		action = input.KeyUp
	}
	return input.KeyEvent{Code: k.Android, Action: action, Source: input.DeviceKeyboard}, true
}
