package input

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"emubridge/internal/keymap"
)

// Linux input event types and codes (linux/input-event-codes.h)
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0x00

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnExtra  = 0x114

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// The timestamp of struct input_event is two native longs, so the struct is
// 24 bytes on 64-bit and 16 bytes on 32-bit Linux.
const (
	evdevWordSize  = strconv.IntSize / 8
	evdevEventSize = 2*evdevWordSize + 8
)

// evdevEvent mirrors struct input_event
type evdevEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

func parseEvdevEvent(buf []byte) (evdevEvent, error) {
	return parseEvdevEventWord(buf, evdevWordSize)
}

// parseEvdevEventWord decodes one native-endian event whose timestamp words
// are word bytes wide
func parseEvdevEventWord(buf []byte, word int) (evdevEvent, error) {
	size := 2*word + 8
	if len(buf) < size {
		return evdevEvent{}, fmt.Errorf("evdev: short event (%d bytes)", len(buf))
	}
	long := func(b []byte) int64 {
		if word == 8 {
			return int64(binary.NativeEndian.Uint64(b))
		}
		return int64(int32(binary.NativeEndian.Uint32(b)))
	}
	rest := buf[2*word:]
	return evdevEvent{
		Sec:   long(buf[0:word]),
		Usec:  long(buf[word : 2*word]),
		Type:  binary.NativeEndian.Uint16(rest[0:2]),
		Code:  binary.NativeEndian.Uint16(rest[2:4]),
		Value: int32(binary.NativeEndian.Uint32(rest[4:8])),
	}, nil
}

var buttonBits = map[uint16]int{
	btnLeft:   ButtonPrimary,
	btnRight:  ButtonSecondary,
	btnMiddle: ButtonTertiary,
}

// side buttons arrive as navigation keys, the way Android reports them
var buttonKeys = map[uint16]int{
	btnSide:  KeyCodeBack,
	btnExtra: KeyCodeForward,
}

// mouseDecoder turns a mouse's evdev stream into raw events. Relative axes
// are collected until SYN_REPORT so one report becomes one move.
type mouseDecoder struct {
	dx, dy, wheel float32
	pending       bool
	buttons       int
}

func (d *mouseDecoder) feed(ev evdevEvent) []RawEvent {
	switch ev.Type {
	case evRel:
		switch ev.Code {
		case relX:
			d.dx += float32(ev.Value)
		case relY:
			d.dy += float32(ev.Value)
		case relWheel:
			d.wheel += float32(ev.Value)
		default:
			return nil
		}
		d.pending = true
		return nil

	case evSyn:
		if ev.Code == synReport {
			return d.flush(nil)
		}
		return nil

	case evKey:
		if ev.Value == keyRepeat {
			return nil
		}
		down := ev.Value == keyPress

		if bit, ok := buttonBits[ev.Code]; ok {
			// Motion reported before the button keeps its order
			out := d.flush(nil)
			action := ActionButtonRelease
			if down {
				d.buttons |= bit
				action = ActionButtonPress
			} else {
				d.buttons &^= bit
			}
			return append(out, MotionEvent{Action: action, ButtonState: d.buttons, Source: DeviceMouse})
		}

		if code, ok := buttonKeys[ev.Code]; ok {
			out := d.flush(nil)
			action := KeyUp
			if down {
				action = KeyDown
			}
			return append(out, KeyEvent{Code: code, Action: action, Source: DeviceMouse})
		}
	}
	return nil
}

func (d *mouseDecoder) flush(out []RawEvent) []RawEvent {
	if !d.pending {
		return out
	}
	out = append(out, MotionEvent{
		Action:      ActionMove,
		X:           d.dx,
		Y:           d.dy,
		VScroll:     d.wheel,
		ButtonState: d.buttons,
		Source:      DeviceMouse,
	})
	d.dx, d.dy, d.wheel = 0, 0, 0
	d.pending = false
	return out
}

// keyboardDecoder maps evdev key codes into the Android code space.
// Auto-repeat counts as another key down.
type keyboardDecoder struct{}

func (keyboardDecoder) feed(ev evdevEvent) []RawEvent {
	if ev.Type != evKey {
		return nil
	}
	key, ok := keymap.ByEvdev(int(ev.Code))
	if !ok {
		return nil
	}
	action := KeyDown
	if ev.Value == keyRelease {
		action = KeyUp
	}
	return []RawEvent{KeyEvent{Code: key.Android, Action: action, Source: DeviceKeyboard}}
}
