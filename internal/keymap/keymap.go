// Package keymap translates between Linux evdev key codes, Android key codes
// (the bridge's code space) and PC/AT set 1 scan codes consumed by the
// emulated keyboard controller.
package keymap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned when a key name is not in the table
var ErrUnknownKey = errors.New("unknown key")

// ScanCode is a set 1 make code. Extended keys are prefixed with 0xE0.
type ScanCode struct {
	Code     byte
	Extended bool
}

// Make returns the bytes sent when the key goes down
func (s ScanCode) Make() []byte {
	if s.Extended {
		return []byte{0xE0, s.Code}
	}
	return []byte{s.Code}
}

// Break returns the bytes sent when the key goes up
func (s ScanCode) Break() []byte {
	if s.Extended {
		return []byte{0xE0, s.Code | 0x80}
	}
	return []byte{s.Code | 0x80}
}

func (s ScanCode) String() string {
	if s.Extended {
		return fmt.Sprintf("E0 %02X", s.Code)
	}
	return fmt.Sprintf("%02X", s.Code)
}

// Key is one row of the translation table
type Key struct {
	Name    string
	Android int
	Evdev   int
	Scan    ScanCode
}

func sc(code byte) ScanCode  { return ScanCode{Code: code} }
func ext(code byte) ScanCode { return ScanCode{Code: code, Extended: true} }

var keys = []Key{
	{"Esc", 111, 1, sc(0x01)},
	{"1", 8, 2, sc(0x02)},
	{"2", 9, 3, sc(0x03)},
	{"3", 10, 4, sc(0x04)},
	{"4", 11, 5, sc(0x05)},
	{"5", 12, 6, sc(0x06)},
	{"6", 13, 7, sc(0x07)},
	{"7", 14, 8, sc(0x08)},
	{"8", 15, 9, sc(0x09)},
	{"9", 16, 10, sc(0x0A)},
	{"0", 7, 11, sc(0x0B)},
	{"Minus", 69, 12, sc(0x0C)},
	{"Equals", 70, 13, sc(0x0D)},
	{"Backspace", 67, 14, sc(0x0E)},
	{"Tab", 61, 15, sc(0x0F)},
	{"Q", 45, 16, sc(0x10)},
	{"W", 51, 17, sc(0x11)},
	{"E", 33, 18, sc(0x12)},
	{"R", 46, 19, sc(0x13)},
	{"T", 48, 20, sc(0x14)},
	{"Y", 53, 21, sc(0x15)},
	{"U", 49, 22, sc(0x16)},
	{"I", 37, 23, sc(0x17)},
	{"O", 43, 24, sc(0x18)},
	{"P", 44, 25, sc(0x19)},
	{"LeftBracket", 71, 26, sc(0x1A)},
	{"RightBracket", 72, 27, sc(0x1B)},
	{"Enter", 66, 28, sc(0x1C)},
	{"Ctrl", 113, 29, sc(0x1D)},
	{"A", 29, 30, sc(0x1E)},
	{"S", 47, 31, sc(0x1F)},
	{"D", 32, 32, sc(0x20)},
	{"F", 34, 33, sc(0x21)},
	{"G", 35, 34, sc(0x22)},
	{"H", 36, 35, sc(0x23)},
	{"J", 38, 36, sc(0x24)},
	{"K", 39, 37, sc(0x25)},
	{"L", 40, 38, sc(0x26)},
	{"Semicolon", 74, 39, sc(0x27)},
	{"Apostrophe", 75, 40, sc(0x28)},
	{"Grave", 68, 41, sc(0x29)},
	{"Shift", 59, 42, sc(0x2A)},
	{"Backslash", 73, 43, sc(0x2B)},
	{"Z", 54, 44, sc(0x2C)},
	{"X", 52, 45, sc(0x2D)},
	{"C", 31, 46, sc(0x2E)},
	{"V", 50, 47, sc(0x2F)},
	{"B", 30, 48, sc(0x30)},
	{"N", 42, 49, sc(0x31)},
	{"M", 41, 50, sc(0x32)},
	{"Comma", 55, 51, sc(0x33)},
	{"Period", 56, 52, sc(0x34)},
	{"Slash", 76, 53, sc(0x35)},
	{"RightShift", 60, 54, sc(0x36)},
	{"KPMultiply", 155, 55, sc(0x37)},
	{"Alt", 57, 56, sc(0x38)},
	{"Space", 62, 57, sc(0x39)},
	{"CapsLock", 115, 58, sc(0x3A)},
	{"F1", 131, 59, sc(0x3B)},
	{"F2", 132, 60, sc(0x3C)},
	{"F3", 133, 61, sc(0x3D)},
	{"F4", 134, 62, sc(0x3E)},
	{"F5", 135, 63, sc(0x3F)},
	{"F6", 136, 64, sc(0x40)},
	{"F7", 137, 65, sc(0x41)},
	{"F8", 138, 66, sc(0x42)},
	{"F9", 139, 67, sc(0x43)},
	{"F10", 140, 68, sc(0x44)},
	{"NumLock", 143, 69, sc(0x45)},
	{"ScrollLock", 116, 70, sc(0x46)},
	{"KP7", 151, 71, sc(0x47)},
	{"KP8", 152, 72, sc(0x48)},
	{"KP9", 153, 73, sc(0x49)},
	{"KPMinus", 156, 74, sc(0x4A)},
	{"KP4", 148, 75, sc(0x4B)},
	{"KP5", 149, 76, sc(0x4C)},
	{"KP6", 150, 77, sc(0x4D)},
	{"KPPlus", 157, 78, sc(0x4E)},
	{"KP1", 145, 79, sc(0x4F)},
	{"KP2", 146, 80, sc(0x50)},
	{"KP3", 147, 81, sc(0x51)},
	{"KP0", 144, 82, sc(0x52)},
	{"KPPeriod", 158, 83, sc(0x53)},
	{"F11", 141, 87, sc(0x57)},
	{"F12", 142, 88, sc(0x58)},
	{"KPEnter", 160, 96, ext(0x1C)},
	{"RightCtrl", 114, 97, ext(0x1D)},
	{"KPDivide", 154, 98, ext(0x35)},
	{"SysRq", 120, 99, ext(0x37)},
	{"RightAlt", 58, 100, ext(0x38)},
	{"Home", 122, 102, ext(0x47)},
	{"Up", 19, 103, ext(0x48)},
	{"PageUp", 92, 104, ext(0x49)},
	{"Left", 21, 105, ext(0x4B)},
	{"Right", 22, 106, ext(0x4D)},
	{"End", 123, 107, ext(0x4F)},
	{"Down", 20, 108, ext(0x50)},
	{"PageDown", 93, 109, ext(0x51)},
	{"Insert", 124, 110, ext(0x52)},
	{"Delete", 112, 111, ext(0x53)},
	{"Meta", 117, 125, ext(0x5B)},
	{"RightMeta", 118, 126, ext(0x5C)},
	{"Menu", 82, 127, ext(0x5D)},
	{"Back", 4, 158, ext(0x6A)},
	{"Forward", 125, 159, ext(0x69)},
}

// right-hand modifiers match their left-hand hotkey names
var hotkeyAliases = map[string]string{
	"RightCtrl":  "Ctrl",
	"RightShift": "Shift",
	"RightAlt":   "Alt",
	"RightMeta":  "Meta",
}

var (
	byAndroid = make(map[int]*Key, len(keys))
	byEvdev   = make(map[int]*Key, len(keys))
	byName    = make(map[string]*Key, len(keys))
)

func init() {
	for i := range keys {
		k := &keys[i]
		byAndroid[k.Android] = k
		byEvdev[k.Evdev] = k
		byName[strings.ToUpper(k.Name)] = k
	}
}

// ByAndroid looks up a key by Android key code
func ByAndroid(code int) (Key, bool) {
	k, ok := byAndroid[code]
	if !ok {
		return Key{}, false
	}
	return *k, true
}

// ByEvdev looks up a key by Linux input event code
func ByEvdev(code int) (Key, bool) {
	k, ok := byEvdev[code]
	if !ok {
		return Key{}, false
	}
	return *k, true
}

// ByName looks up a key by name, case-insensitively
func ByName(name string) (Key, error) {
	k, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return *k, nil
}

// HotkeyName returns the name a hotkey combination uses for k. Left and
// right modifiers share one name.
func HotkeyName(k Key) string {
	if alias, ok := hotkeyAliases[k.Name]; ok {
		return strings.ToUpper(alias)
	}
	return strings.ToUpper(k.Name)
}

// Keys returns a copy of the full table
func Keys() []Key {
	out := make([]Key, len(keys))
	copy(out, keys)
	return out
}
