package input

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(code uint16, v int32) evdevEvent { return evdevEvent{Type: evRel, Code: code, Value: v} }
func key(code uint16, v int32) evdevEvent { return evdevEvent{Type: evKey, Code: code, Value: v} }
func syn() evdevEvent                     { return evdevEvent{Type: evSyn, Code: synReport} }

func feedAll(d interface{ feed(evdevEvent) []RawEvent }, evs ...evdevEvent) []RawEvent {
	var out []RawEvent
	for _, ev := range evs {
		out = append(out, d.feed(ev)...)
	}
	return out
}

// encodeEvdev lays ev out as struct input_event with word-sized timestamps
func encodeEvdev(ev evdevEvent, word int) []byte {
	buf := make([]byte, 2*word+8)
	if word == 8 {
		binary.NativeEndian.PutUint64(buf[0:8], uint64(ev.Sec))
		binary.NativeEndian.PutUint64(buf[8:16], uint64(ev.Usec))
	} else {
		binary.NativeEndian.PutUint32(buf[0:4], uint32(ev.Sec))
		binary.NativeEndian.PutUint32(buf[4:8], uint32(ev.Usec))
	}
	rest := buf[2*word:]
	binary.NativeEndian.PutUint16(rest[0:2], ev.Type)
	binary.NativeEndian.PutUint16(rest[2:4], ev.Code)
	binary.NativeEndian.PutUint32(rest[4:8], uint32(ev.Value))
	return buf
}

func TestParseEvdevEvent(t *testing.T) {
	want := evdevEvent{Sec: 1700000000, Usec: 250, Type: evRel, Code: relY, Value: -3}

	buf := encodeEvdev(want, evdevWordSize)
	require.Len(t, buf, evdevEventSize)
	ev, err := parseEvdevEvent(buf)
	require.NoError(t, err)
	assert.Equal(t, want, ev)

	_, err = parseEvdevEvent(buf[:10])
	assert.Error(t, err)
}

func TestParseEvdevEventLayouts(t *testing.T) {
	want := evdevEvent{Sec: 1700000000, Usec: 999999, Type: evKey, Code: btnLeft, Value: 1}

	for _, word := range []int{4, 8} {
		buf := encodeEvdev(want, word)
		assert.Len(t, buf, 2*word+8)

		ev, err := parseEvdevEventWord(buf, word)
		require.NoError(t, err, "word %d", word)
		assert.Equal(t, want, ev, "word %d", word)
	}

	_, err := parseEvdevEventWord(make([]byte, 16), 8)
	assert.Error(t, err, "a 32-bit frame is short for the 64-bit layout")
}

func TestMouseDecoderBatchesReport(t *testing.T) {
	d := &mouseDecoder{}
	out := feedAll(d, rel(relX, 3), rel(relY, -2), rel(relX, 1), rel(relWheel, 1), syn())

	require.Len(t, out, 1)
	assert.Equal(t, MotionEvent{Action: ActionMove, X: 4, Y: -2, VScroll: 1, Source: DeviceMouse}, out[0])

	// empty report emits nothing
	assert.Empty(t, feedAll(d, syn()))
}

func TestMouseDecoderButtons(t *testing.T) {
	d := &mouseDecoder{}
	out := feedAll(d,
		rel(relX, 5),
		key(btnLeft, keyPress),
		syn(),
		key(btnMiddle, keyPress),
		key(btnLeft, keyRelease),
		key(btnMiddle, keyRepeat),
	)

	assert.Equal(t, []RawEvent{
		MotionEvent{Action: ActionMove, X: 5, Source: DeviceMouse},
		MotionEvent{Action: ActionButtonPress, ButtonState: ButtonPrimary, Source: DeviceMouse},
		MotionEvent{Action: ActionButtonPress, ButtonState: ButtonPrimary | ButtonTertiary, Source: DeviceMouse},
		MotionEvent{Action: ActionButtonRelease, ButtonState: ButtonTertiary, Source: DeviceMouse},
	}, out)
}

func TestMouseDecoderSideButtonsAreKeys(t *testing.T) {
	d := &mouseDecoder{}
	out := feedAll(d, key(btnSide, keyPress), key(btnSide, keyRelease), key(btnExtra, keyPress))

	assert.Equal(t, []RawEvent{
		KeyEvent{Code: KeyCodeBack, Action: KeyDown, Source: DeviceMouse},
		KeyEvent{Code: KeyCodeBack, Action: KeyUp, Source: DeviceMouse},
		KeyEvent{Code: KeyCodeForward, Action: KeyDown, Source: DeviceMouse},
	}, out)
}

func TestKeyboardDecoder(t *testing.T) {
	out := feedAll(keyboardDecoder{},
		key(30, keyPress), // KEY_A
		key(30, keyRepeat),
		key(30, keyRelease),
		key(0x2ff, keyPress), // not in the table
		rel(relX, 1),
	)

	assert.Equal(t, []RawEvent{
		KeyEvent{Code: 29, Action: KeyDown, Source: DeviceKeyboard},
		KeyEvent{Code: 29, Action: KeyDown, Source: DeviceKeyboard},
		KeyEvent{Code: 29, Action: KeyUp, Source: DeviceKeyboard},
	}, out)
}

func TestSideBackThroughBridgeIsDropped(t *testing.T) {
	// A mouse back button must never reach the sink nor the host default
	host := &fakeHost{view: &fakeView{}, keyResult: true}
	sink := &recordSink{}
	b := New(host, sink)

	for _, raw := range feedAll(&mouseDecoder{}, key(btnSide, keyPress), key(btnSide, keyRelease)) {
		assert.False(t, b.Handle(raw))
	}
	assert.Empty(t, sink.events)
	assert.Empty(t, host.defaultKeys)
}
