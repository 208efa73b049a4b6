package gioinput

import (
	"testing"

	"emubridge/internal/input"

	"gioui.org/f32"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointerMotionBecomesDeltas(t *testing.T) {
	a := NewAdapter()

	raw, ok := a.Translate(pointer.Event{Kind: pointer.Move, Source: pointer.Mouse, Position: f32.Pt(10, 10)})
	require.True(t, ok)
	assert.Equal(t, input.MotionEvent{Action: input.ActionHoverMove, Source: input.DeviceMouse}, raw)

	raw, ok = a.Translate(pointer.Event{Kind: pointer.Move, Source: pointer.Mouse, Position: f32.Pt(13, 8)})
	require.True(t, ok)
	assert.Equal(t, input.MotionEvent{Action: input.ActionHoverMove, X: 3, Y: -2, Source: input.DeviceMouse}, raw)

	raw, ok = a.Translate(pointer.Event{Kind: pointer.Drag, Source: pointer.Mouse, Buttons: pointer.ButtonPrimary, Position: f32.Pt(14, 8)})
	require.True(t, ok)
	assert.Equal(t, input.MotionEvent{Action: input.ActionMove, X: 1, ButtonState: input.ButtonPrimary, Source: input.DeviceMouse}, raw)

	// leaving resets the history
	_, ok = a.Translate(pointer.Event{Kind: pointer.Leave, Source: pointer.Mouse})
	assert.False(t, ok)
	raw, _ = a.Translate(pointer.Event{Kind: pointer.Move, Source: pointer.Mouse, Position: f32.Pt(50, 50)})
	assert.Equal(t, float32(0), raw.(input.MotionEvent).X)
}

func TestPointerButtonsAndScroll(t *testing.T) {
	a := NewAdapter()

	raw, ok := a.Translate(pointer.Event{Kind: pointer.Press, Source: pointer.Mouse, Buttons: pointer.ButtonPrimary | pointer.ButtonTertiary})
	require.True(t, ok)
	ev := raw.(input.MotionEvent)
	assert.Equal(t, input.KindButtonPress, ev.Kind())
	assert.Equal(t, input.ButtonPrimary|input.ButtonTertiary, ev.ButtonState)

	raw, ok = a.Translate(pointer.Event{Kind: pointer.Release, Source: pointer.Mouse, Buttons: pointer.ButtonSecondary})
	require.True(t, ok)
	ev = raw.(input.MotionEvent)
	assert.Equal(t, input.KindButtonRelease, ev.Kind())
	assert.Equal(t, input.ButtonSecondary, ev.ButtonState)

	raw, ok = a.Translate(pointer.Event{Kind: pointer.Scroll, Source: pointer.Mouse, Scroll: f32.Pt(0, 2)})
	require.True(t, ok)
	ev = raw.(input.MotionEvent)
	assert.Equal(t, input.KindMove, ev.Kind())
	assert.Equal(t, float32(-2), ev.VScroll)

	raw, ok = a.Translate(pointer.Event{Kind: pointer.Press, Source: pointer.Touch})
	require.True(t, ok)
	assert.Equal(t, input.DeviceTouchscreen, raw.(input.MotionEvent).Source)
}

func TestKeys(t *testing.T) {
	a := NewAdapter()

	cases := []struct {
		name key.Name
		code int
	}{
		{"A", 29},
		{key.NameEnd, 123},
		{key.NameReturn, 66},
		{key.NameBack, input.KeyCodeBack},
		{key.NameCtrl, 113},
		{"/", 76},
	}
	for _, c := range cases {
		raw, ok := a.Translate(key.Event{Name: c.name, State: key.Press})
		require.True(t, ok, "key %q", c.name)
		assert.Equal(t, input.KeyEvent{Code: c.code, Action: input.KeyDown, Source: input.DeviceKeyboard}, raw, "key %q", c.name)
	}

	raw, ok := a.Translate(key.Event{Name: "A", State: key.Release})
	require.True(t, ok)
	assert.Equal(t, input.KeyUp, raw.(input.KeyEvent).Action)

	_, ok = a.Translate(key.Event{Name: "☃", State: key.Press})
	assert.False(t, ok)

	_, ok = a.Translate(key.FocusEvent{Focus: true})
	assert.False(t, ok)
}

type recordSink struct {
	events []input.Event
}

func (s *recordSink) OnKey(code int, down bool) {
	s.events = append(s.events, input.KeyState{Code: code, Down: down})
}

func (s *recordSink) OnMouseMove(dx, dy, wheel float32) {
	s.events = append(s.events, input.MouseMove{DX: dx, DY: dy, Wheel: wheel})
}

func (s *recordSink) OnMouseButton(pressed bool, mask int) {
	s.events = append(s.events, input.MouseButton{Pressed: pressed, Mask: mask})
}

func TestHostDrivesBridge(t *testing.T) {
	host := NewHost()
	sink := &recordSink{}
	bridge := input.New(host, sink)
	a := NewAdapter()

	// uncaptured motion stays with the window
	assert.False(t, host.Deliver(a, bridge, pointer.Event{Kind: pointer.Move, Position: f32.Pt(1, 1)}))
	assert.Equal(t, pointer.CursorDefault, host.Cursor())

	require.NoError(t, bridge.CaptureMouse())
	assert.Equal(t, pointer.CursorNone, host.Cursor())

	assert.True(t, host.Deliver(a, bridge, pointer.Event{Kind: pointer.Move, Position: f32.Pt(4, 5)}))
	assert.True(t, host.Deliver(a, bridge, pointer.Event{Kind: pointer.Press, Buttons: pointer.ButtonPrimary}))
	host.Deliver(a, bridge, key.Event{Name: "A", State: key.Press})

	require.NoError(t, bridge.UncaptureMouse())
	assert.Equal(t, pointer.CursorDefault, host.Cursor())

	assert.Equal(t, []input.Event{
		input.MouseMove{DX: 3, DY: 4},
		input.MouseButton{Pressed: true, Mask: input.ButtonPrimary},
		input.KeyState{Code: 29, Down: true},
	}, sink.events)
}
