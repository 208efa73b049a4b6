//go:build linux

package input

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanHandler chan RawEvent

func (h chanHandler) Handle(ev RawEvent) bool {
	h <- ev
	return true
}

type countingListener struct {
	mu      sync.Mutex
	seen    int
	consume bool
}

func (l *countingListener) OnCapturedPointer(MotionEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen++
	return l.consume
}

func (l *countingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen
}

// pipeTrap returns a trap reading pipes in place of evdev nodes
func pipeTrap(t *testing.T) (trap *Trap, mouse, kbd *os.File) {
	t.Helper()
	mr, mw, err := os.Pipe()
	require.NoError(t, err)
	kr, kw, err := os.Pipe()
	require.NoError(t, err)

	trap = NewTrap("kbd-pipe", "mouse-pipe")
	trap.mouse, trap.kbd = mr, kr
	t.Cleanup(func() {
		mw.Close()
		kw.Close()
		trap.mu.Lock()
		trap.grabbed = false // pipes cannot be ungrabbed
		trap.mu.Unlock()
		trap.Stop()
	})
	return trap, mw, kw
}

func writeEvents(t *testing.T, f *os.File, evs ...evdevEvent) {
	t.Helper()
	for _, ev := range evs {
		_, err := f.Write(encodeEvdev(ev, evdevWordSize))
		require.NoError(t, err)
	}
}

func nextEvent(t *testing.T, h chanHandler) RawEvent {
	t.Helper()
	select {
	case ev := <-h:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestTrapStartRequiresOpen(t *testing.T) {
	trap := NewTrap("", "/nonexistent")
	assert.ErrorIs(t, trap.Start(make(chanHandler)), ErrNotStarted)
	assert.Nil(t, trap.View())
	assert.ErrorIs(t, NewTrap("", "").Open(), ErrNoDevice)
}

func TestTrapDeliversUncapturedEvents(t *testing.T) {
	trap, mouse, kbd := pipeTrap(t)
	h := make(chanHandler, 8)
	l := &countingListener{consume: true}
	trap.SetCaptureListener(l)
	require.NoError(t, trap.Start(h))
	assert.NotNil(t, trap.View())

	writeEvents(t, mouse, rel(relX, 5), rel(relY, -2), syn())
	assert.Equal(t, MotionEvent{Action: ActionMove, X: 5, Y: -2, Source: DeviceMouse}, nextEvent(t, h))

	writeEvents(t, kbd, key(30, keyPress)) // KEY_A
	assert.Equal(t, KeyEvent{Code: 29, Action: KeyDown, Source: DeviceKeyboard}, nextEvent(t, h))

	// not grabbed, so the listener is not consulted
	assert.Equal(t, 0, l.count())
}

func TestTrapOffersCapturedMotionToListener(t *testing.T) {
	trap, mouse, kbd := pipeTrap(t)
	h := make(chanHandler, 8)
	l := &countingListener{consume: true}
	trap.SetCaptureListener(l)
	trap.grabbed = true
	require.NoError(t, trap.Start(h))

	writeEvents(t, mouse, rel(relX, 1), syn())
	assert.Equal(t, MotionEvent{Action: ActionMove, X: 1, Source: DeviceMouse}, nextEvent(t, h))
	assert.Equal(t, 1, l.count())

	// keys bypass the listener
	writeEvents(t, kbd, key(30, keyPress))
	nextEvent(t, h)
	assert.Equal(t, 1, l.count())

	// a declining listener drops the motion
	l.mu.Lock()
	l.consume = false
	l.mu.Unlock()
	writeEvents(t, mouse, rel(relX, 2), syn())
	require.Eventually(t, func() bool { return l.count() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h)
}

func TestTrapReportsLostDevice(t *testing.T) {
	trap, mouse, _ := pipeTrap(t)
	lost := make(chan string, 1)
	trap.OnDeviceLost(func(path string, err error) {
		assert.Error(t, err)
		lost <- path
	})
	require.NoError(t, trap.Start(make(chanHandler, 8)))

	require.NoError(t, mouse.Close())

	select {
	case path := <-lost:
		assert.Equal(t, "mouse-pipe", path)
	case <-time.After(time.Second):
		t.Fatal("device loss not reported")
	}
}

func TestTrapStopIsQuiet(t *testing.T) {
	trap, _, _ := pipeTrap(t)
	lost := make(chan string, 1)
	trap.OnDeviceLost(func(path string, err error) { lost <- path })
	require.NoError(t, trap.Start(make(chanHandler, 8)))

	require.NoError(t, trap.Stop())
	assert.Empty(t, lost)
}
