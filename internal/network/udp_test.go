package network

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"emubridge/internal/input"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncSink struct {
	mu     sync.Mutex
	events []input.Event
}

func (s *syncSink) OnKey(code int, down bool) {
	s.add(input.KeyState{Code: code, Down: down})
}

func (s *syncSink) OnMouseMove(dx, dy, wheel float32) {
	s.add(input.MouseMove{DX: dx, DY: dy, Wheel: wheel})
}

func (s *syncSink) OnMouseButton(pressed bool, mask int) {
	s.add(input.MouseButton{Pressed: pressed, Mask: mask})
}

func (s *syncSink) add(ev input.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *syncSink) snapshot() []input.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]input.Event(nil), s.events...)
}

func TestSeqDedup(t *testing.T) {
	d := newSeqDedup()

	assert.False(t, d.isDuplicate(1))
	assert.True(t, d.isDuplicate(1))
	assert.False(t, d.isDuplicate(2))

	// push 1 out of the ring
	for seq := uint32(3); seq < 3+512; seq++ {
		d.isDuplicate(seq)
	}
	assert.False(t, d.isDuplicate(1))
}

func TestSenderWithoutCoresDropsEvents(t *testing.T) {
	s := NewUDPSender(0)
	// not started: must not panic
	s.OnKey(29, true)
	assert.False(t, s.HasCores())
}

func TestSenderToReceiver(t *testing.T) {
	sender := NewUDPSender(0)
	require.NoError(t, sender.Start())
	defer sender.Stop()

	sink := &syncSink{}
	hostAddr := fmt.Sprintf("127.0.0.1:%d", sender.Addr().Port)
	receiver := NewUDPReceiver(hostAddr, sink)
	require.True(t, receiver.Probe())
	require.NoError(t, receiver.Start())
	defer receiver.Stop()

	// the probe socket registers too
	require.Eventually(t, func() bool { return sender.CoreCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	sender.OnKey(29, true)
	sender.OnMouseMove(3.5, -2, 1)
	sender.OnMouseButton(true, input.ButtonPrimary)
	sender.OnKey(29, false)

	want := []input.Event{
		input.KeyState{Code: 29, Down: true},
		input.MouseMove{DX: 3.5, DY: -2, Wheel: 1},
		input.MouseButton{Pressed: true, Mask: input.ButtonPrimary},
		input.KeyState{Code: 29, Down: false},
	}
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= len(want)
	}, 2*time.Second, 10*time.Millisecond)

	// give stray redundant copies time to arrive, they must be deduplicated
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, want, sink.snapshot())
}
