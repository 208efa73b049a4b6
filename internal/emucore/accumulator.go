// Package emucore is the emulator side of the bridge: it accumulates
// translated events into the state an emulated mouse and keyboard controller
// poll once per frame.
package emucore

import (
	"sync"

	"emubridge/internal/keymap"

	"github.com/rs/zerolog/log"
)

// DefaultQueueSize bounds the pending scan code bytes
const DefaultQueueSize = 256

// MouseState is the mouse input gathered since the previous poll
type MouseState struct {
	DX, DY  float32
	Wheel   float32
	Buttons int
}

// Accumulator implements input.Sink for an emulator that polls its devices.
// Relative motion sums up between polls; the button mask is the last one
// reported; key transitions become set 1 scan codes in a bounded queue.
type Accumulator struct {
	mu      sync.Mutex
	dx, dy  float32
	wheel   float32
	buttons int

	scan     []byte
	maxScan  int
	dropped  int
	unmapped int
}

// NewAccumulator creates an accumulator holding up to queueSize pending scan
// code bytes. A non-positive size selects DefaultQueueSize.
func NewAccumulator(queueSize int) *Accumulator {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Accumulator{
		scan:    make([]byte, 0, queueSize),
		maxScan: queueSize,
	}
}

// OnKey queues the make or break sequence for an Android key code
func (a *Accumulator) OnKey(code int, down bool) {
	k, ok := keymap.ByAndroid(code)
	if !ok {
		a.mu.Lock()
		a.unmapped++
		a.mu.Unlock()
		log.Debug().Str("component", "emucore").Int("code", code).Msg("No scan code for key")
		return
	}

	seq := k.Scan.Break()
	if down {
		seq = k.Scan.Make()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.scan)+len(seq) > a.maxScan {
		a.dropped++
		log.Warn().Str("component", "emucore").Str("key", k.Name).Int("pending", len(a.scan)).Msg("Scan code queue full, dropping key")
		return
	}
	a.scan = append(a.scan, seq...)
}

// OnMouseMove adds relative motion to the pending deltas
func (a *Accumulator) OnMouseMove(dx, dy, wheel float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dx += dx
	a.dy += dy
	a.wheel += wheel
}

// OnMouseButton records the current button mask
func (a *Accumulator) OnMouseButton(pressed bool, mask int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buttons = mask
}

// Poll returns the mouse state gathered since the last poll and clears the
// deltas. Buttons are level state and are kept.
func (a *Accumulator) Poll() MouseState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := MouseState{DX: a.dx, DY: a.dy, Wheel: a.wheel, Buttons: a.buttons}
	a.dx, a.dy, a.wheel = 0, 0, 0
	return st
}

// DrainScanCodes returns the pending scan code bytes in arrival order and
// empties the queue.
func (a *Accumulator) DrainScanCodes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.scan) == 0 {
		return nil
	}
	out := make([]byte, len(a.scan))
	copy(out, a.scan)
	a.scan = a.scan[:0]
	return out
}

// Stats reports how many keys were dropped for a full queue and how many had
// no scan code.
func (a *Accumulator) Stats() (dropped, unmapped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped, a.unmapped
}
