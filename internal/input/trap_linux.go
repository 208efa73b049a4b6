//go:build linux

package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// EVIOCGRAB is _IOW('E', 0x90, int)
const eviocgrab = 0x40044590

// Trap is the Linux evdev host. It reads a mouse and an optional keyboard,
// feeds their events to a Handler and grabs both devices while captured so
// the desktop stops seeing them.
type Trap struct {
	keyboardPath string
	mousePath    string

	kbd   *os.File
	mouse *os.File

	mu       sync.Mutex
	grabbed  bool
	listener CaptureListener
	handler  Handler

	wg      sync.WaitGroup
	onLost  func(path string, err error)
	stopped bool
}

var (
	_ Host = (*Trap)(nil)
	_ View = (*Trap)(nil)
)

// NewTrap creates a trap for the given evdev nodes. keyboardPath may be empty.
func NewTrap(keyboardPath, mousePath string) *Trap {
	return &Trap{
		keyboardPath: keyboardPath,
		mousePath:    mousePath,
	}
}

// OnDeviceLost registers a callback for a device read failing, usually
// because it was unplugged.
func (t *Trap) OnDeviceLost(fn func(path string, err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLost = fn
}

// Open opens the device nodes. The mouse is required.
func (t *Trap) Open() error {
	if t.mousePath == "" {
		return ErrNoDevice
	}

	mouse, err := os.Open(t.mousePath)
	if err != nil {
		return fmt.Errorf("open mouse %s: %w", t.mousePath, err)
	}

	var kbd *os.File
	if t.keyboardPath != "" {
		kbd, err = os.Open(t.keyboardPath)
		if err != nil {
			mouse.Close()
			return fmt.Errorf("open keyboard %s: %w", t.keyboardPath, err)
		}
	}

	t.mu.Lock()
	t.mouse, t.kbd = mouse, kbd
	t.mu.Unlock()

	log.Info().Str("component", "trap").Str("mouse", t.mousePath).Str("keyboard", t.keyboardPath).Msg("Opened input devices")
	return nil
}

// Start begins feeding events to h. Open must have succeeded.
func (t *Trap) Start(h Handler) error {
	t.mu.Lock()
	if t.mouse == nil {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.handler = h
	mouse, kbd := t.mouse, t.kbd
	t.mu.Unlock()

	t.wg.Add(1)
	go t.readLoop(mouse, t.mousePath, &mouseDecoder{})

	if kbd != nil {
		t.wg.Add(1)
		go t.readLoop(kbd, t.keyboardPath, keyboardDecoder{})
	}
	return nil
}

type decoder interface {
	feed(ev evdevEvent) []RawEvent
}

func (t *Trap) readLoop(f *os.File, path string, dec decoder) {
	defer t.wg.Done()

	buf := make([]byte, evdevEventSize)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			t.mu.Lock()
			stopped, onLost := t.stopped, t.onLost
			t.mu.Unlock()
			if stopped || errors.Is(err, os.ErrClosed) {
				return
			}
			log.Warn().Str("component", "trap").Str("device", path).Err(err).Msg("Device read failed")
			if onLost != nil {
				onLost(path, err)
			}
			return
		}

		ev, err := parseEvdevEvent(buf)
		if err != nil {
			continue
		}
		for _, raw := range dec.feed(ev) {
			t.deliver(raw)
		}
	}
}

func (t *Trap) deliver(raw RawEvent) {
	t.mu.Lock()
	h, l, grabbed := t.handler, t.listener, t.grabbed
	t.mu.Unlock()

	if m, ok := raw.(MotionEvent); ok && grabbed && l != nil {
		if !l.OnCapturedPointer(m) {
			return
		}
	}
	h.Handle(raw)
}

// View returns the trap itself once a mouse is open
func (t *Trap) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mouse == nil {
		return nil
	}
	return t
}

// DefaultKeyEvent reports keys as unhandled; the desktop sees them unless grabbed
func (t *Trap) DefaultKeyEvent(ev KeyEvent) bool { return false }

// DefaultMotionEvent reports motion as unhandled
func (t *Trap) DefaultMotionEvent(ev MotionEvent) bool { return false }

// RequestCapture grabs the mouse and keyboard exclusively
func (t *Trap) RequestCapture() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mouse == nil {
		return ErrNotStarted
	}
	if t.grabbed {
		return nil
	}

	if err := grab(t.mouse, true); err != nil {
		return fmt.Errorf("grab mouse: %w", err)
	}
	if t.kbd != nil {
		if err := grab(t.kbd, true); err != nil {
			_ = grab(t.mouse, false)
			return fmt.Errorf("grab keyboard: %w", err)
		}
	}
	t.grabbed = true
	log.Debug().Str("component", "trap").Msg("Devices grabbed")
	return nil
}

// ReleaseCapture returns the devices to the desktop
func (t *Trap) ReleaseCapture() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.releaseLocked()
}

func (t *Trap) releaseLocked() error {
	if !t.grabbed {
		return nil
	}
	t.grabbed = false

	var errs []error
	if err := grab(t.mouse, false); err != nil {
		errs = append(errs, fmt.Errorf("release mouse: %w", err))
	}
	if t.kbd != nil {
		if err := grab(t.kbd, false); err != nil {
			errs = append(errs, fmt.Errorf("release keyboard: %w", err))
		}
	}
	log.Debug().Str("component", "trap").Msg("Devices released")
	return errors.Join(errs...)
}

// SetCaptureListener registers l for captured motion. Nil unregisters.
func (t *Trap) SetCaptureListener(l CaptureListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
}

// Stop releases any grab, closes the devices and waits for the readers
func (t *Trap) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	err := t.releaseLocked()
	if t.mouse != nil {
		t.mouse.Close()
	}
	if t.kbd != nil {
		t.kbd.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	return err
}

func grab(f *os.File, on bool) error {
	v := 0
	if on {
		v = 1
	}
	// Fd would switch the file to blocking mode and stop Close from
	// interrupting the reader
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ioErr error
	if err := rc.Control(func(fd uintptr) {
		ioErr = unix.IoctlSetInt(int(fd), eviocgrab, v)
	}); err != nil {
		return err
	}
	return ioErr
}
