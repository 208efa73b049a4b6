//go:build !linux

package input

// Trap is unavailable off Linux; every operation reports ErrUnsupportedPlatform.
type Trap struct{}

// NewTrap creates a trap that cannot be opened on this platform
func NewTrap(keyboardPath, mousePath string) *Trap {
	return &Trap{}
}

func (t *Trap) OnDeviceLost(fn func(path string, err error)) {}

func (t *Trap) Open() error { return ErrUnsupportedPlatform }

func (t *Trap) Start(h Handler) error { return ErrUnsupportedPlatform }

func (t *Trap) View() View { return nil }

func (t *Trap) DefaultKeyEvent(ev KeyEvent) bool { return false }

func (t *Trap) DefaultMotionEvent(ev MotionEvent) bool { return false }

func (t *Trap) RequestCapture() error { return ErrUnsupportedPlatform }

func (t *Trap) ReleaseCapture() error { return nil }

func (t *Trap) SetCaptureListener(l CaptureListener) {}

func (t *Trap) Stop() error { return nil }
