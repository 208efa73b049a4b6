package input

import "errors"

var (
	// ErrUnsupportedPlatform is returned when the evdev trap is used off Linux
	ErrUnsupportedPlatform = errors.New("input trapping not supported on this platform")

	// ErrNoDevice is returned when no mouse device is configured or found
	ErrNoDevice = errors.New("no input device")

	// ErrNotStarted is returned when the trap is used before Start
	ErrNotStarted = errors.New("trap not started")

	// ErrNoView is the panic value of a capture change requested before the
	// host attached its view. It is a programming error, never returned.
	ErrNoView = errors.New("input: capture state changed before the host view was attached")
)
