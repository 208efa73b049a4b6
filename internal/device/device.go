// Package device finds evdev keyboards and mice and watches for hotplug.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ByIDDir is where udev publishes stable device symlinks
const ByIDDir = "/dev/input/by-id"

// ErrNotFound is returned when no device of the requested type exists
var ErrNotFound = errors.New("device: not found")

// Type classifies a device by its by-id name
type Type int

const (
	TypeKeyboard Type = iota
	TypeMouse
)

func (t Type) String() string {
	switch t {
	case TypeKeyboard:
		return "keyboard"
	case TypeMouse:
		return "mouse"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Device is one evdev node reachable through a by-id symlink
type Device struct {
	// Name is the symlink name, e.g. "usb-Logitech_USB_Receiver-event-mouse"
	Name string
	// Path is the resolved event node, e.g. "/dev/input/event5"
	Path string
	Type Type
}

// Scan lists the devices under ByIDDir
func Scan() ([]Device, error) {
	return ScanDir(ByIDDir)
}

// ScanDir lists the event devices linked from dir, sorted by name. Only
// names containing "event" with a "kbd" or "mouse" suffix are reported.
func ScanDir(dir string) ([]Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("device: read %s: %w", dir, err)
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(name, "event") {
			continue
		}

		var typ Type
		switch {
		case strings.HasSuffix(name, "kbd"):
			typ = TypeKeyboard
		case strings.HasSuffix(name, "mouse"):
			typ = TypeMouse
		default:
			continue
		}

		fullPath := filepath.Join(dir, name)
		target, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}

		devices = append(devices, Device{Name: name, Path: filepath.Clean(target), Type: typ})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// Pick returns the device to open for typ. A non-empty preferred path or
// name wins when present, otherwise the first device of that type is used.
func Pick(devices []Device, typ Type, preferred string) (Device, error) {
	if preferred != "" {
		for _, d := range devices {
			if d.Path == preferred || d.Name == preferred || filepath.Join(ByIDDir, d.Name) == preferred {
				return d, nil
			}
		}
		// An explicit node that is not linked from by-id is still usable
		if _, err := os.Stat(preferred); err == nil {
			return Device{Name: filepath.Base(preferred), Path: preferred, Type: typ}, nil
		}
		return Device{}, fmt.Errorf("%w: %s %q", ErrNotFound, typ, preferred)
	}

	for _, d := range devices {
		if d.Type == typ {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: no %s", ErrNotFound, typ)
}
