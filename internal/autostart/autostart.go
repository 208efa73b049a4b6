// Package autostart installs an XDG autostart entry that launches the host
// on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const entryName = "emubridge.desktop"

const desktopEntry = `[Desktop Entry]
Type=Application
Name=emubridge
Comment=Forward captured pointer input to the emulator core
Exec={{.ExecutablePath}} run{{if .Capture}} --capture{{end}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// Dir returns the autostart directory, honouring XDG_CONFIG_HOME
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

func entryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, entryName), nil
}

// Enable writes the desktop entry for execPath. An empty execPath uses the
// running executable.
func Enable(execPath string, capture bool) error {
	if execPath == "" {
		var err error
		if execPath, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
	}

	path, err := entryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpl, err := template.New("desktop").Parse(desktopEntry)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct {
		ExecutablePath string
		Capture        bool
	}{execPath, capture})
}

// Disable removes the desktop entry. A missing entry is not an error.
func Disable() error {
	path, err := entryPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled reports whether the desktop entry exists
func IsEnabled() bool {
	path, err := entryPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
