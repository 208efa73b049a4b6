// Package hotkey matches key and mouse button combinations in the translated
// event stream.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"emubridge/internal/keymap"

	"github.com/rs/zerolog/log"
)

// Manager handles hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys/buttons pressed
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "END"] or ["MOUSE3"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
	}
}

// Register registers a hotkey string (e.g. "Ctrl+End", "Mouse3") and a
// callback. Every part must name a known key or Mouse1 to Mouse5.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return -1, nil
	}

	rawParts := strings.Split(hotkeyStr, "+")
	parts := make([]string, 0, len(rawParts))
	for _, p := range rawParts {
		part, err := normalize(strings.TrimSpace(p))
		if err != nil {
			return -1, fmt.Errorf("hotkey %q: %w", hotkeyStr, err)
		}
		parts = append(parts, part)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	log.Debug().Str("component", "hotkey").Str("hotkey", hotkeyStr).Strs("parts", parts).Msg("Registered")
	return len(m.hotkeys) - 1, nil
}

// normalize maps a hotkey part to the name UpdateState is fed with
func normalize(part string) (string, error) {
	upper := strings.ToUpper(part)
	if n, ok := mouseButton(upper); ok {
		return MouseName(n), nil
	}
	key, err := keymap.ByName(part)
	if err != nil {
		return "", err
	}
	return keymap.HotkeyName(key), nil
}

func mouseButton(upper string) (int, bool) {
	if !strings.HasPrefix(upper, "MOUSE") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(upper, "MOUSE"))
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// MouseName returns the state name of mouse button n (1-based)
func MouseName(n int) string {
	return "MOUSE" + strconv.Itoa(n)
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key or button and checks for
// matches. A hotkey fires when its last missing part goes down.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	// Auto-repeat does not retrigger
	if isDown && !wasDown {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(pressed string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := false
		for _, part := range hk.parts {
			if part == pressed {
				match = true
				break
			}
		}
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
		}

		if match {
			log.Info().Str("component", "hotkey").Str("hotkey", hk.original).Msg("Hotkey triggered")
			// Callbacks may re-enter the event source
			go hk.callback()
		}
	}
}

// Reset forgets every pressed key, e.g. after the grab was lost
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = make(map[string]bool)
}
