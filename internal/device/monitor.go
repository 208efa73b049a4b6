package device

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultDebounce = 500 * time.Millisecond

// EventType is the kind of hotplug change
type EventType int

const (
	Added EventType = iota
	Removed
)

func (t EventType) String() string {
	if t == Added {
		return "added"
	}
	return "removed"
}

// Event reports a device appearing or disappearing
type Event struct {
	Type   EventType
	Device Device
}

// Monitor watches a by-id directory and reports devices as they come and go.
// Bursts of filesystem events are batched into one rescan.
type Monitor struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu        sync.Mutex
	devices   map[string]Device // keyed by symlink name
	callbacks []func(Event)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor for dir, usually ByIDDir
func NewMonitor(dir string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Monitor{
		dir:      dir,
		debounce: defaultDebounce,
		watcher:  watcher,
		devices:  make(map[string]Device),
		stopChan: make(chan struct{}),
	}, nil
}

// OnChange registers a callback. Callbacks run on the monitor goroutine.
func (m *Monitor) OnChange(cb func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Start takes the initial snapshot and begins watching
func (m *Monitor) Start() error {
	if err := m.watcher.Add(m.dir); err != nil {
		return err
	}

	devices, err := ScanDir(m.dir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, d := range devices {
		m.devices[d.Name] = d
	}
	m.mu.Unlock()

	log.Info().Str("component", "device").Str("dir", m.dir).Int("devices", len(devices)).Msg("Watching devices")

	m.wg.Add(1)
	go m.watchEvents()
	return nil
}

// Devices returns the current snapshot
func (m *Monitor) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out
}

// Close stops watching
func (m *Monitor) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopChan)
		err = m.watcher.Close()
		m.wg.Wait()
	})
	return err
}

func (m *Monitor) watchEvents() {
	defer m.wg.Done()

	timer := time.NewTimer(m.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-m.stopChan:
			timer.Stop()
			return

		case <-timer.C:
			if pending {
				pending = false
				m.rescan()
			}

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("component", "device").Str("op", event.Op.String()).Str("path", event.Name).Msg("Filesystem event")
			if !pending {
				pending = true
				timer.Reset(m.debounce)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Str("component", "device").Err(err).Msg("Watcher error")
		}
	}
}

// rescan diffs the directory against the snapshot and notifies callbacks
func (m *Monitor) rescan() {
	devices, err := ScanDir(m.dir)
	if err != nil {
		log.Warn().Str("component", "device").Err(err).Msg("Rescan failed")
		return
	}

	current := make(map[string]Device, len(devices))
	for _, d := range devices {
		current[d.Name] = d
	}

	m.mu.Lock()
	var events []Event
	for name, d := range m.devices {
		if _, ok := current[name]; !ok {
			events = append(events, Event{Type: Removed, Device: d})
		}
	}
	for name, d := range current {
		if _, ok := m.devices[name]; !ok {
			events = append(events, Event{Type: Added, Device: d})
		}
	}
	m.devices = current
	callbacks := append([]func(Event){}, m.callbacks...)
	m.mu.Unlock()

	for _, ev := range events {
		log.Info().Str("component", "device").Str("event", ev.Type.String()).Str("name", ev.Device.Name).Str("path", ev.Device.Path).Msg("Device change")
		for _, cb := range callbacks {
			cb(ev)
		}
	}
}
