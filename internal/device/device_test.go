package device

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInput builds a dev/input tree with a by-id directory
func fakeInput(t *testing.T, links map[string]string) string {
	t.Helper()
	root := t.TempDir()
	byID := filepath.Join(root, "by-id")
	require.NoError(t, os.Mkdir(byID, 0755))
	for name, target := range links {
		require.NoError(t, os.Symlink(target, filepath.Join(byID, name)))
	}
	return byID
}

func TestScanDir(t *testing.T) {
	byID := fakeInput(t, map[string]string{
		"usb-Logitech_Receiver-event-mouse": "../event5",
		"usb-Logitech_Receiver-mouse":       "../mouse0",
		"usb-Keychron_K2-event-kbd":         "../event3",
		"usb-Keychron_K2-event-if01":        "../event4",
	})

	devices, err := ScanDir(byID)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	root := filepath.Dir(byID)
	assert.Equal(t, Device{Name: "usb-Keychron_K2-event-kbd", Path: filepath.Join(root, "event3"), Type: TypeKeyboard}, devices[0])
	assert.Equal(t, Device{Name: "usb-Logitech_Receiver-event-mouse", Path: filepath.Join(root, "event5"), Type: TypeMouse}, devices[1])
}

func TestScanDirMissing(t *testing.T) {
	_, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	devices := []Device{
		{Name: "a-event-kbd", Path: "/dev/input/event3", Type: TypeKeyboard},
		{Name: "b-event-mouse", Path: "/dev/input/event5", Type: TypeMouse},
		{Name: "c-event-mouse", Path: "/dev/input/event6", Type: TypeMouse},
	}

	d, err := Pick(devices, TypeMouse, "")
	require.NoError(t, err)
	assert.Equal(t, "b-event-mouse", d.Name)

	d, err = Pick(devices, TypeMouse, "/dev/input/event6")
	require.NoError(t, err)
	assert.Equal(t, "c-event-mouse", d.Name)

	d, err = Pick(devices, TypeKeyboard, "a-event-kbd")
	require.NoError(t, err)
	assert.Equal(t, "/dev/input/event3", d.Path)

	_, err = Pick(devices[:1], TypeMouse, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Pick(devices, TypeMouse, filepath.Join(t.TempDir(), "event99"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonitorReportsHotplug(t *testing.T) {
	byID := fakeInput(t, map[string]string{
		"usb-Mouse-event-mouse": "../event5",
	})

	m, err := NewMonitor(byID)
	require.NoError(t, err)
	m.debounce = 20 * time.Millisecond

	var mu sync.Mutex
	var got []Event
	m.OnChange(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	require.NoError(t, m.Start())
	defer m.Close()
	assert.Len(t, m.Devices(), 1)

	require.NoError(t, os.Remove(filepath.Join(byID, "usb-Mouse-event-mouse")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, Removed, got[0].Type)
	assert.Equal(t, "usb-Mouse-event-mouse", got[0].Device.Name)
	mu.Unlock()
	assert.Empty(t, m.Devices())

	require.NoError(t, os.Symlink("../event7", filepath.Join(byID, "usb-Other-event-kbd")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, Added, got[1].Type)
	assert.Equal(t, TypeKeyboard, got[1].Device.Type)
	mu.Unlock()
}

func TestMonitorCloseTwice(t *testing.T) {
	m, err := NewMonitor(fakeInput(t, nil))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
