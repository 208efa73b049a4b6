package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableHasNoDuplicates(t *testing.T) {
	android := map[int]string{}
	evdev := map[int]string{}
	names := map[string]bool{}
	for _, k := range Keys() {
		if prev, ok := android[k.Android]; ok {
			t.Errorf("android code %d used by %s and %s", k.Android, prev, k.Name)
		}
		if prev, ok := evdev[k.Evdev]; ok {
			t.Errorf("evdev code %d used by %s and %s", k.Evdev, prev, k.Name)
		}
		assert.False(t, names[k.Name], "duplicate name %s", k.Name)
		android[k.Android] = k.Name
		evdev[k.Evdev] = k.Name
		names[k.Name] = true
	}
}

func TestLookups(t *testing.T) {
	a, ok := ByAndroid(29)
	require.True(t, ok)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, 30, a.Evdev)

	back, ok := ByEvdev(158)
	require.True(t, ok)
	assert.Equal(t, 4, back.Android)

	_, ok = ByAndroid(9999)
	assert.False(t, ok)

	end, err := ByName(" end ")
	require.NoError(t, err)
	assert.Equal(t, 123, end.Android)

	_, err = ByName("Hyper")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestScanCodes(t *testing.T) {
	a, _ := ByName("A")
	assert.Equal(t, []byte{0x1E}, a.Scan.Make())
	assert.Equal(t, []byte{0x9E}, a.Scan.Break())

	up, _ := ByName("Up")
	assert.Equal(t, []byte{0xE0, 0x48}, up.Scan.Make())
	assert.Equal(t, []byte{0xE0, 0xC8}, up.Scan.Break())
	assert.Equal(t, "E0 48", up.Scan.String())
}

func TestEvdevMainBlockMatchesSetOne(t *testing.T) {
	// the non-extended evdev codes are set 1 make codes
	for _, k := range Keys() {
		if k.Scan.Extended {
			continue
		}
		assert.Equal(t, k.Evdev, int(k.Scan.Code), k.Name)
	}
}

func TestHotkeyName(t *testing.T) {
	rctrl, _ := ByName("RightCtrl")
	ctrl, _ := ByName("Ctrl")
	f12, _ := ByName("f12")

	assert.Equal(t, "CTRL", HotkeyName(rctrl))
	assert.Equal(t, "CTRL", HotkeyName(ctrl))
	assert.Equal(t, "F12", HotkeyName(f12))
}
