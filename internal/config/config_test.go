package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgbkbdd/corectl/internal/device"
)

const sample = `
debug: true
listen: ":8801"
log_timestamp_format: "%Y-%m-%d %H:%M:%S"
devices:
  - name: k95-rgb
    kind: full_range_keyboard
    max_poll_rate: "1"
    features: [bind, notify, adjrate, ansi]
    notify_dir: /run/rgbkbdd/k95-rgb
    notify_kind: fifo
  - name: sabre-mouse
    kind: mouse
    features: [mouseaccel, iso]
    gpio_reset_chip: gpiochip0
    gpio_reset_line: 17
`

func TestLoadParsesDevices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgbkbdd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "k95-rgb", cfg.Devices[0].Name)
	assert.Equal(t, device.KindFullRangeKeyboard, cfg.Devices[0].DeviceKind())
	assert.True(t, cfg.Devices[0].FeatureBits().Has(device.FeatBind))
	assert.True(t, cfg.Devices[0].FeatureBits().Has(device.FeatANSI))
	assert.Equal(t, "/run/rgbkbdd/k95-rgb", cfg.Devices[0].NotifyDir)
	assert.Equal(t, "fifo", cfg.Devices[0].NotifyKind)

	assert.Equal(t, device.KindMouse, cfg.Devices[1].DeviceKind())
	assert.Equal(t, 17, cfg.Devices[1].GPIOResetLine)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDeviceKindDefaultsToOther(t *testing.T) {
	p := DeviceProfile{Kind: "spaceship"}
	assert.Equal(t, device.KindOther, p.DeviceKind())
}
