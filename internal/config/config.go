// Package config loads the daemon's YAML device bootstrap file: the
// poll-rate ceiling, per-model capability flags, and USB pacing that
// seed each internal/device.Device before command processing starts.
// Grounded on the search-list-of-candidate-paths + yaml.v3 unmarshal
// idiom from deviceid.go's tocalls.yaml loader.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rgbkbdd/corectl/internal/device"
)

// SearchPaths are tried in order when Load is called with an empty
// path, mirroring deviceid.go's search_locations list.
var SearchPaths = []string{
	"rgbkbdd.yaml",
	"config/rgbkbdd.yaml",
	"/etc/rgbkbdd.yaml",
	"/usr/local/etc/rgbkbdd.yaml",
}

// DeviceProfile describes one model entry in the bootstrap file.
type DeviceProfile struct {
	Name          string   `yaml:"name"`
	Features      []string `yaml:"features"`
	Kind          string   `yaml:"kind"`
	MaxPollRate   string   `yaml:"max_poll_rate"`
	GPIOResetChip string   `yaml:"gpio_reset_chip"`
	GPIOResetLine int      `yaml:"gpio_reset_line"`

	// NotifyDir, if set, is the directory an external collaborator
	// creates notification channel nodes in (spec Non-goals: the core
	// never creates the node itself, only attaches to one that already
	// exists at NotifyDir/ch<N>). NotifyKind selects how it's opened:
	// "tty" for a real/pseudo-terminal node, "fifo" (the default) for a
	// named pipe.
	NotifyDir  string `yaml:"notify_dir"`
	NotifyKind string `yaml:"notify_kind"`
}

// Config is the top-level bootstrap document.
type Config struct {
	Debug              bool            `yaml:"debug"`
	ListenSocket       string          `yaml:"listen"`
	LogTimestampFormat string          `yaml:"log_timestamp_format"`
	Devices            []DeviceProfile `yaml:"devices"`
}

var featureBits = map[string]device.Feature{
	"bind":       device.FeatBind,
	"notify":     device.FeatNotify,
	"adjrate":    device.FeatAdjRate,
	"mouseaccel": device.FeatMouseAccel,
	"ansi":       device.FeatANSI,
	"iso":        device.FeatISO,
}

// FeatureBits resolves the profile's feature name list to a bitset.
// Unknown names are ignored.
func (p DeviceProfile) FeatureBits() device.Feature {
	var f device.Feature
	for _, name := range p.Features {
		f |= featureBits[name]
	}
	return f
}

var kindValues = map[string]device.DeviceKind{
	"mouse":               device.KindMouse,
	"full_range_keyboard": device.KindFullRangeKeyboard,
	"other":               device.KindOther,
}

// DeviceKind resolves the profile's kind string, defaulting to
// KindOther for an unrecognized or empty value.
func (p DeviceProfile) DeviceKind() device.DeviceKind {
	if k, ok := kindValues[p.Kind]; ok {
		return k
	}
	return device.KindOther
}

// Load reads and parses the bootstrap file at path. If path is empty,
// Load tries each of SearchPaths in turn and returns an error only if
// none of them can be opened.
func Load(path string) (*Config, error) {
	data, resolved, err := read(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", resolved, err)
	}
	return &cfg, nil
}

func read(path string) ([]byte, string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config: reading %s: %w", path, err)
		}
		return data, path, nil
	}

	var lastErr error
	for _, candidate := range SearchPaths {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, candidate, nil
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("config: no bootstrap file found in %v: %w", SearchPaths, lastErr)
}
