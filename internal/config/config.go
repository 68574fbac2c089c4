// Package config loads the node's runtime configuration from YAML: node
// identity, button timings, revertMessage, the battery report interval, the
// hardware pin/port names, and display slot defaults. The send and power
// schedule constants (ts1..ts5, tr1, tr2, keep-awake) are fixed in their
// packages and are not read from the file.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/display"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/node"
)

// SlotConfig is the YAML shape of one display.Slot.
type SlotConfig struct {
	Lines       []string `yaml:"lines"`
	Font        int      `yaml:"font"`
	NumberLines int      `yaml:"numberLines"`
}

// File is the on-disk YAML shape of a node's runtime configuration.
type File struct {
	NodeID                uint32                `yaml:"nodeId"`
	TResetPress           time.Duration         `yaml:"tResetPress"`
	TStartPress           time.Duration         `yaml:"tStartPress"`
	TSearchMax            time.Duration         `yaml:"tSearchMax"`
	TPressedHold          time.Duration         `yaml:"tPressedHold"`
	RevertMessage         bool                  `yaml:"revertMessage"`
	BatteryReportInterval time.Duration         `yaml:"batteryReportInterval"`
	GPIOPin               string                `yaml:"gpioPin"`
	SerialPort            string                `yaml:"serialPort"`
	Slots                 map[string]SlotConfig `yaml:"slots,omitempty"`
}

// Default returns the built-in defaults (spec §9's resolved open questions),
// used when no config file is present.
func Default() File {
	cfg := node.DefaultConfig()
	return File{
		NodeID:        cfg.NodeID,
		TResetPress:   cfg.TResetPress,
		TStartPress:   cfg.TStartPress,
		TSearchMax:    cfg.TSearchMax,
		TPressedHold:  cfg.TPressedHold,
		RevertMessage: true,
		GPIOPin:       "GPIO6",
		SerialPort:    "/dev/ttyUSB0",
	}
}

// Load reads and parses a YAML config file at path. A missing file is not an
// error: the caller gets Default().
func Load(path string) (File, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Hash returns a SHA-256 content hash of the raw file bytes, so two reads of
// the same file can be compared for changes. The node binary loads its config
// once at startup and does not reload it.
func Hash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// NodeConfig projects the subset node.New needs out of the loaded file.
func (f File) NodeConfig() node.Config {
	return node.Config{
		NodeID:                f.NodeID,
		TResetPress:           f.TResetPress,
		TStartPress:           f.TStartPress,
		TSearchMax:            f.TSearchMax,
		TPressedHold:          f.TPressedHold,
		BatteryReportInterval: f.BatteryReportInterval,
	}
}

// ApplySlots overlays configured slot defaults onto a freshly constructed
// Display Controller, as a config file's static slot section (distinct from
// the runtime config-frame protocol in spec §4.3, which mutates slots over
// the radio link instead).
func ApplySlots(disp *display.Controller, slots map[string]SlotConfig) {
	for key, sc := range slots {
		s, ok := disp.Slot(key)
		if !ok {
			continue
		}
		for i := 0; i < len(sc.Lines) && i < 3; i++ {
			s.Lines[i] = sc.Lines[i]
		}
		if sc.Font != 0 {
			s.Font = display.Font(sc.Font)
		}
		if sc.NumberLines != 0 {
			s.NumberLines = sc.NumberLines
		}
		disp.SetSlot(key, s)
	}
}
