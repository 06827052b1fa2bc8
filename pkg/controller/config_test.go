package controller

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesFactoryFlags(t *testing.T) {
	cfg := Default()
	if !cfg.MIDIEnable || !cfg.EnableNoiseGate || !cfg.EnableCompressor ||
		!cfg.EnableEQ || !cfg.EnableReverb || !cfg.EnableModulation {
		t.Fatalf("expected factory effect/MIDI flags enabled, got %+v", cfg)
	}
	if cfg.ToggleBypass {
		t.Fatalf("expected ToggleBypass false by default")
	}
}

func TestDoubleToggleBypassReflectsFlag(t *testing.T) {
	cfg := Default()
	if cfg.DoubleToggleBypass() {
		t.Fatalf("expected false before enabling")
	}
	cfg.ToggleBypass = true
	if !cfg.DoubleToggleBypass() {
		t.Fatalf("expected true after enabling ToggleBypass")
	}
}

func TestConfigSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.MIDIChannel = 4
	cfg.WifiSSID = "pedalboard"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.MIDIChannel != 4 {
		t.Fatalf("expected MIDIChannel 4, got %d", loaded.MIDIChannel)
	}
	if loaded.WifiSSID != "pedalboard" {
		t.Fatalf("expected WifiSSID pedalboard, got %q", loaded.WifiSSID)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "absent.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.MIDIEnable {
		t.Fatalf("expected default MIDIEnable true")
	}
}

func TestConfigSavePersistsValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := Default().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}
}

func TestLiveConfigGetSetIsIsolated(t *testing.T) {
	lc := newLiveConfig(Default())

	snapshot := lc.Get()
	lc.Set(func(c *Config) {
		c.MIDIChannel = 9
	})

	if snapshot.MIDIChannel == 9 {
		t.Fatalf("expected earlier snapshot to be unaffected by later Set")
	}
	if got := lc.Get().MIDIChannel; got != 9 {
		t.Fatalf("expected MIDIChannel 9 after Set, got %d", got)
	}
}
