package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// BluetoothMode selects how the pedal-side Bluetooth stack behaves.
type BluetoothMode int

const (
	BluetoothModeOff BluetoothMode = iota
	BluetoothModeCentral
	BluetoothModePeripheral
)

// FootswitchMode selects which footswitch input mode pkg/footswitch runs on
// the onboard switches, matching footswitches.c's named modes. Engine.Tick
// runs QuadBanked and QuadBinary as named and the dual up/down handler for
// every other value, GeneralizedBanked and EffectToggle included; the
// layout-table and effect-toggle handlers run on the external switches
// whenever an external expander is present, whatever this mode is.
type FootswitchMode int

const (
	FootswitchModeDual FootswitchMode = iota
	FootswitchModeQuadBanked
	FootswitchModeQuadBinary
	FootswitchModeGeneralizedBanked
	FootswitchModeEffectToggle
)

// WifiMode selects whether the host-side Wi-Fi interface (used for the
// pedal's companion app bridge) is enabled and in what role.
type WifiMode int

const (
	WifiModeOff WifiMode = iota
	WifiModeStation
	WifiModeAccessPoint
)

// Config is the persisted/overlaid configuration surface, covering the
// CONFIG_ITEM_* settings for Bluetooth, MIDI, footswitch mode and layout,
// effect enables, bypass toggling and Wi-Fi. The external effect-toggle
// switch bindings are not part of it; footswitch.NewEngine takes them as
// footswitch.EffectConfig values instead. JSON persistence (teacher style) provides the durable copy;
// environment variables loaded via godotenv/envconfig override individual
// fields for headless/CI deployment, matching the precedence env-overlay
// configs use elsewhere in the pack.
type Config struct {
	BluetoothMode         BluetoothMode  `json:"bluetooth_mode" envconfig:"BT_MODE" default:"0"`
	BluetoothCustomName   string         `json:"bluetooth_custom_name" envconfig:"BT_CUSTOM_BT_NAME" default:""`
	CustomBluetoothEnable bool           `json:"custom_bluetooth_enable" envconfig:"CUSTOM_BT_ENABLE" default:"false"`

	// BT central-mode allow-list toggles, matching InitDeviceList's two
	// known-pedal entries (M-Vave Chocolate advertises as "FootCtrl" /
	// "FootCtrlPlus"; the Xvive MD1 adaptor advertises as "Xvive MD1").
	BluetoothMVaveChocEnable bool `json:"bluetooth_mvave_choc_enable" envconfig:"BT_MVAVE_CHOC_ENABLE" default:"true"`
	BluetoothXviveMD1Enable  bool `json:"bluetooth_xvive_md1_enable" envconfig:"BT_XVIVE_MD1_ENABLE" default:"true"`

	MIDIEnable  bool `json:"midi_enable" envconfig:"MIDI_ENABLE" default:"true"`
	MIDIChannel int  `json:"midi_channel" envconfig:"MIDI_CHANNEL" default:"0"`

	FootswitchMode          FootswitchMode `json:"footswitch_mode" envconfig:"FOOTSWITCH_MODE" default:"0"`
	ExtFootswitchPresetLayout int          `json:"ext_footswitch_preset_layout" envconfig:"EXT_FOOTSW_PRESET_LAYOUT" default:"0"`

	// Per-effect enable toggles, one per pedal stomp-box section.
	EnableNoiseGate   bool `json:"enable_noise_gate" envconfig:"ENABLE_NOISE_GATE" default:"true"`
	EnableCompressor  bool `json:"enable_compressor" envconfig:"ENABLE_COMPRESSOR" default:"true"`
	EnableEQ          bool `json:"enable_eq" envconfig:"ENABLE_EQ" default:"true"`
	EnableReverb      bool `json:"enable_reverb" envconfig:"ENABLE_REVERB" default:"true"`
	EnableModulation  bool `json:"enable_modulation" envconfig:"ENABLE_MODULATION" default:"true"`

	ToggleBypass    bool `json:"toggle_bypass" envconfig:"TOGGLE_BYPASS" default:"false"`
	EnableBTMIDICC  bool `json:"enable_bt_midi_cc" envconfig:"ENABLE_BT_MIDI_CC" default:"false"`

	WifiMode     WifiMode `json:"wifi_mode" envconfig:"WIFI_MODE" default:"0"`
	WifiSSID     string   `json:"wifi_ssid" envconfig:"WIFI_SSID" default:""`
	WifiPassword string   `json:"wifi_password" envconfig:"WIFI_PASSWORD" default:""`
}

// Default returns factory configuration values.
func Default() *Config {
	return &Config{
		BluetoothMVaveChocEnable: true,
		BluetoothXviveMD1Enable:  true,
		MIDIEnable:               true,
		EnableNoiseGate:          true,
		EnableCompressor:         true,
		EnableEQ:                 true,
		EnableReverb:             true,
		EnableModulation:         true,
	}
}

// DoubleToggleBypass reports whether re-selecting the active preset should
// toggle bypass instead of being a no-op, matching
// control_get_config_double_toggle.
func (c Config) DoubleToggleBypass() bool {
	return c.ToggleBypass
}

// Save persists configuration as indented JSON.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// LoadConfig reads path (falling back to Default() if it doesn't exist),
// then overlays any matching environment variables (after loading a .env
// file in the working directory, if present).
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// use defaults
	case err != nil:
		return nil, fmt.Errorf("config: read: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using file config and environment")
	}
	fromEnv := *cfg
	if err := envconfig.Process("", &fromEnv); err != nil {
		return nil, fmt.Errorf("config: envconfig overlay: %w", err)
	}
	// envconfig also writes each field's default tag when its variable is
	// unset; copy back only the fields whose variable is actually set.
	dst, src := reflect.ValueOf(cfg).Elem(), reflect.ValueOf(fromEnv)
	for i := 0; i < dst.NumField(); i++ {
		if _, ok := os.LookupEnv(dst.Type().Field(i).Tag.Get("envconfig")); ok {
			dst.Field(i).Set(src.Field(i))
		}
	}

	return cfg, nil
}

// liveConfig wraps Config with a mutex so the running daemon can apply
// settings-screen style updates (EVENT_SET_BT_STATUS-adjacent config
// writes) without racing the footswitch/MIDI readers.
type liveConfig struct {
	mu  sync.Mutex
	cfg *Config
}

func newLiveConfig(cfg *Config) *liveConfig {
	return &liveConfig{cfg: cfg}
}

func (l *liveConfig) Get() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.cfg
}

func (l *liveConfig) Set(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.cfg)
}
