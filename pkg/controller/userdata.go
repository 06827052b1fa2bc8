package controller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxTextLength mirrors the firmware's MAX_TEXT_LENGTH bound on preset
// descriptions.
const maxTextLength = 128

// presetUserData is per-preset data that rides alongside the pedal's own
// preset slots but never leaves this host: an amp-skin choice and a free
// text description, indexed by preset number.
type presetUserData struct {
	SkinIndex   uint16 `json:"skin_index"`
	Description string `json:"description"`
}

// UserData is the full per-preset table (one entry per of MaxPresets
// presets), persisted to disk as a flat JSON array.
type UserData struct {
	mu      sync.Mutex
	entries [MaxPresets]presetUserData
}

// NewUserData returns an empty table.
func NewUserData() *UserData {
	return &UserData{}
}

// SkinIndex returns the stored amp-skin index for preset.
func (u *UserData) SkinIndex(preset uint32) uint16 {
	u.mu.Lock()
	defer u.mu.Unlock()
	if preset >= MaxPresets {
		return 0
	}
	return u.entries[preset].SkinIndex
}

// SetSkinIndex stores the amp-skin index for preset.
func (u *UserData) SetSkinIndex(preset uint32, skin uint16) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if preset >= MaxPresets {
		return
	}
	u.entries[preset].SkinIndex = skin
}

// Description returns the stored text for preset.
func (u *UserData) Description(preset uint32) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if preset >= MaxPresets {
		return ""
	}
	return u.entries[preset].Description
}

// SetDescription stores text for preset, truncated to maxTextLength.
func (u *UserData) SetDescription(preset uint32, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if preset >= MaxPresets {
		return
	}
	if len(text) > maxTextLength {
		text = text[:maxTextLength]
	}
	u.entries[preset].Description = text
}

// Save persists the table as indented JSON.
func (u *UserData) Save(path string) error {
	u.mu.Lock()
	entries := u.entries
	u.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("userdata: create directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("userdata: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("userdata: write: %w", err)
	}
	return nil
}

// LoadUserData reads a table previously written by Save. A missing file is
// not an error; it returns a fresh, empty table.
func LoadUserData(path string) (*UserData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewUserData(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("userdata: read: %w", err)
	}

	var entries [MaxPresets]presetUserData
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("userdata: unmarshal: %w", err)
	}

	return &UserData{entries: entries}, nil
}
