package tonexmsg

import (
	"fmt"
	"math"

	"github.com/tonexone/footctl/pkg/tonexparam"
)

// StateOffsetFromEnd is the byte offset, counted backwards from the end of
// a state-update payload, at which the slot/bypass/mode fields begin.
//
// firmware v1.1.4: offset needed is 12
// firmware v1.2.6: offset needed is 18
// The Hello response carries no parseable version field in the observed
// protocol, so this is a single pinned constant rather than a version
// lookup; bumping it is a one-line change if a future pedal firmware shifts
// the layout again.
const StateOffsetFromEnd = 18

// StateBlob is the raw tail of a state-update message: everything from just
// past the header to the end of the frame. Its trailing bytes carry the
// per-slot preset numbers and the currently active slot.
type StateBlob []byte

// ErrBlobTooShort is returned by a StateBlob/PresetBlob accessor when the
// blob is too short to contain the field it's asked for.
var ErrBlobTooShort = fmt.Errorf("tonexmsg: blob shorter than expected field offset")

func (b StateBlob) fieldIndex(offset int) (int, error) {
	idx := len(b) - StateOffsetFromEnd + offset
	if idx < 0 || idx >= len(b) {
		return 0, ErrBlobTooShort
	}
	return idx, nil
}

// SlotAPreset returns the preset number currently loaded in slot A.
func (b StateBlob) SlotAPreset() (byte, error) {
	i, err := b.fieldIndex(0)
	if err != nil {
		return 0, err
	}
	return b[i], nil
}

// SlotBPreset returns the preset number currently loaded in slot B.
func (b StateBlob) SlotBPreset() (byte, error) {
	i, err := b.fieldIndex(2)
	if err != nil {
		return 0, err
	}
	return b[i], nil
}

// SlotCPreset returns the preset number currently loaded in slot C (the
// scratch slot used for external-preset staging).
func (b StateBlob) SlotCPreset() (byte, error) {
	i, err := b.fieldIndex(4)
	if err != nil {
		return 0, err
	}
	return b[i], nil
}

// CurrentSlot returns which of A/B/C is presently active.
func (b StateBlob) CurrentSlot() (byte, error) {
	i, err := b.fieldIndex(7)
	if err != nil {
		return 0, err
	}
	return b[i], nil
}

// ActivePreset returns the preset number of whichever slot CurrentSlot
// names, matching the firmware's usb_tonex_one_get_current_active_preset.
func (b StateBlob) ActivePreset() (byte, error) {
	slot, err := b.CurrentSlot()
	if err != nil {
		return 0, err
	}
	switch slot {
	case 0:
		return b.SlotAPreset()
	case 1:
		return b.SlotBPreset()
	default:
		return b.SlotCPreset()
	}
}

// PresetBlob is the raw tail of a preset-details message. It embeds the
// preset's display name and its full parameter table, located by marker
// search rather than a fixed offset since the preamble's length varies.
type PresetBlob []byte

// Name extracts the preset's display name, trimming trailing NUL padding.
func (b PresetBlob) Name() (string, error) {
	end, err := findMarker(b, presetNameMarker)
	if err != nil {
		return "", err
	}
	if end+presetNameLength > len(b) {
		return "", ErrBlobTooShort
	}
	raw := b[end : end+presetNameLength]
	n := 0
	for n < len(raw) && raw[n] != 0x00 {
		n++
	}
	return string(raw[:n]), nil
}

// Parameters extracts tonexparam.NumParams consecutive 0x88-tagged float32
// values starting just after the parameter-region marker, in the same
// order as tonexparam.Index. A record not prefixed by 0x88 stops the scan
// early, matching the firmware's parse loop; filled reports how many leading
// entries of values were read, and the entries past it are left zero.
func (b PresetBlob) Parameters() (values [tonexparam.NumParams]float32, filled int, err error) {
	start, err := findMarker(b, paramRegionMarker)
	if err != nil {
		return values, 0, err
	}

	i := start
	for loop := 0; loop < int(tonexparam.NumParams); loop++ {
		if i >= len(b) {
			break
		}
		if b[i] != 0x88 {
			break
		}
		i++
		if i+4 > len(b) {
			break
		}
		bits := uint32(b[i]) | uint32(b[i+1])<<8 | uint32(b[i+2])<<16 | uint32(b[i+3])<<24
		values[loop] = math.Float32frombits(bits)
		i += 4
		filled++
	}

	return values, filled, nil
}
