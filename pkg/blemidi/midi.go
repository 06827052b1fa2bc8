// Package blemidi implements the Bluetooth LE MIDI transport described by
// midi_control.c: a GATT service carrying one write/notify characteristic,
// run either as a central that connects out to a known foot-controller
// pedal, or as a peripheral that advertises the daemon itself as one.
package blemidi

import (
	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/midicc"
)

// ServiceUUID is the BLE-MIDI service, matching adv_service_uuid128.
const ServiceUUID = "03b80e5a-ede8-4b33-a751-6ce34ec4c700"

// CharacteristicUUID is the single read/write/notify MIDI I/O
// characteristic, matching MidiCharacteristicUUIDByteReversed.
const CharacteristicUUID = "7772e5db-3868-4112-a1a9-f2669d106bf3"

// LocalName is the name the peripheral advertises, matching
// test_device_name.
const LocalName = "TnxBT"

// StaticPasskey is the fixed pairing passkey the original firmware's
// peripheral sets via ESP_BLE_SM_SET_STATIC_PASSKEY. Peripheral does not
// apply it; pairing is left to the platform Bluetooth stack.
const StaticPasskey = 123456

// minPayloadLen is the shortest payload midi_control.c acts on: a one-byte
// BLE-MIDI header, a timestamp byte, a status byte and at least one data
// byte.
const minPayloadLen = 4

// Decode turns one BLE-MIDI GATT write/notify payload into the Cmds it
// produces. The first two bytes (header + timestamp) are ignored, exactly
// as the firmware does; only Program Change and Control Change are acted
// on, and Control Change additionally requires enableCC (mirroring
// control_get_config_enable_bt_midi_CC, which exists because some BT-MIDI
// foot controllers send bank up/down as a Control Change that would
// otherwise collide with a parameter CC).
func Decode(payload []byte, convert midicc.ConverterFunc, enableCC bool) []controller.Cmd {
	if len(payload) < minPayloadLen {
		return nil
	}

	status := payload[2] & 0xF0
	data1 := payload[3]

	switch status {
	case 0xC0:
		return []controller.Cmd{{Kind: controller.CmdSetPreset, PresetIndex: uint16(data1)}}

	case 0xB0:
		if !enableCC || len(payload) < minPayloadLen+1 {
			return nil
		}
		value := payload[4]

		if kind, ok := midicc.Navigate(data1); ok {
			return []controller.Cmd{{Kind: kind}}
		}
		if convert == nil {
			return nil
		}
		if index, scaled, ok := convert(data1, value); ok {
			return []controller.Cmd{{Kind: controller.CmdModifyParam, ParamIndex: index, ParamValue: scaled}}
		}
		return nil

	default:
		return nil
	}
}
