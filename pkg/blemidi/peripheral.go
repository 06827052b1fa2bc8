package blemidi

import (
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/tonexone/footctl/pkg/logging"
	"github.com/tonexone/footctl/pkg/midicc"
)

var logPeripheral = logging.New("GATTS_SERVER")

// Peripheral advertises the daemon itself as a BLE-MIDI device and accepts
// Program Change / Control Change writes from a connected host, matching
// midi_control.c's BT_MODE_PERIPHERAL GATT server
// (gatts_profile_a_event_handler's service/characteristic setup plus
// esp_ble_gap_start_advertising).
//
// tinygo.org/x/bluetooth's cross-platform Adapter does not expose the
// ESP32 BLE stack's per-parameter security tuning (static passkey,
// SC+MITM+bonding) uniformly across backends; LocalName, the service UUID
// and the characteristic UUID — the parts a BLE-MIDI host actually
// discovers against — are preserved exactly, while pairing strength is left
// to the platform's Bluetooth stack defaults.
type Peripheral struct {
	adapter  *bluetooth.Adapter
	convert  midicc.ConverterFunc
	enableCC bool
	sink     CmdSink
	status   StatusSetter

	midiChar bluetooth.Characteristic
}

// NewPeripheral returns a Peripheral ready to Start.
func NewPeripheral(convert midicc.ConverterFunc, enableCC bool, sink CmdSink, status StatusSetter) *Peripheral {
	return &Peripheral{
		adapter:  bluetooth.DefaultAdapter,
		convert:  convert,
		enableCC: enableCC,
		sink:     sink,
		status:   status,
	}
}

// Start enables the adapter, registers the MIDI GATT service and begins
// advertising as LocalName.
func (p *Peripheral) Start() error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("blemidi: enable adapter: %w", err)
	}

	p.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if p.status != nil {
			p.status.SetBTStatus(connected)
		}
		if connected {
			logPeripheral.Infof("central connected")
		} else {
			logPeripheral.Infof("central disconnected, resuming advertising")
		}
	})

	if err := p.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.midiChar,
				UUID:   characteristicUUID,
				Flags: bluetooth.CharacteristicReadPermission |
					bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission |
					bluetooth.CharacteristicNotifyPermission,
				WriteEvent: p.handleWrite,
			},
		},
	}); err != nil {
		return fmt.Errorf("blemidi: add MIDI service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    LocalName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("blemidi: configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("blemidi: start advertisement: %w", err)
	}

	logPeripheral.Infof("advertising as %q", LocalName)
	return nil
}

func (p *Peripheral) handleWrite(client bluetooth.Connection, offset int, value []byte) {
	for _, cmd := range Decode(value, p.convert, p.enableCC) {
		if err := p.sink.Enqueue(cmd); err != nil {
			logPeripheral.Errorf("enqueue: %v", err)
		}
	}
}
