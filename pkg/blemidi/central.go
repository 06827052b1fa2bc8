package blemidi

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/logging"
	"github.com/tonexone/footctl/pkg/midicc"
)

var logCentral = logging.New("GATTC_CLIENT")

var serviceUUID = bluetooth.MustParseUUID(ServiceUUID)
var characteristicUUID = bluetooth.MustParseUUID(CharacteristicUUID)

// CmdSink is the narrow surface Central/Peripheral need to deliver decoded
// commands.
type CmdSink interface {
	Enqueue(controller.Cmd) error
}

// StatusSetter receives connect/disconnect notifications, matching
// control_set_bt_status.
type StatusSetter interface {
	SetBTStatus(connected bool)
}

// AllowedNames builds the central-mode connection allow-list from cfg,
// matching InitDeviceList's enabled-device-name table.
func AllowedNames(cfg controller.Config) []string {
	var names []string
	if cfg.BluetoothMVaveChocEnable {
		names = append(names, "FootCtrl", "FootCtrlPlus")
	}
	if cfg.BluetoothXviveMD1Enable {
		names = append(names, "Xvive MD1")
	}
	if cfg.CustomBluetoothEnable && cfg.BluetoothCustomName != "" {
		names = append(names, cfg.BluetoothCustomName)
	}
	return names
}

// Central scans for, connects to, and reads BLE-MIDI notifications from
// whichever configured pedal advertises first, matching midi_control.c's
// BT_MODE_CENTRAL behavior (InitDeviceList + ESP_GAP_SEARCH_INQ_RES_EVT +
// ESP_GATTC_NOTIFY_EVT).
type Central struct {
	adapter      *bluetooth.Adapter
	allowedNames []string
	convert      midicc.ConverterFunc
	enableCC     bool
	sink         CmdSink
	status       StatusSetter

	mu        sync.Mutex
	connected bool
}

// NewCentral returns a Central that only connects to a device whose
// advertised local name exactly matches one of allowedNames.
func NewCentral(allowedNames []string, convert midicc.ConverterFunc, enableCC bool, sink CmdSink, status StatusSetter) *Central {
	return &Central{
		adapter:      bluetooth.DefaultAdapter,
		allowedNames: allowedNames,
		convert:      convert,
		enableCC:     enableCC,
		sink:         sink,
		status:       status,
	}
}

// Connected reports whether a pedal is currently connected.
func (c *Central) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Central) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
	if c.status != nil {
		c.status.SetBTStatus(v)
	}
}

// Run enables the adapter, then scans/connects/subscribes in a loop until
// ctx is cancelled, restarting the scan after every disconnect exactly as
// ESP_GATTC_DISCONNECT_EVT's start_scan() does.
func (c *Central) Run(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("blemidi: enable adapter: %w", err)
	}

	disconnected := make(chan struct{}, 1)
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		device, err := c.scanAndConnect(ctx)
		if err != nil {
			return err
		}
		if device == nil {
			return ctx.Err()
		}

		if err := c.subscribe(*device); err != nil {
			logCentral.Errorf("subscribe failed: %v", err)
			device.Disconnect()
			continue
		}

		c.setConnected(true)
		logCentral.Infof("connected and subscribed to MIDI notifications")

		select {
		case <-ctx.Done():
			device.Disconnect()
			c.setConnected(false)
			return ctx.Err()
		case <-disconnected:
			c.setConnected(false)
			logCentral.Infof("disconnected, rescanning")
		}
	}
}

func (c *Central) scanAndConnect(ctx context.Context) (*bluetooth.Device, error) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		scanErr <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !c.isAllowed(result.LocalName()) {
				return
			}
			adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
	}()

	select {
	case <-ctx.Done():
		c.adapter.StopScan()
		<-scanErr
		return nil, nil

	case err := <-scanErr:
		if err != nil {
			return nil, fmt.Errorf("blemidi: scan: %w", err)
		}
		return nil, nil

	case result := <-found:
		<-scanErr
		logCentral.Infof("found matching device %q", result.LocalName())
		device, err := c.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
		if err != nil {
			return nil, fmt.Errorf("blemidi: connect: %w", err)
		}
		return &device, nil
	}
}

func (c *Central) subscribe(device bluetooth.Device) error {
	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return fmt.Errorf("discover MIDI service: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("MIDI service not found")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicUUID})
	if err != nil {
		return fmt.Errorf("discover MIDI characteristic: %w", err)
	}
	if len(chars) == 0 {
		return fmt.Errorf("MIDI characteristic not found")
	}

	midiChar := chars[0]
	return midiChar.EnableNotifications(func(buf []byte) {
		for _, cmd := range Decode(buf, c.convert, c.enableCC) {
			if err := c.sink.Enqueue(cmd); err != nil {
				logCentral.Errorf("enqueue: %v", err)
			}
		}
	})
}

func (c *Central) isAllowed(name string) bool {
	if name == "" {
		return false
	}
	for _, n := range c.allowedNames {
		if n == name {
			return true
		}
	}
	return false
}
