package pedal

import (
	"time"

	"github.com/tonexone/footctl/pkg/tonexmsg"
)

// USB identifiers for the Tonex One pedal's CDC-ACM interface.
const (
	VendorID       = 0x1963
	ProductID      = 0x00D1
	InterfaceIndex = 0
)

// The pedal's descriptors advertise a 512-byte wMaxPacketSize on its bulk
// endpoints, which is only legal in USB high-speed mode; at full speed it
// must be clamped to 64 or the host stack rejects the descriptor outright.
const MaxEndpointPacketSize = 64

// CDC line coding applied once per session: 115200 8N1, no flow control.
const (
	LineCodingRate     = 115200
	LineCodingStopBits = 0 // 1 stop bit
	LineCodingParity   = 0 // none
	LineCodingDataBits = 8
)

// CDC class-specific control requests (USB CDC PSTN subclass).
const (
	cdcRequestSetLineCoding      = 0x20
	cdcRequestSetControlLineState = 0x22
)

// Control line state bits for SET_CONTROL_LINE_STATE.
const (
	controlLineDTR = 0x01
	controlLineRTS = 0x02
)

// Buffering, matching the firmware's cdc_acm_host_device_config_t.
const (
	RxBufferSize  = 3072
	RxQueueDepth  = 2
	TxBufferSize  = 3072
	TxTimeout     = 500 * time.Millisecond
	OpenSettleDelay = 100 * time.Millisecond
)

// MaxPresets bounds the preset index accepted by SetPresetInSlot, matching
// the firmware's MAX_PRESETS.
const MaxPresets = 20

// Slot identifies one of the pedal's three preset slots. Slot C is the
// external scratch slot MIDI/footswitch preset changes stage through.
type Slot byte

const (
	SlotA Slot = 0
	SlotB Slot = 1
	SlotC Slot = 2
)

// stateOffsetFromEnd mirrors tonexmsg.StateOffsetFromEnd; state-blob field
// math lives alongside the builders that mutate it.
const stateOffsetFromEnd = tonexmsg.StateOffsetFromEnd
