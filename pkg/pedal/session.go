// Package pedal owns the USB CDC-ACM session with the Tonex One pedal: the
// transport (open, line coding, bulk I/O), the handshake state machine, and
// the wire-level set_preset/modify_param semantics that mutate the pedal's
// own state and preset blobs before resending them.
package pedal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/tonexone/footctl/pkg/frame"
	"github.com/tonexone/footctl/pkg/tonexmsg"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

// SessionState is the pedal handshake state machine: Idle -> Hello ->
// GetState -> Ready.
type SessionState int

const (
	StateIdle SessionState = iota
	StateHello
	StateGetState
	StateReady
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHello:
		return "hello"
	case StateGetState:
		return "get-state"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady       = errors.New("pedal: session not ready")
	ErrInvalidPreset  = errors.New("pedal: preset index out of range")
	ErrNoStateYet     = errors.New("pedal: no state blob received yet")
	ErrNoPresetYet    = errors.New("pedal: no preset details received yet")
	ErrParamOffset    = errors.New("pedal: parameter offset marker mismatch")
)

// Session is one open connection to a Tonex One pedal.
type Session struct {
	dev    *gousb.Device
	config *gousb.Config
	iface  *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint

	mu            sync.Mutex
	state         SessionState
	bootNudge     bool
	lastState     *mutableState
	lastPresetRaw []byte
	paramOffset   int // PresetParameterStartOffset, for single-param rewrite

	Params *tonexparam.Table

	recvMu  sync.Mutex
	recvBuf []byte
}

// Open claims the Tonex One's CDC interface on usbCtx and configures line
// coding, returning a Session in StateIdle.
func Open(usbCtx *gousb.Context) (*Session, error) {
	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(ProductID))
	if err != nil {
		return nil, fmt.Errorf("pedal: open device: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("pedal: device %04x:%04x not found", VendorID, ProductID)
	}

	dev.SetAutoDetach(true)

	config, err := dev.Config(1)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("pedal: get config: %w", err)
	}

	iface, err := config.Interface(InterfaceIndex, 0)
	if err != nil {
		config.Close()
		dev.Close()
		return nil, fmt.Errorf("pedal: claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(1)
	if err != nil {
		iface.Close()
		config.Close()
		dev.Close()
		return nil, fmt.Errorf("pedal: in endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(1)
	if err != nil {
		iface.Close()
		config.Close()
		dev.Close()
		return nil, fmt.Errorf("pedal: out endpoint: %w", err)
	}

	s := &Session{
		dev:    dev,
		config: config,
		iface:  iface,
		epIn:   epIn,
		epOut:  epOut,
		state:  StateIdle,
		Params: tonexparam.NewTable(),
	}

	if err := s.setLineCoding(); err != nil {
		s.Close()
		return nil, err
	}

	time.Sleep(OpenSettleDelay)

	return s, nil
}

// setLineCoding issues SET_LINE_CODING and SET_CONTROL_LINE_STATE over the
// control endpoint, matching cdc_acm_host_line_coding_set plus DTR/RTS
// assertion.
func (s *Session) setLineCoding() error {
	payload := make([]byte, 7)
	payload[0] = byte(LineCodingRate)
	payload[1] = byte(LineCodingRate >> 8)
	payload[2] = byte(LineCodingRate >> 16)
	payload[3] = byte(LineCodingRate >> 24)
	payload[4] = LineCodingStopBits
	payload[5] = LineCodingParity
	payload[6] = LineCodingDataBits

	const reqTypeClassInterfaceOut = 0x21
	if _, err := s.dev.Control(reqTypeClassInterfaceOut, cdcRequestSetLineCoding, 0, InterfaceIndex, payload); err != nil {
		return fmt.Errorf("pedal: set line coding: %w", err)
	}

	lineState := uint16(controlLineDTR | controlLineRTS)
	if _, err := s.dev.Control(reqTypeClassInterfaceOut, cdcRequestSetControlLineState, lineState, InterfaceIndex, nil); err != nil {
		return fmt.Errorf("pedal: set control line state: %w", err)
	}

	return nil
}

// Close releases the USB resources. Safe to call more than once.
func (s *Session) Close() error {
	if s.iface != nil {
		s.iface.Close()
		s.iface = nil
	}
	if s.config != nil {
		s.config.Close()
		s.config = nil
	}
	if s.dev != nil {
		err := s.dev.Close()
		s.dev = nil
		return err
	}
	return nil
}

// State returns the current handshake state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// write frames payload and sends it over the bulk OUT endpoint within
// TxTimeout, matching usb_tonex_one_transmit's 500ms budget.
func (s *Session) write(ctx context.Context, payload []byte) error {
	framed := frame.Encode(payload)

	writeCtx, cancel := context.WithTimeout(ctx, TxTimeout)
	defer cancel()

	n, err := s.epOut.WriteContext(writeCtx, framed)
	if err != nil {
		return fmt.Errorf("pedal: write: %w", err)
	}
	if n != len(framed) {
		return fmt.Errorf("pedal: short write: wrote %d of %d bytes", n, len(framed))
	}
	return nil
}

// StartHandshake sends the Hello request and moves to StateHello. The
// caller's receive loop drives the rest of the state machine by calling
// ReadOnce and passing each returned frame to HandleFrame.
func (s *Session) StartHandshake(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateHello
	s.bootNudge = true
	s.mu.Unlock()

	return s.write(ctx, buildHello())
}

// requestState sends a get-state request and moves to StateGetState.
func (s *Session) requestState(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateGetState
	s.mu.Unlock()

	return s.write(ctx, buildRequestState())
}

// ReadOnce performs one bulk read from the pedal with the given timeout,
// appending any bytes received to the internal receive buffer, then drains
// and returns any complete frames now available.
func (s *Session) ReadOnce(ctx context.Context, timeout time.Duration) ([][]byte, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	buf := make([]byte, RxBufferSize)
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	n, err := s.epIn.ReadContext(readCtx, buf)
	cancel()

	if err != nil {
		if readCtx.Err() != nil {
			return nil, nil // timeout, nothing new
		}
		return nil, fmt.Errorf("pedal: read: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	s.recvBuf = append(s.recvBuf, buf[:n]...)

	frames := frame.SplitFrames(s.recvBuf)
	if len(frames) == 0 {
		return nil, nil
	}

	// Keep only trailing bytes belonging to a still-incomplete frame.
	if last := frames[len(frames)-1]; last != nil {
		lastEnd := indexOfSubslice(s.recvBuf, last) + len(last)
		s.recvBuf = append([]byte(nil), s.recvBuf[lastEnd:]...)
	}

	return frames, nil
}

func indexOfSubslice(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// HandleFrame decodes one complete, sentinel-delimited frame and advances
// the session state machine. ctx bounds any reply the pedal's handshake
// requires (the boot-nudge preset change).
func (s *Session) HandleFrame(ctx context.Context, raw []byte) error {
	payload, err := frame.Decode(raw)
	if err != nil {
		return fmt.Errorf("pedal: decode frame: %w", err)
	}

	header, rest, err := tonexmsg.ParseMessage(payload)
	if err != nil {
		return fmt.Errorf("pedal: parse message: %w", err)
	}

	switch header.Type {
	case tonexmsg.TypeHello:
		s.mu.Lock()
		wasHello := s.state == StateHello
		s.mu.Unlock()
		if wasHello {
			return s.requestState(ctx)
		}
		return nil

	case tonexmsg.TypeStateUpdate:
		return s.handleStateUpdate(ctx, tonexmsg.StateBlob(rest))

	case tonexmsg.TypeStatePresetDetails:
		return s.handlePresetDetails(tonexmsg.StateBlob(rest))

	default:
		return nil
	}
}

func (s *Session) handleStateUpdate(ctx context.Context, blob tonexmsg.StateBlob) error {
	s.mu.Lock()
	s.lastState = newMutableState(blob)
	s.state = StateReady
	nudge := s.bootNudge
	s.bootNudge = false
	s.mu.Unlock()

	if !nudge {
		return nil
	}

	// After boot the state update carries no preset name; nudging to an
	// adjacent preset in slot A (without selecting it) forces a full
	// preset-details response that does include the name.
	slotA, err := blob.SlotAPreset()
	if err != nil {
		return nil
	}
	target := slotA
	if target < MaxPresets-1 {
		target++
	} else {
		target--
	}
	return s.SetPresetInSlot(ctx, uint16(target), SlotA, false)
}

func (s *Session) handlePresetDetails(blob tonexmsg.StateBlob) error {
	presetBlob := tonexmsg.PresetBlob(blob)

	s.mu.Lock()
	s.lastPresetRaw = append([]byte(nil), blob...)
	s.mu.Unlock()

	start, err := presetOffset(presetBlob)
	if err == nil {
		s.mu.Lock()
		s.paramOffset = start
		s.mu.Unlock()
	}

	values, filled, err := presetBlob.Parameters()
	if err != nil {
		return nil // marker not found yet; not fatal, retry on next details push
	}
	// Only the records actually read are written, so parameters past an
	// early stop keep their previous value.
	s.Params.Locked(func(params *[tonexparam.NumParams]tonexparam.Param) {
		for i := 0; i < filled; i++ {
			params[i].Value = values[i]
		}
	})
	return nil
}

// presetOffset re-derives the parameter-region start offset the same way
// tonexmsg.PresetBlob.Parameters does, for single-parameter rewrite.
func presetOffset(blob tonexmsg.PresetBlob) (int, error) {
	const markerLen = 4 // len(paramRegionMarker), duplicated to avoid exporting it
	idx := indexOfSubslice(blob, []byte{0xBA, 0x03, 0xBA, 0x6D})
	if idx < 0 {
		return 0, ErrParamOffset
	}
	return idx + markerLen, nil
}

// BypassPolicy reports whether re-selecting the already-active
// preset toggles bypass instead of being a no-op, mirroring
// control_get_config_double_toggle. Callers wire this to controller.Config.
type BypassPolicy func() bool

// SetPresetInSlot loads preset into slot, optionally making it the active
// slot, and transmits the mutated state blob. currentSlot/currentActive are
// read from the last known state to decide bypass toggling.
func (s *Session) SetPresetInSlot(ctx context.Context, preset uint16, slot Slot, selectSlot bool) error {
	return s.SetPresetInSlotWithPolicy(ctx, preset, slot, selectSlot, func() bool { return false })
}

// SetPresetInSlotWithPolicy is SetPresetInSlot with an explicit
// double-toggle-bypass policy, matching usb_tonex_one_set_preset_in_slot.
func (s *Session) SetPresetInSlotWithPolicy(ctx context.Context, preset uint16, slot Slot, selectSlot bool, doubleToggle BypassPolicy) error {
	if preset >= MaxPresets {
		return ErrInvalidPreset
	}

	s.mu.Lock()
	st := s.lastState
	s.mu.Unlock()
	if st == nil {
		return ErrNoStateYet
	}

	st.setStompMode()

	if doubleToggle() {
		current, currentPreset := s.currentSelection(st)
		if selectSlot && current == slot && preset == uint16(currentPreset) {
			st.setBypass(!st.bypass())
		} else {
			st.setBypass(false)
		}
	} else {
		st.setBypass(false)
	}

	s.mu.Lock()
	s.lastState = st
	s.mu.Unlock()

	st.setSlotPreset(slot, byte(preset))
	if selectSlot {
		st.setCurrentSlot(slot)
	}

	return s.write(ctx, buildSetState(st.bytes()))
}

func (s *Session) currentSelection(st *mutableState) (Slot, byte) {
	current := Slot(st.data[st.fieldIndex(7)])
	switch current {
	case SlotA:
		return current, st.data[st.fieldIndex(0)]
	case SlotB:
		return current, st.data[st.fieldIndex(2)]
	default:
		return current, st.data[st.fieldIndex(4)]
	}
}

// ModifyParameter rewrites a single parameter's value in-place in the last
// received preset blob and retransmits it, matching
// usb_tonex_one_modify_parameter's byte_offset arithmetic: the region just
// past the BA 03 BA 6D marker is laid out as (0x88 tag, float32) per
// parameter index in table order.
func (s *Session) ModifyParameter(ctx context.Context, index tonexparam.Index, value float32) error {
	clamped, err := s.Params.Clamp(index, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	raw := s.lastPresetRaw
	offset := s.paramOffset
	s.mu.Unlock()

	if raw == nil {
		return ErrNoPresetYet
	}

	byteOffset := offset + int(index)*5 // 1 tag byte + 4 float bytes per slot
	if byteOffset >= len(raw) || raw[byteOffset] != 0x88 {
		return ErrParamOffset
	}

	bits := float32ToLEBytes(clamped)
	copy(raw[byteOffset+1:byteOffset+5], bits[:])

	if _, err := s.Params.Set(index, clamped); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastPresetRaw = raw
	s.mu.Unlock()

	return s.write(ctx, buildSetParams(raw))
}

func float32ToLEBytes(f float32) [4]byte {
	bits := math.Float32bits(f)
	return [4]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}
