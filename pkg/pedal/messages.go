package pedal

import "github.com/tonexone/footctl/pkg/tonexmsg"

// Wire message templates, byte-identical to the pedal's own request
// encodings. These are unframed payloads; callers pass them through
// frame.Encode before writing to the bulk OUT endpoint.

// helloPayload is the fixed Hello handshake request.
var helloPayload = []byte{
	0xb9, 0x03, 0x00, 0x82, 0x04, 0x00, 0x80, 0x0b, 0x01, 0xb9, 0x02, 0x02, 0x0b,
}

// requestStatePayload asks the pedal to send its full state-update message.
var requestStatePayload = []byte{
	0xb9, 0x03, 0x00, 0x82, 0x06, 0x00, 0x80, 0x0b, 0x03, 0xb9, 0x02, 0x81, 0x06, 0x03, 0x0b,
}

// setStateHeader precedes a raw state blob in a set-state request; bytes 6
// and 7 (both zero here) are overwritten with the little-endian length of
// the state blob that follows.
var setStateHeader = []byte{0xb9, 0x03, 0x81, 0x06, 0x03, 0x82, 0, 0, 0x80, 0x0b, 0x03}

// setParamsHeader precedes a raw preset blob in a set-params request, the
// same shape as setStateHeader but for the preset-details payload.
var setParamsHeader = []byte{0xb9, 0x03, 0x81, 0x03, 0x03, 0x82, 0, 0, 0x80, 0x0b, 0x03}

func buildWithLengthHeader(header []byte, body []byte) []byte {
	msg := make([]byte, 0, len(header)+len(body))
	msg = append(msg, header...)
	msg[6] = byte(len(body) & 0xFF)
	msg[7] = byte((len(body) >> 8) & 0xFF)
	msg = append(msg, body...)
	return msg
}

// buildHello returns the unframed Hello request payload.
func buildHello() []byte {
	out := make([]byte, len(helloPayload))
	copy(out, helloPayload)
	return out
}

// buildRequestState returns the unframed request-state payload.
func buildRequestState() []byte {
	out := make([]byte, len(requestStatePayload))
	copy(out, requestStatePayload)
	return out
}

// buildSetState wraps a mutated state blob in the set-state header.
func buildSetState(stateData []byte) []byte {
	return buildWithLengthHeader(setStateHeader, stateData)
}

// buildSetParams wraps a mutated preset blob in the set-params header. The
// reference firmware carries this path disabled (full preset parameter
// push is unreliable on-device); it's implemented here because the
// protocol shape is otherwise identical to set-state and single-parameter
// writes use it successfully.
func buildSetParams(presetData []byte) []byte {
	return buildWithLengthHeader(setParamsHeader, presetData)
}

// mutableState is an owned, writable copy of the most recent state blob,
// using the same trailing-field layout tonexmsg.StateBlob reads.
type mutableState struct {
	data []byte
}

func newMutableState(blob tonexmsg.StateBlob) *mutableState {
	data := make([]byte, len(blob))
	copy(data, blob)
	return &mutableState{data: data}
}

func (s *mutableState) fieldIndex(offset int) int {
	return len(s.data) - stateOffsetFromEnd + offset
}

func (s *mutableState) setStompMode() {
	if len(s.data) > 14 {
		s.data[14] = 1
	}
}

func (s *mutableState) bypass() bool {
	return s.data[s.fieldIndex(6)] == 1
}

func (s *mutableState) setBypass(on bool) {
	i := s.fieldIndex(6)
	if on {
		s.data[i] = 1
	} else {
		s.data[i] = 0
	}
}

func (s *mutableState) setSlotPreset(slot Slot, preset byte) {
	switch slot {
	case SlotA:
		s.data[s.fieldIndex(0)] = preset
	case SlotB:
		s.data[s.fieldIndex(2)] = preset
	case SlotC:
		s.data[s.fieldIndex(4)] = preset
	}
}

func (s *mutableState) setCurrentSlot(slot Slot) {
	s.data[s.fieldIndex(7)] = byte(slot)
}

func (s *mutableState) bytes() []byte {
	return s.data
}
