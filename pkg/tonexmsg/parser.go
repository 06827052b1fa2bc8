// Package tonexmsg decodes the Tonex One's unframed wire messages: the
// varint-ish type/size header, and the state-update / preset-details
// payloads that follow it. Callers hand it the already-unframed,
// CRC-verified payload produced by pkg/frame.Decode.
package tonexmsg

import (
	"bytes"
	"errors"
	"fmt"
)

// Type identifies a decoded message's payload shape.
type Type int

const (
	TypeUnknown Type = iota
	TypeHello
	TypeStateUpdate
	TypeStatePresetDetails
)

// Header is the common type/size/unknown triple every message starts with,
// immediately after the B9 03 preamble.
type Header struct {
	Type    Type
	Size    uint16
	Unknown uint16
}

var (
	// ErrShortMessage is returned when a payload is too small to hold a
	// header, or shorter than its own declared size.
	ErrShortMessage = errors.New("tonexmsg: message too short")
	// ErrBadPreamble is returned when a payload doesn't start with B9 03.
	ErrBadPreamble = errors.New("tonexmsg: missing B9 03 preamble")
	// ErrMarkerNotFound is returned by the marker-search helpers when the
	// expected byte sequence isn't present in the payload.
	ErrMarkerNotFound = errors.New("tonexmsg: marker not found")
)

// ParseValue reads one pedal-encoded integer from msg starting at *index,
// advancing *index past it. The pedal uses a small varint-like scheme:
// 0x81/0x82 prefix a little-endian 16-bit value, 0x80 prefixes an 8-bit
// value promoted to 16 bits, and any other byte is its own literal value.
func ParseValue(msg []byte, index *int) (uint16, error) {
	if *index >= len(msg) {
		return 0, fmt.Errorf("%w: value at index %d", ErrShortMessage, *index)
	}

	switch msg[*index] {
	case 0x81, 0x82:
		if *index+2 >= len(msg) {
			return 0, fmt.Errorf("%w: 16-bit value at index %d", ErrShortMessage, *index)
		}
		value := uint16(msg[*index+2])<<8 | uint16(msg[*index+1])
		*index += 3
		return value, nil
	case 0x80:
		if *index+1 >= len(msg) {
			return 0, fmt.Errorf("%w: 8-bit value at index %d", ErrShortMessage, *index)
		}
		value := uint16(msg[*index+1])
		*index += 2
		return value, nil
	default:
		value := uint16(msg[*index])
		*index++
		return value, nil
	}
}

// ParseMessage decodes payload's header and returns it along with the
// remaining bytes (from just past the header's size/unknown fields to the
// end of payload). payload must start with the B9 03 preamble.
func ParseMessage(payload []byte) (Header, []byte, error) {
	if len(payload) < 5 {
		return Header{}, nil, fmt.Errorf("%w: got %d bytes", ErrShortMessage, len(payload))
	}
	if payload[0] != 0xB9 || payload[1] != 0x03 {
		return Header{}, nil, ErrBadPreamble
	}

	index := 2
	rawType, err := ParseValue(payload, &index)
	if err != nil {
		return Header{}, nil, fmt.Errorf("tonexmsg: decoding type: %w", err)
	}

	var h Header
	switch rawType {
	case 0x0306:
		h.Type = TypeStateUpdate
	case 0x0304:
		h.Type = TypeStatePresetDetails
	case 0x02:
		h.Type = TypeHello
	default:
		h.Type = TypeUnknown
	}

	size, err := ParseValue(payload, &index)
	if err != nil {
		return Header{}, nil, fmt.Errorf("tonexmsg: decoding size: %w", err)
	}
	h.Size = size

	unknown, err := ParseValue(payload, &index)
	if err != nil {
		return Header{}, nil, fmt.Errorf("tonexmsg: decoding unknown field: %w", err)
	}
	h.Unknown = unknown

	if int(h.Size) != len(payload)-index {
		return Header{}, nil, fmt.Errorf("%w: header claims %d, have %d", ErrShortMessage, h.Size, len(payload)-index)
	}

	return h, payload[index:], nil
}

// presetNameMarker precedes the 32-byte preset name in a preset-details
// payload.
var presetNameMarker = []byte{0xB9, 0x04, 0xB9, 0x02, 0xBC, 0x21}

const presetNameLength = 32

// paramRegionMarker precedes the first parameter record in a preset-details
// payload.
var paramRegionMarker = []byte{0xBA, 0x03, 0xBA, 0x6D}

// findMarker locates marker in buf and returns the index just past it.
func findMarker(buf, marker []byte) (int, error) {
	i := bytes.Index(buf, marker)
	if i < 0 {
		return 0, ErrMarkerNotFound
	}
	return i + len(marker), nil
}
