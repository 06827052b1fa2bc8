// Package frame implements the Tonex One wire framing: byte-stuffing around
// a CRC-16/X-25 checksummed payload, bounded by 0x7E sentinels.
package frame

import (
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

const (
	flagByte       = 0x7E
	escapeByte     = 0x7D
	escapeXorValue = 0x20
)

// Frame codec errors, per the pedal transport's error taxonomy.
var (
	ErrInvalidFrame  = errors.New("frame: invalid frame")
	ErrInvalidEscape = errors.New("frame: invalid escape sequence")
	ErrCrcMismatch   = errors.New("frame: crc mismatch")
)

var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// crc computes the reflected CRC-16/X-25 over data, matching the pedal
// firmware's hand-rolled calculateCRC (init 0xFFFF, poly 0x8408 reflected,
// complemented on output).
func crc(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

func appendStuffed(out []byte, b byte) []byte {
	if b == flagByte || b == escapeByte {
		return append(out, escapeByte, b^escapeXorValue)
	}
	return append(out, b)
}

// Encode frames payload: 0x7E, byte-stuffed payload, byte-stuffed CRC-16
// (low byte first), 0x7E.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+6)
	out = append(out, flagByte)
	for _, b := range payload {
		out = appendStuffed(out, b)
	}

	sum := crc(payload)
	out = appendStuffed(out, byte(sum&0xFF))
	out = appendStuffed(out, byte(sum>>8))

	out = append(out, flagByte)
	return out
}

// Decode reverses Encode, verifying the CRC. frame must begin and end with
// 0x7E; a stray unescaped 0x7E before the closing sentinel terminates
// decoding early (matching the firmware's removeFraming loop).
func Decode(f []byte) ([]byte, error) {
	if len(f) < 4 || f[0] != flagByte || f[len(f)-1] != flagByte {
		return nil, fmt.Errorf("%w: missing sentinels", ErrInvalidFrame)
	}

	out := make([]byte, 0, len(f))
	for i := 1; i < len(f)-1; i++ {
		switch f[i] {
		case escapeByte:
			if i+1 >= len(f)-1 {
				return nil, fmt.Errorf("%w: dangling escape", ErrInvalidEscape)
			}
			out = append(out, f[i+1]^escapeXorValue)
			i++
		case flagByte:
			// Stray terminator before the real end: stop decoding here.
			i = len(f) - 1 // loop post-increment will exit
		default:
			out = append(out, f[i])
		}
	}

	if len(out) < 2 {
		return nil, fmt.Errorf("%w: too short after unstuffing", ErrInvalidFrame)
	}

	payload := out[:len(out)-2]
	receivedCRC := uint16(out[len(out)-2]) | uint16(out[len(out)-1])<<8

	if calculated := crc(payload); calculated != receivedCRC {
		return nil, fmt.Errorf("%w: got 0x%04X want 0x%04X", ErrCrcMismatch, receivedCRC, calculated)
	}

	return payload, nil
}

// SplitFrames scans buf for consecutive 0x7E-delimited frames and returns
// each complete frame's raw bytes (sentinels included). A trailing partial
// frame (no closing 0x7E found) is dropped, per the transport's whole-frame
// delivery guarantee.
func SplitFrames(buf []byte) [][]byte {
	var frames [][]byte

	start := -1
	for i := 0; i < len(buf); i++ {
		if buf[i] != flagByte {
			continue
		}
		if start == -1 {
			start = i
			continue
		}
		if i == start+1 {
			// Two adjacent flags with nothing between: treat the second
			// as the start of the next frame rather than an empty frame.
			start = i
			continue
		}
		frames = append(frames, buf[start:i+1])
		start = -1
	}

	return frames
}
