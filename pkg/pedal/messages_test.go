package pedal

import (
	"bytes"
	"math"
	"testing"

	"github.com/tonexone/footctl/pkg/tonexmsg"
)

func TestBuildHelloMatchesFirmwareLiteral(t *testing.T) {
	want := []byte{0xb9, 0x03, 0x00, 0x82, 0x04, 0x00, 0x80, 0x0b, 0x01, 0xb9, 0x02, 0x02, 0x0b}
	if got := buildHello(); !bytes.Equal(got, want) {
		t.Fatalf("got % X want % X", got, want)
	}
}

func TestBuildRequestStateMatchesFirmwareLiteral(t *testing.T) {
	want := []byte{0xb9, 0x03, 0x00, 0x82, 0x06, 0x00, 0x80, 0x0b, 0x03, 0xb9, 0x02, 0x81, 0x06, 0x03, 0x0b}
	if got := buildRequestState(); !bytes.Equal(got, want) {
		t.Fatalf("got % X want % X", got, want)
	}
}

func TestBuildSetStatePatchesLength(t *testing.T) {
	body := make([]byte, 300)
	msg := buildSetState(body)

	if len(msg) != len(setStateHeader)+len(body) {
		t.Fatalf("unexpected total length: %d", len(msg))
	}
	gotLen := int(msg[6]) | int(msg[7])<<8
	if gotLen != len(body) {
		t.Fatalf("expected length field %d, got %d", len(body), gotLen)
	}
	if !bytes.Equal(msg[len(setStateHeader):], body) {
		t.Fatalf("body not appended verbatim")
	}
}

func TestBuildSetParamsPatchesLength(t *testing.T) {
	body := make([]byte, 512)
	msg := buildSetParams(body)

	gotLen := int(msg[6]) | int(msg[7])<<8
	if gotLen != len(body) {
		t.Fatalf("expected length field %d, got %d", len(body), gotLen)
	}
}

func newTestStateBlob(slotA, slotB, slotC, currentSlot byte) tonexmsg.StateBlob {
	body := make([]byte, 40)
	base := len(body) - stateOffsetFromEnd
	body[base+0] = slotA
	body[base+2] = slotB
	body[base+4] = slotC
	body[base+7] = currentSlot
	return tonexmsg.StateBlob(body)
}

func TestMutableStateSetSlotPreset(t *testing.T) {
	blob := newTestStateBlob(1, 2, 3, 0)
	ms := newMutableState(blob)

	ms.setSlotPreset(SlotB, 9)
	if got := ms.data[ms.fieldIndex(2)]; got != 9 {
		t.Fatalf("expected slot B preset 9, got %d", got)
	}
	// Slot A untouched.
	if got := ms.data[ms.fieldIndex(0)]; got != 1 {
		t.Fatalf("slot A mutated unexpectedly: %d", got)
	}
}

func TestMutableStateSetCurrentSlotAndStompMode(t *testing.T) {
	blob := newTestStateBlob(1, 2, 3, 0)
	ms := newMutableState(blob)

	ms.setCurrentSlot(SlotC)
	if got := ms.data[ms.fieldIndex(7)]; got != byte(SlotC) {
		t.Fatalf("expected current slot C, got %d", got)
	}

	ms.setStompMode()
	if ms.data[14] != 1 {
		t.Fatalf("expected stomp mode byte set")
	}
}

func TestMutableStateBypassToggle(t *testing.T) {
	blob := newTestStateBlob(1, 2, 3, 0)
	ms := newMutableState(blob)

	if ms.bypass() {
		t.Fatalf("expected bypass false initially")
	}
	ms.setBypass(true)
	if !ms.bypass() {
		t.Fatalf("expected bypass true after setBypass(true)")
	}
	ms.setBypass(false)
	if ms.bypass() {
		t.Fatalf("expected bypass false after setBypass(false)")
	}
}

func TestIndexOfSubslice(t *testing.T) {
	haystack := []byte{1, 2, 3, 4, 5}
	if i := indexOfSubslice(haystack, []byte{3, 4}); i != 2 {
		t.Fatalf("expected index 2, got %d", i)
	}
	if i := indexOfSubslice(haystack, []byte{9}); i != -1 {
		t.Fatalf("expected -1, got %d", i)
	}
}

func TestFloat32ToLEBytesRoundTrip(t *testing.T) {
	b := float32ToLEBytes(1.5)
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	got := math.Float32frombits(bits)
	if got != 1.5 {
		t.Fatalf("round trip mismatch: got %v", got)
	}
}
