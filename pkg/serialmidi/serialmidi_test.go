package serialmidi

import (
	"testing"

	"github.com/tonexone/footctl/pkg/controller"
)

func TestScanProgramChangeOnMatchingChannel(t *testing.T) {
	data := []byte{0xC2, 0x0A}
	cmds := Scan(data, 2)
	if len(cmds) != 1 || cmds[0].Kind != controller.CmdSetPreset || cmds[0].PresetIndex != 10 {
		t.Fatalf("expected SetPreset(10), got %+v", cmds)
	}
}

func TestScanIgnoresProgramChangeOnOtherChannel(t *testing.T) {
	data := []byte{0xC1, 0x0A}
	cmds := Scan(data, 2)
	if len(cmds) != 0 {
		t.Fatalf("expected no commands for non-matching channel, got %+v", cmds)
	}
}

func TestScanSkipsRealtimeBytes(t *testing.T) {
	data := []byte{0xF8, 0xFE, 0xFF, 0xC2, 0x05}
	cmds := Scan(data, 2)
	if len(cmds) != 1 || cmds[0].PresetIndex != 5 {
		t.Fatalf("expected realtime bytes skipped and PC honored, got %+v", cmds)
	}
}

func TestScanSkipsUnrecognizedStatusMessage(t *testing.T) {
	// Note On (0x90) with 2 data bytes, then a Program Change on channel 2.
	data := []byte{0x90, 0x40, 0x7F, 0xC2, 0x03}
	cmds := Scan(data, 2)
	if len(cmds) != 1 || cmds[0].PresetIndex != 3 {
		t.Fatalf("expected Note On skipped and PC honored, got %+v", cmds)
	}
}

func TestScanHandlesIncompleteProgramChangeAtEnd(t *testing.T) {
	data := []byte{0xC2}
	cmds := Scan(data, 2)
	if len(cmds) != 0 {
		t.Fatalf("expected no commands for truncated Program Change, got %+v", cmds)
	}
}

func TestScanMultipleProgramChanges(t *testing.T) {
	data := []byte{0xC2, 0x01, 0xC2, 0x02}
	cmds := Scan(data, 2)
	if len(cmds) != 2 || cmds[0].PresetIndex != 1 || cmds[1].PresetIndex != 2 {
		t.Fatalf("expected two SetPreset commands, got %+v", cmds)
	}
}
