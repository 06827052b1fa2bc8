package midicc

import (
	"testing"

	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

func TestConvertBooleanCCUsesOnly127AsTrue(t *testing.T) {
	m := NewMapper(tonexparam.NewTable())

	_, value, ok := m.Convert(2, 126)
	if !ok || value != 0 {
		t.Fatalf("expected false for value 126, got value=%v ok=%v", value, ok)
	}

	_, value, ok = m.Convert(2, 127)
	if !ok || value != 1 {
		t.Fatalf("expected true for value 127, got value=%v ok=%v", value, ok)
	}
}

func TestConvertLinearCCIsMonotonic(t *testing.T) {
	m := NewMapper(tonexparam.NewTable())

	var prev float32 = -1 << 20
	for v := 0; v <= 127; v++ {
		_, value, ok := m.Convert(15, uint8(v))
		if !ok {
			t.Fatalf("expected CC 15 to be mapped")
		}
		if value < prev {
			t.Fatalf("scaling not monotonic at value %d: %v < %v", v, value, prev)
		}
		prev = value
	}
}

func TestConvertLinearCCMatchesParamRange(t *testing.T) {
	table := tonexparam.NewTable()
	m := NewMapper(table)

	min, max, err := table.GetMinMax(tonexparam.NoiseGateThreshold)
	if err != nil {
		t.Fatalf("GetMinMax: %v", err)
	}

	index, value, ok := m.Convert(15, 0)
	if !ok || index != tonexparam.NoiseGateThreshold || value != min {
		t.Fatalf("expected CC15@0 -> min %v, got value=%v index=%v", min, value, index)
	}

	index, value, ok = m.Convert(15, 127)
	if !ok || index != tonexparam.NoiseGateThreshold || value != max {
		t.Fatalf("expected CC15@127 -> max %v, got value=%v index=%v", max, value, index)
	}
}

func TestConvertRawValueCCPassesThroughAsModelIndex(t *testing.T) {
	m := NewMapper(tonexparam.NewTable())

	// DelayModel's range is [0,1] (digital, tape); Convert clamps to it.
	index, value, ok := m.Convert(3, 1)
	if !ok || index != tonexparam.DelayModel {
		t.Fatalf("expected DelayModel mapping, got index=%v ok=%v", index, ok)
	}
	if value != 1 {
		t.Fatalf("expected raw passthrough value 1, got %v", value)
	}
}

func TestConvertThreshold64CC(t *testing.T) {
	m := NewMapper(tonexparam.NewTable())

	_, value, ok := m.Convert(7, 64)
	if !ok || value != 1 {
		t.Fatalf("expected value 1 at exactly 64, got %v", value)
	}

	_, value, ok = m.Convert(7, 63)
	if !ok || value != 0 {
		t.Fatalf("expected value 0 at 63, got %v", value)
	}
}

func TestConvertUnmappedCCReturnsFalse(t *testing.T) {
	m := NewMapper(tonexparam.NewTable())

	if _, _, ok := m.Convert(9, 10); ok {
		t.Fatalf("expected CC 9 (tuner, unmapped) to be rejected")
	}
	if _, _, ok := m.Convert(88, 10); ok {
		t.Fatalf("expected CC 88 (bpm, unmapped) to be rejected")
	}
}

func TestNavigateRecognizesPrevAndNext(t *testing.T) {
	kind, ok := Navigate(NavPrevCC)
	if !ok || kind != controller.CmdPrevPreset {
		t.Fatalf("expected CmdPrevPreset for CC86")
	}
	kind, ok = Navigate(NavNextCC)
	if !ok || kind != controller.CmdNextPreset {
		t.Fatalf("expected CmdNextPreset for CC87")
	}
	if _, ok := Navigate(50); ok {
		t.Fatalf("expected CC50 to not be a navigation CC")
	}
}
