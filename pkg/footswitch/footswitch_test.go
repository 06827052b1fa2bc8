package footswitch

import (
	"testing"

	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

type fixedConverter struct{}

func (fixedConverter) Convert(cc uint8, value uint8) (tonexparam.Index, float32, bool) {
	return tonexparam.EQBass, float32(value), true
}

func TestDualHandlerPressGeneratesPrevNext(t *testing.T) {
	e := NewEngine(controller.FootswitchModeDual, Layout1x4, false, nil, nil)

	cmds, reset := e.Tick(0x01, 0)
	if reset {
		t.Fatalf("unexpected reset")
	}
	if len(cmds) != 1 || cmds[0].Kind != controller.CmdPrevPreset {
		t.Fatalf("expected one CmdPrevPreset, got %+v", cmds)
	}

	// still held: no repeat command
	cmds, _ = e.Tick(0x01, 0)
	if len(cmds) != 0 {
		t.Fatalf("expected no repeat while held, got %+v", cmds)
	}
}

func TestDualHandlerRequiresDebouncedRelease(t *testing.T) {
	e := NewEngine(controller.FootswitchModeDual, Layout1x4, false, nil, nil)
	e.Tick(0x01, 0)

	// Release for fewer than releaseSampleCount samples, then re-press:
	// should not fire again until fully debounced back to idle.
	for i := 0; i < releaseSampleCount-1; i++ {
		e.Tick(0x00, 0)
	}
	cmds, _ := e.Tick(0x01, 0)
	if len(cmds) != 0 {
		t.Fatalf("expected no new command before full release debounce, got %+v", cmds)
	}

	// The re-press restarted the count: releaseSampleCount consecutive
	// released samples are needed before the switch is idle again.
	for i := 0; i < releaseSampleCount; i++ {
		cmds, _ = e.Tick(0x00, 0)
		if len(cmds) != 0 {
			t.Fatalf("unexpected command on debounce sample %d: %+v", i, cmds)
		}
	}

	cmds, _ = e.Tick(0x01, 0)
	if len(cmds) != 1 || cmds[0].Kind != controller.CmdPrevPreset {
		t.Fatalf("expected fresh CmdPrevPreset after debounce, got %+v", cmds)
	}
}

func TestQuadBanked1x4SelectsOffsetWithinBank(t *testing.T) {
	e := NewEngine(controller.FootswitchModeQuadBanked, Layout1x4, false, nil, nil)

	// bank up mask for 1x4 is 0x0C
	cmds, _ := e.Tick(0x0C, 0)
	if len(cmds) != 0 {
		t.Fatalf("bank change itself should not select a preset, got %+v", cmds)
	}
	e.Tick(0, 0) // release

	// press switch bit 2 (index within bank = 2)
	e.Tick(1<<2, 0)
	cmds, _ = e.Tick(0, 0) // release triggers the select
	if len(cmds) != 1 || cmds[0].Kind != controller.CmdSetPreset {
		t.Fatalf("expected CmdSetPreset on release, got %+v", cmds)
	}
	if cmds[0].PresetIndex != 4+2 {
		t.Fatalf("expected preset %d (bank 1 * 4 + 2), got %d", 4+2, cmds[0].PresetIndex)
	}
}

func TestQuadBinaryEmitsOnChangeOnly(t *testing.T) {
	e := NewEngine(controller.FootswitchModeQuadBinary, Layout1x4, false, nil, nil)

	cmds, _ := e.Tick(0b0101, 0)
	if len(cmds) != 1 || cmds[0].PresetIndex != 0b0101 {
		t.Fatalf("expected preset 5, got %+v", cmds)
	}

	cmds, _ = e.Tick(0b0101, 0)
	if len(cmds) != 0 {
		t.Fatalf("expected no repeat for unchanged binary value, got %+v", cmds)
	}

	cmds, _ = e.Tick(0b0110, 0)
	if len(cmds) != 1 || cmds[0].PresetIndex != 0b0110 {
		t.Fatalf("expected preset 6 on change, got %+v", cmds)
	}
}

func TestExternalBankedGeneralizedLayout(t *testing.T) {
	e := NewEngine(controller.FootswitchModeDual, Layout2x5A, true, nil, nil)

	e.Tick(0, 1<<3) // press switch bit 3
	cmds, _ := e.Tick(0, 0)
	if len(cmds) != 1 || cmds[0].Kind != controller.CmdSetPreset || cmds[0].PresetIndex != 3 {
		t.Fatalf("expected CmdSetPreset(3), got %+v", cmds)
	}
}

func TestEffectsToggleBetweenConfiguredValues(t *testing.T) {
	configs := []EffectConfig{{SwitchBit: 0, CC: 10, Value1: 0, Value2: 127}}
	e := NewEngine(controller.FootswitchModeDual, Layout2x5A, true, configs, fixedConverter{})

	cmds, _ := e.Tick(0, 1)
	if len(cmds) == 0 {
		t.Fatalf("expected an effect command, got none: %+v", cmds)
	}
	var modify *controller.Cmd
	for i := range cmds {
		if cmds[i].Kind == controller.CmdModifyParam {
			modify = &cmds[i]
		}
	}
	if modify == nil || modify.ParamValue != 0 {
		t.Fatalf("expected first press to send Value1=0, got %+v", cmds)
	}

	e.Tick(0, 0) // release

	cmds, _ = e.Tick(0, 1)
	modify = nil
	for i := range cmds {
		if cmds[i].Kind == controller.CmdModifyParam {
			modify = &cmds[i]
		}
	}
	if modify == nil || modify.ParamValue != 127 {
		t.Fatalf("expected second press to send Value2=127, got %+v", cmds)
	}
}

func TestFactoryResetTriggersAfterSustainedHold(t *testing.T) {
	e := NewEngine(controller.FootswitchModeDual, Layout1x4, false, nil, nil)

	for i := 0; i < factoryResetSampleCount; i++ {
		_, reset := e.Tick(0x01, 0)
		if reset {
			t.Fatalf("reset fired too early at sample %d", i)
		}
	}

	_, reset := e.Tick(0x01, 0)
	if !reset {
		t.Fatalf("expected factory reset to fire after threshold")
	}
}

func TestFactoryResetTimerResetsOnRelease(t *testing.T) {
	e := NewEngine(controller.FootswitchModeDual, Layout1x4, false, nil, nil)

	for i := 0; i < 10; i++ {
		e.Tick(0x01, 0)
	}
	e.Tick(0x00, 0)

	_, reset := e.Tick(0x01, 0)
	if reset {
		t.Fatalf("reset should not fire after the hold timer was cleared")
	}
	if e.resetSamples != 1 {
		t.Fatalf("expected resetSamples to restart at 1, got %d", e.resetSamples)
	}
}
