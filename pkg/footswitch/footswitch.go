// Package footswitch samples onboard and external footswitch hardware and
// turns button presses/releases into controller.Cmd values, matching
// footswitches.c's dual/banked/quad-binary/effect-toggle state machines.
package footswitch

import (
	"context"
	"time"

	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

// SampleInterval is the footswitch task's poll period (20ms, 50Hz).
const SampleInterval = 20 * time.Millisecond

// releaseSampleCount is how many consecutive released samples confirm a
// button release, matching FOOTSWITCH_SAMPLE_COUNT.
const releaseSampleCount = 5

// factoryResetSampleCount is how many consecutive switch-1-held samples
// trigger a factory reset, matching BUTTON_FACTORY_RESET_TIME (10s at 20ms).
const factoryResetSampleCount = 500

// quadBinaryHoldOff is the quad-binary handler's 180ms anti-chatter delay
// after a preset change. The handler stores it in holdOff, but Tick does
// not wait on it: the next sample is evaluated at once.
const quadBinaryHoldOff = 180 * time.Millisecond

// bankReleaseHoldOff is the 100ms settle delay the banked handler records
// after a preset select or a bank change. As with quadBinaryHoldOff, Tick
// does not wait on it.
const bankReleaseHoldOff = 100 * time.Millisecond

// Layout identifies one of the nine named external footswitch preset
// layouts, matching FOOTSWITCH_LAYOUT_*.
type Layout int

const (
	Layout1x3 Layout = iota
	Layout1x4
	Layout1x5
	Layout2x3
	Layout2x4
	Layout2x5A
	Layout2x5B
	Layout2x6A
	Layout2x6B
	layoutCount
)

// LayoutEntry is one row of the FootswitchLayouts table: how many switches
// total, how many presets per bank, and the bitmasks that mean "bank down"
// and "bank up" rather than a preset select.
type LayoutEntry struct {
	TotalSwitches  int
	PresetsPerBank int
	BankDownMask   uint16
	BankUpMask     uint16
}

// Layouts is the full named-layout table, transcribed from FootswitchLayouts.
var Layouts = [layoutCount]LayoutEntry{
	Layout1x3:  {3, 3, 0x03, 0x06},
	Layout1x4:  {4, 4, 0x03, 0x0C},
	Layout1x5:  {5, 5, 0x03, 0x18},
	Layout2x3:  {6, 6, 0x03, 0x06},
	Layout2x4:  {8, 8, 0x03, 0x0C},
	Layout2x5A: {10, 10, 0x03, 0x18},
	Layout2x5B: {10, 8, 0x10, 0x200},
	Layout2x6A: {12, 12, 0x03, 0x30},
	Layout2x6B: {12, 10, 0x20, 0x800},
}

// SwitchReader samples the current pressed/released bitmask for a bank of
// footswitches; bit N set means switch N+1 is pressed. Implementations wrap
// whatever GPIO/IO-expander bus the deployment uses.
type SwitchReader interface {
	Read() (uint16, error)
}

// EffectConfig is one external effect-toggle footswitch binding: which
// switch bit drives it, which MIDI CC it adjusts, and the two values it
// alternates between on each press (mirrors tExternalFootswitchEffectConfig).
type EffectConfig struct {
	SwitchBit uint
	CC        uint8
	Value1    uint8
	Value2    uint8
}

// SwitchNotUsed marks an EffectConfig slot as unbound, mirroring
// SWITCH_NOT_USED.
const SwitchNotUsed = ^uint(0)

// CCConverter turns a MIDI CC number and raw 0-127 value into a parameter
// index and scaled value, implemented by pkg/midicc.
type CCConverter interface {
	Convert(cc uint8, value uint8) (tonexparam.Index, float32, bool)
}

type handlerState int

const (
	stateIdle handlerState = iota
	stateWaitRelease1
	stateWaitRelease2
)

// dualHandler runs the two-switch next/previous-preset state machine.
type dualHandler struct {
	state         handlerState
	sampleCounter int
}

func (h *dualHandler) update(mask uint16) *controller.Cmd {
	const sw1 = 1 << 0
	const sw2 = 1 << 1

	switch h.state {
	case stateIdle:
		if mask&sw1 != 0 {
			h.sampleCounter = 0
			h.state = stateWaitRelease1
			return &controller.Cmd{Kind: controller.CmdPrevPreset}
		}
		if mask&sw2 != 0 {
			h.sampleCounter = 0
			h.state = stateWaitRelease2
			return &controller.Cmd{Kind: controller.CmdNextPreset}
		}

	case stateWaitRelease1:
		if mask&sw1 == 0 {
			h.sampleCounter++
			if h.sampleCounter == releaseSampleCount {
				h.state = stateIdle
			}
		} else {
			h.sampleCounter = 0
		}

	case stateWaitRelease2:
		if mask&sw2 == 0 {
			h.sampleCounter++
			if h.sampleCounter == releaseSampleCount {
				h.state = stateIdle
			}
		} else {
			h.sampleCounter = 0
		}
	}
	return nil
}

// bankedHandler runs the banked-preset-select state machine shared by the
// quad-banked onboard mode and the generalized external-layout mode.
type bankedHandler struct {
	state        handlerState
	currentBank  uint8
	indexPending uint16
	holdOff      time.Duration
}

func (h *bankedHandler) update(mask uint16, layout LayoutEntry) *controller.Cmd {
	switch h.state {
	case stateIdle:
		if mask != 0 {
			switch {
			case mask == layout.BankDownMask:
				if h.currentBank > 0 {
					h.currentBank--
				}
				h.state = stateWaitRelease1

			case mask == layout.BankUpMask:
				maxBank := uint8(controller.MaxPresets / layout.PresetsPerBank)
				if h.currentBank < maxBank {
					h.currentBank++
				}
				h.state = stateWaitRelease1

			default:
				h.indexPending = mask
			}
			return nil
		}

		if h.indexPending != 0 {
			newPreset := int(h.currentBank) * layout.PresetsPerBank
			for bit := 1; bit < layout.PresetsPerBank; bit++ {
				if h.indexPending&(1<<uint(bit)) != 0 {
					newPreset += bit
					break
				}
			}
			h.indexPending = 0
			h.holdOff = bankReleaseHoldOff
			return &controller.Cmd{Kind: controller.CmdSetPreset, PresetIndex: uint16(newPreset)}
		}

	case stateWaitRelease1:
		if mask == 0 {
			h.state = stateIdle
			h.indexPending = 0
			h.holdOff = bankReleaseHoldOff
		}
	}
	return nil
}

// quadBinaryHandler runs the four-switch binary preset-select mode.
type quadBinaryHandler struct {
	lastValue uint16
	holdOff   time.Duration
}

func (h *quadBinaryHandler) update(mask uint16) *controller.Cmd {
	binaryVal := mask & 0x0F
	if binaryVal == h.lastValue {
		return nil
	}
	h.lastValue = binaryVal
	h.holdOff = quadBinaryHoldOff
	return &controller.Cmd{Kind: controller.CmdSetPreset, PresetIndex: binaryVal}
}

// effectsHandler runs the external effect-toggle switches, each alternating
// between two configured CC values on successive presses.
type effectsHandler struct {
	state        handlerState
	activeSwitch uint
	toggled      []bool
}

func newEffectsHandler(n int) *effectsHandler {
	return &effectsHandler{toggled: make([]bool, n)}
}

func (h *effectsHandler) update(mask uint16, configs []EffectConfig, convert CCConverter) *controller.Cmd {
	switch h.state {
	case stateIdle:
		for i, cfg := range configs {
			if cfg.SwitchBit == SwitchNotUsed {
				continue
			}
			if mask&(1<<cfg.SwitchBit) == 0 {
				continue
			}

			value := cfg.Value1
			if h.toggled[i] {
				value = cfg.Value2
			}
			h.toggled[i] = !h.toggled[i]

			h.activeSwitch = cfg.SwitchBit
			h.state = stateWaitRelease1

			index, scaled, ok := convert.Convert(cfg.CC, value)
			if !ok {
				return nil
			}
			return &controller.Cmd{Kind: controller.CmdModifyParam, ParamIndex: index, ParamValue: scaled}
		}

	case stateWaitRelease1:
		if mask&(1<<h.activeSwitch) == 0 {
			h.state = stateIdle
		}
	}
	return nil
}

// Engine ties the onboard mode, the external banked-preset layout, and the
// external effects switches together into one sampled-update step, plus the
// switch-1-held factory-reset watchdog.
type Engine struct {
	onboardMode controller.FootswitchMode
	externalLayout Layout

	dual        dualHandler
	onboardBank bankedHandler
	quadBinary  quadBinaryHandler
	externalBank bankedHandler
	effects     *effectsHandler
	effectConfigs []EffectConfig
	ccConverter CCConverter

	hasExternal bool

	resetSamples int
	factoryReset bool
}

// NewEngine builds an Engine for the given onboard mode and external preset
// layout. hasExternal reports whether an external IO expander was detected,
// matching FootswitchControl.io_expander_ok.
func NewEngine(onboardMode controller.FootswitchMode, externalLayout Layout, hasExternal bool, effects []EffectConfig, convert CCConverter) *Engine {
	return &Engine{
		onboardMode:   onboardMode,
		externalLayout: externalLayout,
		hasExternal:   hasExternal,
		effects:       newEffectsHandler(len(effects)),
		effectConfigs: effects,
		ccConverter:   convert,
	}
}

// Tick advances every handler by one sample. onboardMask/externalMask are
// the bitmasks read this sample (bit N = switch N+1 pressed). It returns
// the commands produced this tick, in handler priority order (onboard,
// external presets, external effects), and reports whether a factory reset
// was triggered (switch 1 held for more than factoryResetSampleCount
// consecutive samples); the reset is reported on the first such tick only.
func (e *Engine) Tick(onboardMask, externalMask uint16) (cmds []controller.Cmd, reset bool) {
	var cmd *controller.Cmd

	switch e.onboardMode {
	case controller.FootswitchModeQuadBanked:
		cmd = e.onboardBank.update(onboardMask, Layouts[Layout1x4])
	case controller.FootswitchModeQuadBinary:
		cmd = e.quadBinary.update(onboardMask)
	default:
		cmd = e.dual.update(onboardMask)
	}
	if cmd != nil {
		cmds = append(cmds, *cmd)
	}

	if e.hasExternal {
		if cmd := e.externalBank.update(externalMask, Layouts[e.externalLayout]); cmd != nil {
			cmds = append(cmds, *cmd)
		}
		if e.ccConverter != nil {
			if cmd := e.effects.update(externalMask, e.effectConfigs, e.ccConverter); cmd != nil {
				cmds = append(cmds, *cmd)
			}
		}
	}

	if onboardMask&0x01 != 0 {
		e.resetSamples++
		if e.resetSamples > factoryResetSampleCount && !e.factoryReset {
			e.factoryReset = true
			return cmds, true
		}
	} else {
		e.resetSamples = 0
	}

	return cmds, false
}

// CmdSink is the narrow surface Run needs to deliver produced commands.
type CmdSink interface {
	Enqueue(controller.Cmd) error
}

// Run samples onboardReader/externalReader every SampleInterval, enqueuing
// produced commands into sink, until ctx is cancelled. onFactoryReset is
// invoked (once) if the switch-1 hold threshold is crossed. externalReader
// may be nil if no IO expander was found at startup.
func Run(ctx context.Context, e *Engine, onboardReader, externalReader SwitchReader, sink CmdSink, onFactoryReset func()) error {
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			onboardMask, err := onboardReader.Read()
			if err != nil {
				continue
			}

			var externalMask uint16
			if externalReader != nil {
				externalMask, err = externalReader.Read()
				if err != nil {
					externalMask = 0
				}
			}

			cmds, reset := e.Tick(onboardMask, externalMask)
			for _, cmd := range cmds {
				_ = sink.Enqueue(cmd)
			}
			if reset && onFactoryReset != nil {
				onFactoryReset()
			}
		}
	}
}
