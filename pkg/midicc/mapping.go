// Package midicc maps incoming MIDI Control Change numbers to pedal
// parameter writes, matching midi_helper.c's change_num switch: each CC
// scales, booleanizes, or passes through its 0-127 value onto one
// tonexparam.Index, using the big-Tonex-pedal CC layout as the numbering
// convention.
package midicc

import (
	"github.com/tonexone/footctl/pkg/controller"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

type kind int

const (
	kindBoolean kind = iota
	kindLinear
	kindRawValue
	kindThreshold64 // "== 64" -> 1, else 0, matches DIGITAL_MODE/TAPE_MODE's odd encoding
)

type entry struct {
	param tonexparam.Index
	kind  kind
}

// mapping transcribes midi_helper_adjust_param_via_midi's switch verbatim;
// CC numbers with no entry (or explicitly commented "not used" in the
// original) are left unmapped and Convert reports ok=false for them.
var mapping = map[uint8]entry{
	1: {tonexparam.DelayPost, kindBoolean},
	2: {tonexparam.DelayEnable, kindBoolean},
	3: {tonexparam.DelayModel, kindRawValue},
	4: {tonexparam.DelayDigitalSync, kindBoolean},
	5: {tonexparam.DelayDigitalTime, kindLinear},
	6: {tonexparam.DelayDigitalFeedback, kindLinear},
	7: {tonexparam.DelayDigitalMode, kindThreshold64},
	8: {tonexparam.DelayDigitalMix, kindLinear},

	13: {tonexparam.NoiseGatePost, kindBoolean},
	14: {tonexparam.NoiseGateEnable, kindBoolean},
	15: {tonexparam.NoiseGateThreshold, kindLinear},
	16: {tonexparam.NoiseGateRelease, kindLinear},
	17: {tonexparam.NoiseGateDepth, kindLinear},

	18: {tonexparam.CompEnable, kindBoolean},
	19: {tonexparam.CompThreshold, kindLinear},
	20: {tonexparam.CompMakeUp, kindLinear},
	21: {tonexparam.CompAttack, kindLinear},
	22: {tonexparam.CompPost, kindBoolean},

	23: {tonexparam.EQBass, kindLinear},
	24: {tonexparam.EQBassFreq, kindLinear},
	25: {tonexparam.EQMid, kindLinear},
	26: {tonexparam.EQMidQ, kindLinear},
	27: {tonexparam.EQMidFreq, kindLinear},
	28: {tonexparam.EQTreble, kindLinear},
	29: {tonexparam.EQTrebleFreq, kindLinear},
	30: {tonexparam.EQPost, kindBoolean},

	31: {tonexparam.ModulationPost, kindBoolean},
	32: {tonexparam.ModulationEnable, kindBoolean},
	33: {tonexparam.ModulationModel, kindRawValue},
	34: {tonexparam.ChorusSync, kindBoolean},
	35: {tonexparam.ChorusRate, kindLinear},
	36: {tonexparam.ChorusDepth, kindLinear},
	37: {tonexparam.ChorusLevel, kindLinear},
	38: {tonexparam.TremoloSync, kindLinear},
	39: {tonexparam.TremoloRate, kindLinear},
	40: {tonexparam.TremoloShape, kindLinear},
	41: {tonexparam.TremoloSpread, kindLinear},
	42: {tonexparam.TremoloLevel, kindLinear},
	43: {tonexparam.PhaserSync, kindBoolean},
	44: {tonexparam.PhaserRate, kindLinear},
	45: {tonexparam.PhaserDepth, kindLinear},
	46: {tonexparam.PhaserLevel, kindLinear},
	47: {tonexparam.FlangerSync, kindBoolean},
	48: {tonexparam.FlangerRate, kindLinear},
	49: {tonexparam.FlangerDepth, kindLinear},
	50: {tonexparam.FlangerFeedback, kindLinear},
	51: {tonexparam.FlangerLevel, kindLinear},
	52: {tonexparam.RotarySync, kindBoolean},
	53: {tonexparam.RotarySpeed, kindLinear},
	54: {tonexparam.RotaryRadius, kindLinear},
	55: {tonexparam.RotarySpread, kindLinear},
	56: {tonexparam.RotaryLevel, kindLinear},

	59: {tonexparam.ReverbSpring1Time, kindLinear},
	60: {tonexparam.ReverbSpring1Predelay, kindLinear},
	61: {tonexparam.ReverbSpring1Color, kindLinear},
	62: {tonexparam.ReverbSpring1Mix, kindLinear},
	63: {tonexparam.ReverbSpring2Time, kindLinear},
	64: {tonexparam.ReverbSpring2Predelay, kindLinear},
	65: {tonexparam.ReverbSpring2Color, kindLinear},
	66: {tonexparam.ReverbSpring2Mix, kindLinear},
	67: {tonexparam.ReverbSpring3Time, kindLinear},
	68: {tonexparam.ReverbSpring3Predelay, kindLinear},
	69: {tonexparam.ReverbSpring3Color, kindLinear},
	70: {tonexparam.ReverbSpring3Mix, kindLinear},
	71: {tonexparam.ReverbRoomTime, kindLinear},
	72: {tonexparam.ReverbRoomPredelay, kindLinear},
	73: {tonexparam.ReverbRoomColor, kindLinear},
	74: {tonexparam.ReverbRoomMix, kindLinear},
	75: {tonexparam.ReverbEnable, kindBoolean},
	76: {tonexparam.ReverbPlateTime, kindLinear},
	77: {tonexparam.ReverbPlatePredelay, kindLinear},
	78: {tonexparam.ReverbPlateColor, kindLinear},
	79: {tonexparam.ReverbPlateMix, kindLinear},
	80: {tonexparam.ReverbSpring4Time, kindLinear},
	81: {tonexparam.ReverbSpring4Predelay, kindLinear},
	82: {tonexparam.ReverbSpring4Color, kindLinear},
	83: {tonexparam.ReverbSpring4Mix, kindLinear},
	84: {tonexparam.ReverbPosition, kindBoolean},
	85: {tonexparam.ReverbModel, kindRawValue},

	// 86/87 are preset-navigation CCs, handled by Navigate, not Convert.

	91: {tonexparam.DelayTapeSync, kindBoolean},
	92: {tonexparam.DelayTapeTime, kindLinear},
	93: {tonexparam.DelayTapeFeedback, kindLinear},
	94: {tonexparam.DelayTapeMode, kindThreshold64},
	95: {tonexparam.DelayTapeMix, kindLinear},

	102: {tonexparam.ModelGain, kindLinear},
	103: {tonexparam.ModelVolume, kindLinear},
	104: {tonexparam.ModelMix, kindLinear},
}

// NavPrevCC and NavNextCC are the CC numbers that drive preset navigation rather
// than a parameter write.
const (
	NavPrevCC uint8 = 86
	NavNextCC uint8 = 87
)

// Navigate reports whether cc is a navigation CC and, if so, which command
// kind it produces.
func Navigate(cc uint8) (controller.CmdKind, bool) {
	switch cc {
	case NavPrevCC:
		return controller.CmdPrevPreset, true
	case NavNextCC:
		return controller.CmdNextPreset, true
	default:
		return 0, false
	}
}

// ConverterFunc is the shape of Mapper.Convert, kept as a standalone type so
// blemidi can accept either a *Mapper's Convert method or a test stub
// without depending on this package's concrete type. pkg/footswitch takes
// its own CCConverter interface instead.
type ConverterFunc func(cc uint8, value uint8) (tonexparam.Index, float32, bool)

// Mapper converts MIDI CC events into tonexparam writes against a live
// table, so linear scaling always uses the table's actual min/max.
type Mapper struct {
	table *tonexparam.Table
}

// NewMapper returns a Mapper that scales against table.
func NewMapper(table *tonexparam.Table) *Mapper {
	return &Mapper{table: table}
}

// Convert implements footswitch.CCConverter and is the single entry point
// footswitch and blemidi use to turn a CC event into a parameter write.
func (m *Mapper) Convert(cc uint8, value uint8) (tonexparam.Index, float32, bool) {
	e, ok := mapping[cc]
	if !ok {
		return 0, 0, false
	}

	var raw float32
	switch e.kind {
	case kindBoolean:
		raw = booleanToFloat(value)
	case kindRawValue:
		raw = float32(value)
	case kindThreshold64:
		if value == 64 {
			raw = 1
		} else {
			raw = 0
		}
	case kindLinear:
		min, max, err := m.table.GetMinMax(e.param)
		if err != nil {
			return 0, 0, false
		}
		raw = min + (float32(value)/127.0)*(max-min)
	}

	clamped, err := m.table.Clamp(e.param, raw)
	if err != nil {
		return 0, 0, false
	}
	return e.param, clamped, true
}

// booleanToFloat matches midi_helper_boolean_midi_to_float: only CC value
// 127 is "true".
func booleanToFloat(value uint8) float32 {
	if value == 127 {
		return 1
	}
	return 0
}
