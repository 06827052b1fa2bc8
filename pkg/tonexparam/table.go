// Package tonexparam holds the canonical Tonex One effect-parameter table:
// the 109 (94 named parameters plus 15 reserved UNK slots) {value,min,max,name} records
// the pedal exposes per preset, along with the mutex-guarded access pattern
// MIDI-driven writes and pedal-response writes race over.
package tonexparam

import (
	"errors"
	"sync"
)

// ErrInvalidParamIndex is returned by any lookup or mutation given an index
// outside [0, NumParams).
var ErrInvalidParamIndex = errors.New("tonexparam: invalid parameter index")

// Index names every parameter slot, in on-wire order. The pedal streams
// parameter values in exactly this order after the BA 03 BA 6D marker.
type Index int

const (
	NoiseGatePost Index = iota
	NoiseGateEnable
	NoiseGateThreshold
	NoiseGateRelease
	NoiseGateDepth

	CompPost
	CompEnable
	CompThreshold
	CompMakeUp
	CompAttack

	EQPost
	EQBass
	EQBassFreq
	EQMid
	EQMidQ
	EQMidFreq
	EQTreble
	EQTrebleFreq

	Unknown1
	Unknown2
	ModelGain
	ModelVolume
	ModelMix
	Unknown3
	Unknown4
	Unknown5
	Unknown6
	Unknown7
	Unknown8
	Unknown9
	Unknown10
	Unknown11
	Unknown12
	Unknown13
	Unknown14
	Unknown15

	ReverbPosition
	ReverbEnable
	ReverbModel
	ReverbSpring1Time
	ReverbSpring1Predelay
	ReverbSpring1Color
	ReverbSpring1Mix
	ReverbSpring2Time
	ReverbSpring2Predelay
	ReverbSpring2Color
	ReverbSpring2Mix
	ReverbSpring3Time
	ReverbSpring3Predelay
	ReverbSpring3Color
	ReverbSpring3Mix
	ReverbSpring4Time
	ReverbSpring4Predelay
	ReverbSpring4Color
	ReverbSpring4Mix
	ReverbRoomTime
	ReverbRoomPredelay
	ReverbRoomColor
	ReverbRoomMix
	ReverbPlateTime
	ReverbPlatePredelay
	ReverbPlateColor
	ReverbPlateMix

	ModulationPost
	ModulationEnable
	ModulationModel
	ChorusSync
	ChorusTS
	ChorusRate
	ChorusDepth
	ChorusLevel
	TremoloSync
	TremoloTS
	TremoloRate
	TremoloShape
	TremoloSpread
	TremoloLevel
	PhaserSync
	PhaserTS
	PhaserRate
	PhaserDepth
	PhaserLevel
	FlangerSync
	FlangerTS
	FlangerRate
	FlangerDepth
	FlangerFeedback
	FlangerLevel
	RotarySync
	RotaryTS
	RotarySpeed
	RotaryRadius
	RotarySpread
	RotaryLevel

	DelayPost
	DelayEnable
	DelayModel
	DelayDigitalSync
	DelayDigitalTS
	DelayDigitalTime
	DelayDigitalFeedback
	DelayDigitalMode
	DelayDigitalMix
	DelayTapeSync
	DelayTapeTS
	DelayTapeTime
	DelayTapeFeedback
	DelayTapeMode
	DelayTapeMix

	NumParams
)

// Param is one entry of the parameter table: a semantic clamp [Min,Max]
// around the current Value, plus a short display Name.
type Param struct {
	Value float32
	Min   float32
	Max   float32
	Name  string
}

// defaults is the factory table, built once and copied into every new
// Table. Values mirror the pedal firmware's compiled-in defaults; they are
// overwritten wholesale on every preset-details response.
var defaults = [NumParams]Param{
	NoiseGatePost:      {0, 0, 1, "NG POST"},
	NoiseGateEnable:    {1, 0, 1, "NG POWER"},
	NoiseGateThreshold: {-64, -100, 0, "NG THRESH"},
	NoiseGateRelease:   {20, 5, 500, "NG REL"},
	NoiseGateDepth:     {-60, -100, -20, "NG DEPTH"},

	CompPost:      {1, 0, 1, "COMP POST"},
	CompEnable:    {0, 0, 1, "COMP POWER"},
	CompThreshold: {-14, -40, 0, "COMP THRESH"},
	CompMakeUp:    {-12, -30, 10, "COMP GAIN"},
	CompAttack:    {14, 1, 51, "COMP ATTACK"},

	EQPost:      {0, 0, 1, "EQ POST"},
	EQBass:      {5, 0, 10, "EQ BASS"},
	EQBassFreq:  {300, 75, 600, "EQ BFREQ"},
	EQMid:       {5, 0, 10, "EQ MID"},
	EQMidQ:      {0.7, 0.2, 3.0, "EQ MIDQ"},
	EQMidFreq:   {750, 150, 500, "EQ MFREQ"},
	EQTreble:    {5, 0, 10, "EQ TREBLE"},
	EQTrebleFreq: {1900, 1000, 4000, "EQ TFREQ"},

	Unknown1:    {0, 0, 1, "UNK 1"},
	Unknown2:    {0, 0, 1, "UNK 2"},
	ModelGain:   {5, 0, 10, "MDL GAIN"},
	ModelVolume: {5, 0, 10, "MDL VOL"},
	ModelMix:    {100, 0, 100, "MDL MIX"},
	Unknown3:    {0, 0, 0, "UNK 3"},
	Unknown4:    {0, 0, 0, "UNK 4"},
	Unknown5:    {0, 0, 0, "UNK 5"},
	Unknown6:    {0, 0, 0, "UNK 6"},
	Unknown7:    {0, 0, 0, "UNK 7"},
	Unknown8:    {0, 0, 0, "UNK 8"},
	Unknown9:    {0, 0, 0, "UNK 9"},
	Unknown10:   {0, 0, 0, "UNK 10"},
	Unknown11:   {0, 0, 0, "UNK 11"},
	Unknown12:   {0, 0, 0, "UNK 12"},
	Unknown13:   {0, 0, 0, "UNK 13"},
	Unknown14:   {0, 0, 0, "UNK 14"},
	Unknown15:   {0, 0, 0, "UNK 15"},

	ReverbPosition:        {0, 0, 1, "RVB POS"},
	ReverbEnable:          {1, 0, 1, "RVB POWER"},
	ReverbModel:           {0, 0, 5, "RVB MODEL"},
	ReverbSpring1Time:     {5, 0, 10, "RVB S1 T"},
	ReverbSpring1Predelay: {0, 0, 500, "RVB S1 P"},
	ReverbSpring1Color:    {0, -10, 10, "RVB S1 C"},
	ReverbSpring1Mix:      {0, 0, 100, "RVB S1 M"},
	ReverbSpring2Time:     {5, 0, 10, "RVB S2 T"},
	ReverbSpring2Predelay: {0, 0, 500, "RVB S2 P"},
	ReverbSpring2Color:    {0, -10, 10, "RVB S2 C"},
	ReverbSpring2Mix:      {0, 0, 100, "RVB S2 M"},
	ReverbSpring3Time:     {5, 0, 10, "RVB S3 T"},
	ReverbSpring3Predelay: {0, 0, 500, "RVB S3 P"},
	ReverbSpring3Color:    {0, -10, 10, "RVB S3 C"},
	ReverbSpring3Mix:      {0, 0, 100, "RVB S3 M"},
	ReverbSpring4Time:     {5, 0, 10, "RVB S4 T"},
	ReverbSpring4Predelay: {0, 0, 500, "RVB S4 P"},
	ReverbSpring4Color:    {0, -10, 10, "RVB S4 C"},
	ReverbSpring4Mix:      {0, 0, 100, "RVB S4 M"},
	ReverbRoomTime:        {5, 0, 10, "RVB RM T"},
	ReverbRoomPredelay:    {0, 0, 500, "RVB RM P"},
	ReverbRoomColor:       {0, -10, 10, "RVB RM C"},
	ReverbRoomMix:         {0, 0, 100, "RVB RM M"},
	ReverbPlateTime:       {5, 0, 10, "RVB PL T"},
	ReverbPlatePredelay:   {0, 0, 500, "RVB PL P"},
	ReverbPlateColor:      {0, -10, 10, "RVB PL C"},
	ReverbPlateMix:        {0, 0, 100, "RVB PL M"},

	ModulationPost:   {0, 0, 1, "MOD POST"},
	ModulationEnable: {0, 0, 1, "MOD POWER"},
	ModulationModel:  {0, 0, 4, "MOD MODEL"},
	ChorusSync:       {0, 0, 1, "MOD CH S"},
	ChorusTS:         {0, 0, 1, "MOD CH T"},
	ChorusRate:       {0.5, 0.1, 10, "MOD CH R"},
	ChorusDepth:      {0, 0, 100, "MOD CH D"},
	ChorusLevel:      {0, 0, 10, "MOD CH L"},
	TremoloSync:      {0, 0, 1, "MOD TR S"},
	TremoloTS:        {0, 0, 1, "MOD TR T"},
	TremoloRate:      {0.5, 0.1, 10, "MOD TR R"},
	TremoloShape:     {0, 0, 10, "MOD TR P"},
	TremoloSpread:    {0, 0, 100, "MOD TR D"},
	TremoloLevel:     {0, 0, 10, "MOD TR L"},
	PhaserSync:       {0, 0, 1, "MOD PH S"},
	PhaserTS:         {0, 0, 1, "MOD PH T"},
	PhaserRate:       {0.5, 0.1, 10, "MOD PH R"},
	PhaserDepth:      {0, 0, 100, "MOD PH D"},
	PhaserLevel:      {0, 0, 10, "MOD PH L"},
	FlangerSync:      {0, 0, 1, "MOD FL S"},
	FlangerTS:        {0, 0, 1, "MOD FL T"},
	FlangerRate:      {0.5, 0.1, 10, "MOD FL R"},
	FlangerDepth:     {0, 0, 100, "MOD FL D"},
	FlangerFeedback:  {0, 0, 100, "MOD FL F"},
	FlangerLevel:     {0, 0, 10, "MOD FL L"},
	RotarySync:       {0, 0, 1, "MOD RO S"},
	RotaryTS:         {0, 0, 1, "MOD RO T"},
	RotarySpeed:      {0, 0, 400, "MOD RO S"},
	RotaryRadius:     {0, 0, 300, "MOD RO R"},
	RotarySpread:     {0, 0, 100, "MOD RO D"},
	RotaryLevel:      {0, 0, 10, "MOD RO L"},

	DelayPost:            {0, 0, 1, "DLY POST"},
	DelayEnable:          {0, 0, 1, "DLY POWER"},
	DelayModel:           {0, 0, 1, "DLY MODEL"},
	DelayDigitalSync:     {0, 0, 1, "DLY DG S"},
	DelayDigitalTS:       {0, 0, 1000, "DLY DG T"},
	DelayDigitalTime:     {0, 0, 1, "DLY DT M"},
	DelayDigitalFeedback: {0, 0, 100, "DLY DT F"},
	DelayDigitalMode:     {0, 0, 1, "DLY DT O"},
	DelayDigitalMix:      {0, 0, 100, "DLY DT X"},
	DelayTapeSync:        {0, 0, 1, "DLY TA S"},
	DelayTapeTS:          {0, 0, 1, "DLY TA T"},
	DelayTapeTime:        {0, 0, 1000, "DLY TA M"},
	DelayTapeFeedback:    {0, 0, 100, "DLY TA F"},
	DelayTapeMode:        {0, 0, 1, "DLY TA O"},
	DelayTapeMix:         {0, 0, 100, "DLY TA X"},
}

// Table is the process-wide parameter store. MIDI-driven writes and
// pedal-response writes race over it, hence the mutex.
type Table struct {
	mu     sync.Mutex
	params [NumParams]Param
}

// NewTable returns a Table seeded with factory defaults.
func NewTable() *Table {
	t := &Table{}
	t.params = defaults
	return t
}

// Locked runs fn with the table's mutex held, for callers that need to read
// or write several parameters atomically.
func (t *Table) Locked(fn func(params *[NumParams]Param)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.params)
}

// Get returns a copy of the parameter at index.
func (t *Table) Get(index Index) (Param, error) {
	if index < 0 || index >= NumParams {
		return Param{}, ErrInvalidParamIndex
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params[index], nil
}

// GetMinMax returns the semantic clamp range for index.
func (t *Table) GetMinMax(index Index) (min, max float32, err error) {
	p, err := t.Get(index)
	if err != nil {
		return 0, 0, err
	}
	return p.Min, p.Max, nil
}

// Clamp constrains v to [min,max] for index.
func (t *Table) Clamp(index Index, v float32) (float32, error) {
	min, max, err := t.GetMinMax(index)
	if err != nil {
		return 0, err
	}
	return clamp(v, min, max), nil
}

// Set overwrites the value at index, clamping to the parameter's range, and
// returns the clamped value actually stored.
func (t *Table) Set(index Index, v float32) (float32, error) {
	if index < 0 || index >= NumParams {
		return 0, ErrInvalidParamIndex
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &t.params[index]
	p.Value = clamp(v, p.Min, p.Max)
	return p.Value, nil
}

// SetAll replaces the whole table (used when a preset-details response
// streams N_PARAMS fresh values in wire order).
func (t *Table) SetAll(values [NumParams]float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.params {
		t.params[i].Value = values[i]
	}
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
