// Package controller holds the footctl daemon's owned, in-memory core
// state: the current preset/bypass/USB-BT status, a bounded command queue
// fed by footswitches/MIDI/UI, and a non-blocking observer fan-out so any
// number of front ends can mirror state changes.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tonexone/footctl/pkg/logging"
	"github.com/tonexone/footctl/pkg/pedal"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

var logControl = logging.New("Control")

// MaxPresets mirrors pedal.MaxPresets.
const MaxPresets = pedal.MaxPresets

// CmdKind tags the payload carried by a Cmd.
type CmdKind int

const (
	CmdSetPreset CmdKind = iota
	CmdNextPreset
	CmdPrevPreset
	CmdModifyParam
	CmdSetAmpSkin
	CmdSetUserText
)

// Cmd is one request for the controller to act on. Only the fields
// relevant to Kind are populated.
type Cmd struct {
	Kind        CmdKind
	PresetIndex uint16
	ParamIndex  tonexparam.Index
	ParamValue  float32
	SkinIndex   uint16
	Text        string
}

// CoreState is the controller's owned view of the pedal, mirrored from
// state-update/preset-details messages and local command effects.
type CoreState struct {
	PresetIndex uint32
	PresetName  string
	USBStatus   bool
	BTStatus    bool
}

// PresetSender is the narrow surface the controller needs from the pedal
// session to act on preset/parameter commands, kept as an interface so the
// controller can be tested without a real USB device.
type PresetSender interface {
	SetPresetInSlotWithPolicy(ctx context.Context, preset uint16, slot pedal.Slot, selectSlot bool, doubleToggle pedal.BypassPolicy) error
	ModifyParameter(ctx context.Context, index tonexparam.Index, value float32) error
}

var (
	ErrPresetOutOfRange = errors.New("controller: preset index out of range")
	ErrQueueFull        = errors.New("controller: command queue full")
)

// Controller owns CoreState and the per-preset UserData table, dispatches
// queued Cmds against a PresetSender, and fans state changes out to
// subscribed observers without ever blocking on a slow one.
type Controller struct {
	mu    sync.Mutex
	state CoreState
	users *UserData
	cfg   *liveConfig

	queue chan Cmd

	obsMu     sync.Mutex
	observers map[string]chan CoreState
}

// New returns a Controller with a bounded (10) command queue, matching the
// firmware's control_input_queue depth class.
func New(users *UserData, cfg *Config) *Controller {
	return &Controller{
		users:     users,
		cfg:       newLiveConfig(cfg),
		queue:     make(chan Cmd, 10),
		observers: make(map[string]chan CoreState),
	}
}

// Config returns a snapshot of the running configuration.
func (c *Controller) Config() Config {
	return c.cfg.Get()
}

// UpdateConfig applies fn to the running configuration under lock.
func (c *Controller) UpdateConfig(fn func(*Config)) {
	c.cfg.Set(fn)
}

// State returns a copy of the current core state.
func (c *Controller) State() CoreState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Enqueue submits a command for processing, returning ErrQueueFull rather
// than blocking if the queue is saturated.
func (c *Controller) Enqueue(cmd Cmd) error {
	select {
	case c.queue <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Observe registers a new observer channel and returns its id plus an
// unsubscribe function. The channel is buffered (1); a send that would
// block instead drops the update, matching the "no observer may block the
// consumer" invariant.
func (c *Controller) Observe() (string, <-chan CoreState, func()) {
	id := uuid.NewString()
	ch := make(chan CoreState, 1)

	c.obsMu.Lock()
	c.observers[id] = ch
	c.obsMu.Unlock()

	unsubscribe := func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}

	return id, ch, unsubscribe
}

func (c *Controller) notify() {
	state := c.State()

	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for _, ch := range c.observers {
		select {
		case ch <- state:
		default:
			// Observer hasn't drained its last update; drop this one
			// rather than block the dispatch loop.
		}
	}
}

// Run drains the command queue against sender until ctx is cancelled. A
// command whose dispatch fails is logged and dropped.
func (c *Controller) Run(ctx context.Context, sender PresetSender) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.queue:
			if err := c.dispatch(ctx, sender, cmd); err != nil {
				logControl.Errorf("dispatch: %v", err)
			}
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, sender PresetSender, cmd Cmd) error {
	switch cmd.Kind {
	case CmdSetPreset:
		if cmd.PresetIndex >= MaxPresets {
			return ErrPresetOutOfRange
		}
		if err := sender.SetPresetInSlotWithPolicy(ctx, cmd.PresetIndex, pedal.SlotC, true, c.doubleTogglePolicy); err != nil {
			return err
		}
		c.setPresetIndex(uint32(cmd.PresetIndex))

	case CmdNextPreset:
		next := c.state.PresetIndex + 1
		if next >= MaxPresets {
			next = MaxPresets - 1
		}
		if err := sender.SetPresetInSlotWithPolicy(ctx, uint16(next), pedal.SlotC, true, c.doubleTogglePolicy); err != nil {
			return err
		}
		c.setPresetIndex(next)

	case CmdPrevPreset:
		c.mu.Lock()
		current := c.state.PresetIndex
		c.mu.Unlock()
		var prev uint32
		if current > 0 {
			prev = current - 1
		}
		if err := sender.SetPresetInSlotWithPolicy(ctx, uint16(prev), pedal.SlotC, true, c.doubleTogglePolicy); err != nil {
			return err
		}
		c.setPresetIndex(prev)

	case CmdModifyParam:
		if err := sender.ModifyParameter(ctx, cmd.ParamIndex, cmd.ParamValue); err != nil {
			return err
		}

	case CmdSetAmpSkin:
		c.mu.Lock()
		idx := c.state.PresetIndex
		c.mu.Unlock()
		c.users.SetSkinIndex(idx, cmd.SkinIndex)

	case CmdSetUserText:
		c.mu.Lock()
		idx := c.state.PresetIndex
		c.mu.Unlock()
		c.users.SetDescription(idx, cmd.Text)
	}

	c.notify()
	return nil
}

func (c *Controller) doubleTogglePolicy() bool {
	return c.cfg.Get().DoubleToggleBypass()
}

func (c *Controller) setPresetIndex(idx uint32) {
	c.mu.Lock()
	c.state.PresetIndex = idx
	c.mu.Unlock()
}

// SetPresetDetails updates the name shown for the active preset, mirroring
// EVENT_SET_PRESET_DETAILS.
func (c *Controller) SetPresetDetails(index uint32, name string) {
	c.mu.Lock()
	c.state.PresetIndex = index
	c.state.PresetName = name
	c.mu.Unlock()
	c.notify()
}

// SetUSBStatus mirrors EVENT_SET_USB_STATUS.
func (c *Controller) SetUSBStatus(connected bool) {
	c.mu.Lock()
	c.state.USBStatus = connected
	c.mu.Unlock()
	c.notify()
}

// SetBTStatus mirrors EVENT_SET_BT_STATUS.
func (c *Controller) SetBTStatus(connected bool) {
	c.mu.Lock()
	c.state.BTStatus = connected
	c.mu.Unlock()
	c.notify()
}

