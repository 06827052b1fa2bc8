package controller

import (
	"context"
	"testing"
	"time"

	"github.com/tonexone/footctl/pkg/pedal"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

type fakeSender struct {
	presets []uint16
	slots   []pedal.Slot
	params  []tonexparam.Index
	values  []float32
	failErr error
}

func (f *fakeSender) SetPresetInSlotWithPolicy(ctx context.Context, preset uint16, slot pedal.Slot, selectSlot bool, doubleToggle pedal.BypassPolicy) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.presets = append(f.presets, preset)
	f.slots = append(f.slots, slot)
	return nil
}

func (f *fakeSender) ModifyParameter(ctx context.Context, index tonexparam.Index, value float32) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.params = append(f.params, index)
	f.values = append(f.values, value)
	return nil
}

func runOne(t *testing.T, c *Controller, sender PresetSender, cmd Cmd) {
	t.Helper()
	if err := c.Enqueue(cmd); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := c.dispatch(ctx, sender, cmd); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func TestSetPresetDispatchesAndUpdatesState(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	runOne(t, c, sender, Cmd{Kind: CmdSetPreset, PresetIndex: 5})

	if len(sender.presets) != 1 || sender.presets[0] != 5 {
		t.Fatalf("expected preset 5 sent, got %v", sender.presets)
	}
	if c.State().PresetIndex != 5 {
		t.Fatalf("expected state preset index 5, got %d", c.State().PresetIndex)
	}
}

func TestSetPresetRejectsOutOfRange(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	err := c.dispatch(context.Background(), sender, Cmd{Kind: CmdSetPreset, PresetIndex: MaxPresets})
	if err != ErrPresetOutOfRange {
		t.Fatalf("expected ErrPresetOutOfRange, got %v", err)
	}
}

func TestNextPresetClampsAtMax(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	c.setPresetIndex(MaxPresets - 1)
	if err := c.dispatch(context.Background(), sender, Cmd{Kind: CmdNextPreset}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if c.State().PresetIndex != MaxPresets-1 {
		t.Fatalf("expected clamp at %d, got %d", MaxPresets-1, c.State().PresetIndex)
	}
}

func TestPrevPresetClampsAtZero(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	if err := c.dispatch(context.Background(), sender, Cmd{Kind: CmdPrevPreset}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if c.State().PresetIndex != 0 {
		t.Fatalf("expected clamp at 0, got %d", c.State().PresetIndex)
	}
}

func TestModifyParamDispatchesToSender(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	cmd := Cmd{Kind: CmdModifyParam, ParamIndex: tonexparam.EQBass, ParamValue: 7}
	if err := c.dispatch(context.Background(), sender, cmd); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.params) != 1 || sender.params[0] != tonexparam.EQBass || sender.values[0] != 7 {
		t.Fatalf("unexpected sender state: %+v", sender)
	}
}

func TestEnqueueReturnsErrQueueFullWhenSaturated(t *testing.T) {
	c := New(NewUserData(), Default())
	for i := 0; i < 10; i++ {
		if err := c.Enqueue(Cmd{Kind: CmdNextPreset}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	if err := c.Enqueue(Cmd{Kind: CmdNextPreset}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestObserveReceivesNonBlockingUpdates(t *testing.T) {
	c := New(NewUserData(), Default())
	_, ch, unsubscribe := c.Observe()
	defer unsubscribe()

	c.SetUSBStatus(true)

	select {
	case state := <-ch:
		if !state.USBStatus {
			t.Fatalf("expected USBStatus true in observed state")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for observer update")
	}
}

func TestObserveDropsUpdateWhenChannelFull(t *testing.T) {
	c := New(NewUserData(), Default())
	_, _, unsubscribe := c.Observe()
	defer unsubscribe()

	// Fill the buffered channel, then fire more updates than capacity;
	// notify must not block even though nothing is draining the channel.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			c.SetBTStatus(i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("notify blocked on a full observer channel")
	}
}

func TestUserDataRoundTripsThroughController(t *testing.T) {
	c := New(NewUserData(), Default())
	sender := &fakeSender{}

	c.setPresetIndex(3)
	runOne(t, c, sender, Cmd{Kind: CmdSetAmpSkin, SkinIndex: 2})
	runOne(t, c, sender, Cmd{Kind: CmdSetUserText, Text: "Crunch"})

	if c.users.SkinIndex(3) != 2 {
		t.Fatalf("expected skin index 2, got %d", c.users.SkinIndex(3))
	}
	if c.users.Description(3) != "Crunch" {
		t.Fatalf("expected description Crunch, got %q", c.users.Description(3))
	}
}
