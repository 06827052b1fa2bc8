// Package serialmidi ingests Program Change messages from a 31250 baud MIDI
// UART, matching midi_serial.c's channel-filtered scan; other messages,
// Control Change included, are skipped.
package serialmidi

import (
	"context"
	"io"
	"log"

	"github.com/ZachMassia/goserial"

	"github.com/tonexone/footctl/pkg/controller"
)

// BaudRate is the MIDI 1.0 serial transport rate.
const BaudRate = 31250

// bufferSize mirrors MIDI_SERIAL_BUFFER_SIZE.
const bufferSize = 128

// realtimeThreshold is the first status byte value treated as a MIDI
// realtime message and ignored outright.
const realtimeThreshold = 0xF8

// programChangeStatus is the high nibble of a Program Change status byte.
const programChangeStatus = 0xC0

// Open opens device at BaudRate 8N1, matching the UART config midi_serial.c
// installs (parity none, 1 stop bit, no flow control).
func Open(device string) (io.ReadWriteCloser, error) {
	cfg := &serial.Config{Name: device, Baud: BaudRate}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Scan walks one read chunk and returns the Cmds it produces. Only Program
// Change messages addressed to channel are acted on; realtime bytes
// (>= 0xF8) are dropped, and any other status byte's message is skipped by
// advancing to the next status byte, exactly matching the original buffer
// scan (no state is carried across calls — a Program Change status byte
// split across two reads is missed, the same limitation the firmware has).
func Scan(data []byte, channel uint8) []controller.Cmd {
	var cmds []controller.Cmd

	for i := 0; i < len(data); i++ {
		b := data[i]

		if b >= realtimeThreshold {
			continue
		}

		if b&0xF0 == programChangeStatus {
			msgChannel := b & 0x0F
			if i+1 >= len(data) {
				log.Println("serialmidi: incomplete Program Change at end of buffer")
				break
			}
			programNumber := data[i+1]
			if msgChannel == channel {
				cmds = append(cmds, controller.Cmd{Kind: controller.CmdSetPreset, PresetIndex: uint16(programNumber)})
			}
			i++
			continue
		}

		if b&0x80 != 0 {
			// Status byte for a message we don't act on: skip its data
			// bytes by advancing to the next status byte.
			for i+1 < len(data) && data[i+1]&0x80 == 0 {
				i++
			}
		}
	}

	return cmds
}

// CmdSink is the narrow surface Run needs to deliver produced commands.
type CmdSink interface {
	Enqueue(controller.Cmd) error
}

// Run reads from port in chunks of up to bufferSize-1 bytes until ctx is
// cancelled, scanning each chunk for channel's Program Change messages and
// enqueuing the resulting Cmds into sink.
func Run(ctx context.Context, port io.Reader, channel uint8, sink CmdSink) error {
	buf := make([]byte, bufferSize-1)
	done := make(chan struct{})
	defer close(done)

	reads := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		for {
			n, err := port.Read(buf)
			if err != nil {
				errs <- err
				return
			}
			if n == 0 {
				continue
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case reads <- chunk:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case chunk := <-reads:
			for _, cmd := range Scan(chunk, channel) {
				_ = sink.Enqueue(cmd)
			}
		}
	}
}
