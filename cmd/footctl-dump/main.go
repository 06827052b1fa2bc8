// footctl-dump connects to a Tonex One pedal, waits for its handshake to
// settle, and dumps the resulting state/preset/parameter snapshot to JSON,
// either to a file or to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"

	"github.com/tonexone/footctl/pkg/pedal"
	"github.com/tonexone/footctl/pkg/tonexparam"
)

var (
	outputFile = flag.String("o", "", "Output file path (default: stdout)")
	timeout    = flag.Duration("timeout", 5*time.Second, "How long to wait for the pedal to reach the ready state")
	verbose    = flag.Bool("v", false, "Verbose output")
)

type paramDump struct {
	Name  string  `json:"name"`
	Value float32 `json:"value"`
	Min   float32 `json:"min"`
	Max   float32 `json:"max"`
}

type snapshot struct {
	State  string      `json:"state"`
	Params []paramDump `json:"params"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Dump a Tonex One pedal's current state/parameters to JSON\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	if *verbose {
		fmt.Fprintln(os.Stderr, "Opening Tonex One pedal...")
	}
	session, err := pedal.Open(usbCtx)
	if err != nil {
		return fmt.Errorf("open pedal: %w", err)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := session.StartHandshake(ctx); err != nil {
		return fmt.Errorf("start handshake: %w", err)
	}

	if *verbose {
		fmt.Fprintln(os.Stderr, "Waiting for pedal to reach ready state...")
	}
	if err := waitForReady(ctx, session); err != nil {
		return err
	}

	snap := buildSnapshot(session)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if *outputFile == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(*outputFile, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", *outputFile, err)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Snapshot saved to: %s\n", *outputFile)
	}
	return nil
}

func waitForReady(ctx context.Context, session *pedal.Session) error {
	for {
		if session.State() == pedal.StateReady {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("pedal did not reach ready state: %w", ctx.Err())
		default:
		}

		frames, err := session.ReadOnce(ctx, 200*time.Millisecond)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		for _, raw := range frames {
			if err := session.HandleFrame(ctx, raw); err != nil {
				return fmt.Errorf("handle frame: %w", err)
			}
		}
	}
}

func buildSnapshot(session *pedal.Session) snapshot {
	snap := snapshot{State: session.State().String()}

	session.Params.Locked(func(params *[tonexparam.NumParams]tonexparam.Param) {
		snap.Params = make([]paramDump, tonexparam.NumParams)
		for i, p := range params {
			snap.Params[i] = paramDump{Name: p.Name, Value: p.Value, Min: p.Min, Max: p.Max}
		}
	})

	return snap
}
