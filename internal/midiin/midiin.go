// internal/midiin/midiin.go
// Package midiin delivers note-on events from a MIDI input device to the
// practice session's answer path.
package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrNoInputs indicates no MIDI input port is available.
var ErrNoInputs = errors.New("no MIDI input ports available")

// NoteOnFunc receives every note-on as a raw status/note/velocity triple,
// matching the session's wire contract.
type NoteOnFunc func(status, note, velocity byte)

// IsNoteOn reports whether a raw status/velocity pair is a note-on. A
// note-on with velocity zero is a note-off in disguise and does not count.
func IsNoteOn(status, velocity byte) bool {
	return status&0xF0 == 0x90 && velocity > 0
}

// Input owns one open MIDI input port and forwards its note-ons.
type Input struct {
	mu     sync.Mutex
	drv    *rtmididrv.Driver
	port   drivers.In
	stopFn func()
	onNote NoteOnFunc
	log    *slog.Logger
}

// New initialises the rtmidi driver. Call Close when done.
func New(onNote NoteOnFunc) (*Input, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Input{
		drv:    drv,
		onNote: onNote,
		log:    slog.Default(),
	}, nil
}

// Ports lists the names of available input ports.
func (in *Input) Ports() ([]string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.drv == nil {
		return nil, ErrNoInputs
	}
	ins, err := in.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, p := range ins {
		names = append(names, p.String())
	}
	return names, nil
}

// Open connects to the input port at the given index, or the first
// available port when index is negative.
func (in *Input) Open(index int) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.drv == nil {
		return ErrNoInputs
	}
	ins, err := in.drv.Ins()
	if err != nil {
		return fmt.Errorf("list MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		return ErrNoInputs
	}
	if index < 0 {
		index = 0
	}
	if index >= len(ins) {
		return fmt.Errorf("MIDI port index %d out of range (have %d ports)", index, len(ins))
	}

	port := ins[index]
	if err := port.Open(); err != nil {
		return fmt.Errorf("open %q: %w", port.String(), err)
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			in.log.Debug("midi note on", "key", key, "vel", vel)
			in.onNote(0x90|ch, key, vel)
		}
	}, midi.HandleError(func(listenErr error) {
		in.log.Warn("midi listener error", "err", listenErr)
	}))
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("listen %q: %w", port.String(), err)
	}

	in.port = port
	in.stopFn = stop
	in.log.Info("midi connected", "port", port.String())
	return nil
}

// Close shuts down the active connection and the driver. Idempotent.
func (in *Input) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.stopFn != nil {
		in.stopFn()
		in.stopFn = nil
	}
	if in.port != nil {
		_ = in.port.Close()
		in.port = nil
	}
	if in.drv != nil {
		in.drv.Close()
		in.drv = nil
	}
}
