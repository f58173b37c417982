// Package midiin connects a hardware MIDI keyboard to a NoteSink.
// Unlike the terminal piano it gets real key-release events, so notes
// hold for as long as the player holds them.
package midiin

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/scpilot/scpilot/internal/synth"
)

// excludedPatterns lists virtual/system ports that are never picked
// when auto-selecting an input.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// Input reads note events from one MIDI input port and forwards them
// to a NoteSink. The MIDI pitch doubles as the note ID, so a held key
// always releases the note it started.
type Input struct {
	sink synth.NoteSink

	mu     sync.Mutex
	drv    *rtmididrv.Driver
	port   drivers.In
	stopFn func()
}

// Open initialises the MIDI driver and connects to the input whose
// name contains pattern (case-insensitive). An empty pattern picks the
// first non-virtual input. Call Close when done.
func Open(sink synth.NoteSink, pattern string) (*Input, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	in := &Input{sink: sink, drv: drv}
	if err := in.connect(pattern); err != nil {
		drv.Close()
		return nil, err
	}
	return in, nil
}

// Close stops listening and shuts down the driver.
func (i *Input) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopFn != nil {
		i.stopFn()
		i.stopFn = nil
	}
	if i.port != nil {
		_ = i.port.Close()
		i.port = nil
	}
	i.drv.Close()
}

// Port is the name of the connected input.
func (i *Input) Port() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.port == nil {
		return ""
	}
	return i.port.String()
}

func (i *Input) connect(pattern string) error {
	ins, err := i.drv.Ins()
	if err != nil {
		return fmt.Errorf("list inputs: %w", err)
	}

	var found drivers.In
	for _, in := range ins {
		name := in.String()
		if excluded(name) {
			continue
		}
		if pattern == "" || containsCI(name, pattern) {
			found = in
			break
		}
	}
	if found == nil {
		if pattern == "" {
			return fmt.Errorf("no MIDI inputs available")
		}
		return fmt.Errorf("no MIDI input matching %q", pattern)
	}

	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", found.String(), err)
	}

	stop, err := midi.ListenTo(found, i.onMessage, midi.HandleError(func(listenErr error) {
		log.Printf("midiin: listener error: %v", listenErr)
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", found.String(), err)
	}

	i.port = found
	i.stopFn = stop
	log.Printf("midiin: connected to %s", found.String())
	return nil
}

func (i *Input) onMessage(msg midi.Message, _ int32) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if err := i.sink.NoteOn(int(key), float64(key), float64(vel)/127); err != nil {
			log.Printf("midiin: note on %d: %v", key, err)
		}
	case msg.GetNoteEnd(&ch, &key):
		if err := i.sink.NoteOff(int(key)); err != nil {
			log.Printf("midiin: note off %d: %v", key, err)
		}
	}
}

func excluded(name string) bool {
	for _, pat := range excludedPatterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
