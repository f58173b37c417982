// Package synth is a thin dispatch façade between input controllers
// and the engine session: note events and parameter writes go in,
// protocol operations come out.
package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/scpilot/scpilot/internal/engine"
)

// NoteSink is the capability an input controller needs: start notes,
// stop notes, and nudge one parameter. Controllers hold a NoteSink by
// reference; binding is passing an implementation, never assigning
// handler functions after the fact.
type NoteSink interface {
	NoteOn(id int, midiNote, velocity float64) error
	NoteOff(id int) error
	SetParam(name string, value float64) error
}

// Synth is the full synthesizer surface: a NoteSink plus lifecycle
// and sequence control.
type Synth interface {
	NoteSink
	Boot(ctx context.Context) error
	Quit()
	Play(name string) error
	Stop(name string) error
	Pause(name string) error
	SetParams(params map[string]float64) error
}

// Controls is the slice of the engine session the façade dispatches
// to. *engine.Engine satisfies it; tests inject fakes.
type Controls interface {
	Boot(ctx context.Context) error
	Quit(force bool)
	NoteOn(id int, midiNote, velocity float64) error
	NoteOff(id int) error
	NdefSet(name string, params ...engine.Param) error
	TdefPlay(name string) error
	TdefStop(name string) error
	TdefPause(name string) error
	TdefSet(name string, params ...engine.Param) error
}

// SCSynth drives a SuperCollider engine session. Parameter names are
// addressed as kind.definition.param, e.g. "ndef.filter.freq".
type SCSynth struct {
	ctrl Controls

	mu     sync.Mutex
	params map[string]float64 // last written value per full param name
}

var _ Synth = (*SCSynth)(nil)

func NewSCSynth(ctrl Controls) *SCSynth {
	return &SCSynth{
		ctrl:   ctrl,
		params: make(map[string]float64),
	}
}

// Boot brings the underlying engine session up.
func (s *SCSynth) Boot(ctx context.Context) error {
	return s.ctrl.Boot(ctx)
}

// Quit shuts the underlying engine session down gracefully.
func (s *SCSynth) Quit() {
	s.ctrl.Quit(false)
}

func (s *SCSynth) NoteOn(id int, midiNote, velocity float64) error {
	return s.ctrl.NoteOn(id, midiNote, velocity)
}

func (s *SCSynth) NoteOff(id int) error {
	return s.ctrl.NoteOff(id)
}

// Play plays or resumes the named sequence.
func (s *SCSynth) Play(name string) error {
	return s.ctrl.TdefPlay(name)
}

// Stop stops the named sequence.
func (s *SCSynth) Stop(name string) error {
	return s.ctrl.TdefStop(name)
}

// Pause pauses the named sequence.
func (s *SCSynth) Pause(name string) error {
	return s.ctrl.TdefPause(name)
}

// SetParam writes one definition parameter. The name carries the
// definition kind, definition name, and parameter, joined by dots:
// SetParam("ndef.filter.freq", 1000).
func (s *SCSynth) SetParam(name string, value float64) error {
	kind, def, param, err := splitParamName(name)
	if err != nil {
		return err
	}
	s.remember(name, value)

	switch kind {
	case "ndef":
		return s.ctrl.NdefSet(def, engine.Param{Name: param, Value: value})
	default:
		return s.ctrl.TdefSet(def, engine.Param{Name: param, Value: value})
	}
}

// SetParams writes several parameters at once, batching values for
// the same definition into a single message.
func (s *SCSynth) SetParams(params map[string]float64) error {
	type target struct {
		kind string
		def  string
	}
	grouped := make(map[target][]engine.Param)
	for name, value := range params {
		kind, def, param, err := splitParamName(name)
		if err != nil {
			return err
		}
		s.remember(name, value)
		key := target{kind, def}
		grouped[key] = append(grouped[key], engine.Param{Name: param, Value: value})
	}

	targets := make([]target, 0, len(grouped))
	for key := range grouped {
		targets = append(targets, key)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].kind != targets[j].kind {
			return targets[i].kind < targets[j].kind
		}
		return targets[i].def < targets[j].def
	})

	for _, key := range targets {
		batch := grouped[key]
		sort.Slice(batch, func(i, j int) bool { return batch[i].Name < batch[j].Name })

		var err error
		switch key.kind {
		case "ndef":
			err = s.ctrl.NdefSet(key.def, batch...)
		default:
			err = s.ctrl.TdefSet(key.def, batch...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Params returns a copy of every parameter written so far.
func (s *SCSynth) Params() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

func (s *SCSynth) remember(name string, value float64) {
	s.mu.Lock()
	s.params[name] = value
	s.mu.Unlock()
}

func splitParamName(name string) (kind, def, param string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("parameter name %q must have the form kind.definition.param", name)
	}
	if parts[0] != "ndef" && parts[0] != "tdef" {
		return "", "", "", fmt.Errorf("parameter %q is neither an ndef nor a tdef parameter", name)
	}
	return parts[0], parts[1], parts[2], nil
}
