package synth

import (
	"context"
	"reflect"
	"testing"

	"github.com/scpilot/scpilot/internal/engine"
)

// fakeControls records every dispatch instead of talking to an engine.
type fakeControls struct {
	booted    bool
	quit      []bool
	noteOn    [][3]float64
	noteOff   []int
	ndefSets  []paramCall
	tdefSets  []paramCall
	tdefPlay  []string
	tdefStop  []string
	tdefPause []string
}

type paramCall struct {
	name   string
	params []engine.Param
}

func (f *fakeControls) Boot(context.Context) error { f.booted = true; return nil }
func (f *fakeControls) Quit(force bool)            { f.quit = append(f.quit, force) }

func (f *fakeControls) NoteOn(id int, note, vel float64) error {
	f.noteOn = append(f.noteOn, [3]float64{float64(id), note, vel})
	return nil
}

func (f *fakeControls) NoteOff(id int) error {
	f.noteOff = append(f.noteOff, id)
	return nil
}

func (f *fakeControls) NdefSet(name string, params ...engine.Param) error {
	f.ndefSets = append(f.ndefSets, paramCall{name, params})
	return nil
}

func (f *fakeControls) TdefSet(name string, params ...engine.Param) error {
	f.tdefSets = append(f.tdefSets, paramCall{name, params})
	return nil
}

func (f *fakeControls) TdefPlay(name string) error  { f.tdefPlay = append(f.tdefPlay, name); return nil }
func (f *fakeControls) TdefStop(name string) error  { f.tdefStop = append(f.tdefStop, name); return nil }
func (f *fakeControls) TdefPause(name string) error { f.tdefPause = append(f.tdefPause, name); return nil }

func TestLifecycleDelegation(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	if err := s.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error: %v", err)
	}
	if !f.booted {
		t.Error("Boot() did not reach the engine")
	}

	s.Quit()
	if len(f.quit) != 1 || f.quit[0] {
		t.Errorf("Quit() forwarded as %v, want one graceful quit", f.quit)
	}
}

func TestNoteDelegation(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	if err := s.NoteOn(3, 64, 0.7); err != nil {
		t.Fatalf("NoteOn() error: %v", err)
	}
	if err := s.NoteOff(3); err != nil {
		t.Fatalf("NoteOff() error: %v", err)
	}

	if len(f.noteOn) != 1 || f.noteOn[0] != [3]float64{3, 64, 0.7} {
		t.Errorf("noteOn calls = %v", f.noteOn)
	}
	if len(f.noteOff) != 1 || f.noteOff[0] != 3 {
		t.Errorf("noteOff calls = %v", f.noteOff)
	}
}

func TestSequenceDelegation(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	if err := s.Play("beat"); err != nil {
		t.Fatal(err)
	}
	if err := s.Pause("beat"); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop("beat"); err != nil {
		t.Fatal(err)
	}

	if len(f.tdefPlay) != 1 || len(f.tdefPause) != 1 || len(f.tdefStop) != 1 {
		t.Errorf("sequence calls = play %v pause %v stop %v", f.tdefPlay, f.tdefPause, f.tdefStop)
	}
}

func TestSetParamRouting(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	if err := s.SetParam("ndef.filter.freq", 1000); err != nil {
		t.Fatalf("SetParam() error: %v", err)
	}
	if err := s.SetParam("tdef.beat.rate", 2); err != nil {
		t.Fatalf("SetParam() error: %v", err)
	}

	if len(f.ndefSets) != 1 {
		t.Fatalf("ndef calls = %v, want 1", f.ndefSets)
	}
	want := paramCall{"filter", []engine.Param{{Name: "freq", Value: 1000}}}
	if !reflect.DeepEqual(f.ndefSets[0], want) {
		t.Errorf("ndef call = %+v, want %+v", f.ndefSets[0], want)
	}

	if len(f.tdefSets) != 1 || f.tdefSets[0].name != "beat" {
		t.Errorf("tdef calls = %+v", f.tdefSets)
	}
}

func TestSetParamBadNames(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	bad := []string{"freq", "ndef.freq", "sdef.filter.freq", "ndef.filter.freq.extra"}
	for _, name := range bad {
		if err := s.SetParam(name, 1); err == nil {
			t.Errorf("SetParam(%q) should fail", name)
		}
	}
	if len(f.ndefSets)+len(f.tdefSets) != 0 {
		t.Error("invalid parameter names reached the engine")
	}
}

func TestSetParamsBatchesPerDefinition(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	err := s.SetParams(map[string]float64{
		"ndef.filter.freq": 1000,
		"ndef.filter.res":  0.5,
		"ndef.osc.detune":  0.01,
		"tdef.beat.rate":   2,
	})
	if err != nil {
		t.Fatalf("SetParams() error: %v", err)
	}

	if len(f.ndefSets) != 2 {
		t.Fatalf("ndef calls = %+v, want 2 (one per definition)", f.ndefSets)
	}
	// Targets are dispatched in sorted order, params sorted within a
	// batch.
	wantFilter := paramCall{"filter", []engine.Param{{Name: "freq", Value: 1000}, {Name: "res", Value: 0.5}}}
	if !reflect.DeepEqual(f.ndefSets[0], wantFilter) {
		t.Errorf("first ndef call = %+v, want %+v", f.ndefSets[0], wantFilter)
	}
	if f.ndefSets[1].name != "osc" {
		t.Errorf("second ndef call = %+v, want osc", f.ndefSets[1])
	}
	if len(f.tdefSets) != 1 || f.tdefSets[0].name != "beat" {
		t.Errorf("tdef calls = %+v", f.tdefSets)
	}
}

func TestParamsTracksWrites(t *testing.T) {
	f := &fakeControls{}
	s := NewSCSynth(f)

	if err := s.SetParam("ndef.filter.freq", 800); err != nil {
		t.Fatal(err)
	}
	got := s.Params()
	if got["ndef.filter.freq"] != 800 {
		t.Errorf("Params() = %v, want ndef.filter.freq=800", got)
	}
}
