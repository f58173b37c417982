package midiin

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

type sinkCall struct {
	op   string
	id   int
	note float64
	vel  float64
}

type fakeSink struct {
	calls []sinkCall
}

func (f *fakeSink) NoteOn(id int, note, vel float64) error {
	f.calls = append(f.calls, sinkCall{op: "on", id: id, note: note, vel: vel})
	return nil
}

func (f *fakeSink) NoteOff(id int) error {
	f.calls = append(f.calls, sinkCall{op: "off", id: id})
	return nil
}

func (f *fakeSink) SetParam(string, float64) error { return nil }

func TestOnMessageForwardsNotes(t *testing.T) {
	sink := &fakeSink{}
	in := &Input{sink: sink}

	in.onMessage(midi.NoteOn(0, 60, 127), 0)
	in.onMessage(midi.NoteOff(0, 60), 0)
	in.onMessage(midi.ControlChange(0, 1, 64), 0) // ignored

	if len(sink.calls) != 2 {
		t.Fatalf("got %d sink calls, want 2", len(sink.calls))
	}
	on := sink.calls[0]
	if on.op != "on" || on.id != 60 || on.note != 60 || on.vel != 1 {
		t.Errorf("got note-on %+v, want id 60 note 60 vel 1", on)
	}
	off := sink.calls[1]
	if off.op != "off" || off.id != 60 {
		t.Errorf("got note-off %+v, want id 60", off)
	}
}

func TestNoteOffViaZeroVelocity(t *testing.T) {
	sink := &fakeSink{}
	in := &Input{sink: sink}

	in.onMessage(midi.NoteOn(0, 64, 80), 0)
	in.onMessage(midi.NoteOn(0, 64, 0), 0) // running-status note off

	if len(sink.calls) != 2 || sink.calls[1].op != "off" || sink.calls[1].id != 64 {
		t.Errorf("got calls %+v, want note-off for 64", sink.calls)
	}
}

func TestExcludedInputs(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Midi Through Port-0", true},
		{"VirMIDI Dummy 1", true},
		{"Launchkey Mini MK3", false},
	}
	for _, tt := range tests {
		if got := excluded(tt.name); got != tt.want {
			t.Errorf("excluded(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
