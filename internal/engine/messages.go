package engine

import (
	"fmt"

	"github.com/chabad360/go-osc/osc"
)

// OSC address patterns of the control protocol. Counts travel as
// int32, frequency/amplitude/duration/index values as float32, and
// parameter sets as alternating name/value pairs after the fixed
// leading arguments.
const (
	addrStatus      = "/status"
	addrStatusReply = "/status.reply"
	addrQuit        = "/quit"
	addrTest        = "/test"
	addrScope       = "/scope"
	addrFreqScope   = "/freqscope"
	addrNdefSet     = "/ndef/set"
	addrNoteOn      = "/note/on"
	addrNoteOff     = "/note/off"
	addrTdefPlay    = "/tdef/play"
	addrTdefStop    = "/tdef/stop"
	addrTdefPause   = "/tdef/pause"
	addrTdefSet     = "/tdef/set"
)

// Param is one name/value pair of a definition parameter set. A slice
// of Params keeps pair order deterministic on the wire, unlike a map.
type Param struct {
	Name  string
	Value float64
}

// sendReady gates a message operation on session readiness. The
// message is only handed to the transport once the gate passes, so a
// not-ready operation never drops a datagram into a dead socket.
func (e *Engine) sendReady(op string, msg *osc.Message) error {
	if !e.Ready() {
		return &NotReadyError{Op: op}
	}
	if err := e.client.Send(msg); err != nil {
		return fmt.Errorf("sending %s: %w", msg.Address, err)
	}
	return nil
}

// Test plays a short test tone on the engine.
func (e *Engine) Test(freq, amp, dur float64) error {
	msg := osc.NewMessage(addrTest)
	msg.Append(float32(freq), float32(amp), float32(dur))
	return e.sendReady("test tone", msg)
}

// Scope opens the engine's oscilloscope window.
func (e *Engine) Scope(numChannels int) error {
	msg := osc.NewMessage(addrScope)
	msg.Append(float32(numChannels))
	return e.sendReady("scope", msg)
}

// FreqScope opens the engine's frequency scope window.
func (e *Engine) FreqScope(numChannels int) error {
	msg := osc.NewMessage(addrFreqScope)
	msg.Append(float32(numChannels))
	return e.sendReady("freqscope", msg)
}

// NoteOn starts a note. The id must be released again via NoteOff.
func (e *Engine) NoteOn(id int, midiNote, velocity float64) error {
	msg := osc.NewMessage(addrNoteOn)
	msg.Append(int32(id), float32(midiNote), float32(velocity))
	return e.sendReady("note on", msg)
}

// NoteOff stops the note started under id.
func (e *Engine) NoteOff(id int) error {
	msg := osc.NewMessage(addrNoteOff)
	msg.Append(int32(id))
	return e.sendReady("note off", msg)
}

// NdefSet sets parameters on the named synth definition.
func (e *Engine) NdefSet(name string, params ...Param) error {
	return e.sendReady("ndef set", paramMessage(addrNdefSet, name, params))
}

// TdefPlay plays or resumes the named sequence.
func (e *Engine) TdefPlay(name string) error {
	msg := osc.NewMessage(addrTdefPlay)
	msg.Append(name)
	return e.sendReady("tdef play", msg)
}

// TdefStop stops the named sequence.
func (e *Engine) TdefStop(name string) error {
	msg := osc.NewMessage(addrTdefStop)
	msg.Append(name)
	return e.sendReady("tdef stop", msg)
}

// TdefPause pauses the named sequence.
func (e *Engine) TdefPause(name string) error {
	msg := osc.NewMessage(addrTdefPause)
	msg.Append(name)
	return e.sendReady("tdef pause", msg)
}

// TdefSet sets parameters on the named sequence definition.
func (e *Engine) TdefSet(name string, params ...Param) error {
	return e.sendReady("tdef set", paramMessage(addrTdefSet, name, params))
}

func paramMessage(addr, name string, params []Param) *osc.Message {
	msg := osc.NewMessage(addr)
	msg.Append(name)
	for _, p := range params {
		msg.Append(p.Name, float32(p.Value))
	}
	return msg
}
