// Package music holds small note-math helpers shared by the input
// controllers: MIDI-to-frequency conversion, note naming, and the
// modulation curves used to map key rows onto parameter ranges.
package music

import (
	"fmt"
	"math"
)

// MIDI note bounds used when clamping octave shifts.
const (
	LowestNote  = 12  // C0
	HighestNote = 108 // C8
	MiddleC     = 60  // C4
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFreq converts a MIDI note number to its equal-temperament
// frequency in Hz, tuned to A4 = 440.
func NoteFreq(midiNote float64) float64 {
	return 440.0 * math.Pow(2, (midiNote-69)/12)
}

// NoteName renders a MIDI note number as scientific pitch notation,
// e.g. 60 -> C4.
func NoteName(midiNote int) string {
	semitone := midiNote % 12
	octave := midiNote/12 - 1
	return fmt.Sprintf("%s%d", noteNames[semitone], octave)
}

// ModCurve shapes a normalized 0..1 modulation input before it is
// scaled onto the target range.
type ModCurve string

const (
	ModLinear ModCurve = "linear"
	ModLog    ModCurve = "log"
	ModInvLog ModCurve = "invlog"
)

// Apply maps x in [0, 1] through the curve and onto [min, max].
func (c ModCurve) Apply(x, min, max float64) (float64, error) {
	var m float64
	switch c {
	case ModLinear, "":
		m = x
	case ModLog:
		m = math.Log10(9*x + 1)
	case ModInvLog:
		m = 1 - math.Log10(9*(1-x)+1)
	default:
		return 0, fmt.Errorf("unknown mod curve %q", string(c))
	}
	return min + m*(max-min), nil
}
