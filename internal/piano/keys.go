package piano

import "github.com/charmbracelet/bubbles/key"

// noteKeys maps keyboard keys to semitone offsets from the current
// octave's C, laid out like a piano across two keyboard rows.
var noteKeys = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6, "g": 7,
	"y": 8, "h": 9, "u": 10, "j": 11, "k": 12, "o": 13, "l": 14, "p": 15,
}

// noteKeyOrder is the display order of the note keys.
const noteKeyOrder = "awsedftgyhujkolp"

// modKeys maps the number row onto a normalized 0..1 modulation input.
var modKeys = map[string]float64{
	"1": 0, "2": 0.125, "3": 0.25, "4": 0.375, "5": 0.5,
	"6": 0.625, "7": 0.75, "8": 0.875, "9": 1,
}

// KeyMap defines the non-note keyboard bindings for the piano UI.
type KeyMap struct {
	OctaveUp   key.Binding
	OctaveDown key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		OctaveUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "octave up"),
		),
		OctaveDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "octave down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
