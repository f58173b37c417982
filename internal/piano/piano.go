// Package piano is a terminal piano: it maps PC keyboard input onto a
// NoteSink. Terminals deliver no key-release events, so every keypress
// starts a note and schedules its release after a configurable gate
// duration.
package piano

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scpilot/scpilot/internal/music"
	"github.com/scpilot/scpilot/internal/synth"
	"github.com/scpilot/scpilot/internal/theme"
)

// Options tune the piano's note and modulation behavior.
type Options struct {
	Velocity float64        // note velocity, 0..1
	Gate     time.Duration  // how long a keypress holds its note
	ModParam string         // parameter driven by the number row, empty disables
	ModCurve music.ModCurve // shape of the modulation mapping
	ModMin   float64
	ModMax   float64
}

func (o Options) withDefaults() Options {
	if o.Velocity == 0 {
		o.Velocity = 0.8
	}
	if o.Gate == 0 {
		o.Gate = 400 * time.Millisecond
	}
	if o.ModMin == 0 && o.ModMax == 0 {
		o.ModMax = 1
	}
	return o
}

// releaseMsg ends the note started under id once its gate elapses.
type releaseMsg struct {
	id int
}

type heldNote struct {
	semitone int
	note     int // MIDI note at press time, surviving octave changes
}

// Model is the Bubble Tea model for the piano UI.
type Model struct {
	sink synth.NoteSink
	keys KeyMap
	opts Options

	offset   int              // MIDI note of the octave's C
	held     map[int]heldNote // keyed by note ID
	ids      *idPool
	modValue float64
	modSet   bool
	width    int
	lastErr  error
}

// New creates a piano model bound to sink.
func New(sink synth.NoteSink, opts Options) Model {
	return Model{
		sink:   sink,
		keys:   DefaultKeyMap(),
		opts:   opts.withDefaults(),
		offset: music.MiddleC,
		held:   make(map[int]heldNote),
		ids:    newIDPool(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case releaseMsg:
		return m.releaseNote(msg.id)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.OctaveUp):
		m.offset += 12
		if m.offset > music.HighestNote {
			m.offset = music.HighestNote
		}
		return m, nil

	case key.Matches(msg, m.keys.OctaveDown):
		m.offset -= 12
		if m.offset < music.LowestNote {
			m.offset = music.LowestNote
		}
		return m, nil
	}

	s := strings.ToLower(msg.String())
	if semitone, ok := noteKeys[s]; ok {
		return m.pressNote(semitone)
	}
	if norm, ok := modKeys[s]; ok {
		return m.setMod(norm)
	}
	return m, nil
}

func (m Model) pressNote(semitone int) (tea.Model, tea.Cmd) {
	// Ignore repeats while the same semitone is still gated.
	for _, h := range m.held {
		if h.semitone == semitone {
			return m, nil
		}
	}

	id, ok := m.ids.acquire()
	if !ok {
		m.lastErr = fmt.Errorf("no free note IDs")
		return m, nil
	}

	note := m.offset + semitone
	if err := m.sink.NoteOn(id, float64(note), m.opts.Velocity); err != nil {
		m.ids.release(id)
		m.lastErr = err
		return m, nil
	}
	m.held[id] = heldNote{semitone: semitone, note: note}
	m.lastErr = nil

	gate := m.opts.Gate
	return m, tea.Tick(gate, func(time.Time) tea.Msg {
		return releaseMsg{id: id}
	})
}

func (m Model) releaseNote(id int) (tea.Model, tea.Cmd) {
	if _, ok := m.held[id]; !ok {
		return m, nil
	}
	delete(m.held, id)
	if err := m.sink.NoteOff(id); err != nil {
		m.lastErr = err
	}
	m.ids.release(id)
	return m, nil
}

func (m Model) setMod(norm float64) (tea.Model, tea.Cmd) {
	value, err := m.opts.ModCurve.Apply(norm, m.opts.ModMin, m.opts.ModMax)
	if err != nil {
		m.lastErr = err
		return m, nil
	}
	m.modValue = value
	m.modSet = true

	if m.opts.ModParam != "" {
		if err := m.sink.SetParam(m.opts.ModParam, value); err != nil {
			m.lastErr = err
			return m, nil
		}
	}
	m.lastErr = nil
	return m, nil
}

// Octave is the current octave in scientific pitch notation.
func (m Model) Octave() int {
	return (m.offset - 12) / 12
}

func (m Model) View() string {
	width := m.width
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render("Piano"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Octave: %d\n", m.Octave()))

	if len(m.held) > 0 {
		notes := make([]int, 0, len(m.held))
		for _, h := range m.held {
			notes = append(notes, h.note)
		}
		sort.Ints(notes)
		names := make([]string, len(notes))
		for i, n := range notes {
			names[i] = music.NoteName(n)
		}
		b.WriteString("Pressed: " + theme.StylePressed.Render(strings.Join(names, ", ")) + "\n")
	} else {
		b.WriteString("Pressed: -\n")
	}

	if m.modSet {
		b.WriteString(fmt.Sprintf("Mod: %.2f\n", m.modValue))
	} else {
		b.WriteString("Mod: -\n")
	}

	if m.lastErr != nil {
		b.WriteString("\n" + theme.StyleError.Render(m.lastErr.Error()) + "\n")
	}

	help := fmt.Sprintf("press q to quit, [+-] to change octave, [%s] to play notes, [123456789] to modulate", noteKeyOrder)
	b.WriteString("\n" + theme.StyleDimmed.Render(help))

	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		Render(b.String())
}
