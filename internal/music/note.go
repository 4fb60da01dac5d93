// internal/music/note.go
// Package music provides pitch spelling, frequency mapping, and candidate
// range construction for the practice core.
package music

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNote indicates a note name that cannot be parsed
	ErrInvalidNote = errors.New("invalid note name")
	// ErrNoteOutOfRange indicates a MIDI number outside 0-127
	ErrNoteOutOfRange = errors.New("note out of MIDI range 0-127")
)

// A4 reference tuning.
const (
	refFrequency = 440.0
	refMidi      = 69
)

// Spelling is a letter/accidental pair for one pitch class.
type Spelling struct {
	Letter     string // one of C D E F G A B
	Accidental string // "", "#", or "b"
}

// Note couples a MIDI number with its spelling. The spelling is derived,
// never stored independently of the MIDI number.
type Note struct {
	Midi int
	Spelling
}

// Spellings indexed by pitch class (midi mod 12).
var (
	sharpSpellings = [12]Spelling{
		{"C", ""}, {"C", "#"}, {"D", ""}, {"D", "#"}, {"E", ""}, {"F", ""},
		{"F", "#"}, {"G", ""}, {"G", "#"}, {"A", ""}, {"A", "#"}, {"B", ""},
	}
	flatSpellings = [12]Spelling{
		{"C", ""}, {"D", "b"}, {"D", ""}, {"E", "b"}, {"E", ""}, {"F", ""},
		{"G", "b"}, {"G", ""}, {"A", "b"}, {"A", ""}, {"B", "b"}, {"B", ""},
	}
	// Semitone offset from C for each letter.
	letterOffsets = map[string]int{
		"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
	}
)

// Spell returns the letter/accidental pair for a MIDI number under the
// given accidental preference.
func Spell(midi int, preferFlats bool) Spelling {
	pc := ((midi % 12) + 12) % 12
	if preferFlats {
		return flatSpellings[pc]
	}
	return sharpSpellings[pc]
}

// NewNote derives a Note from a MIDI number and accidental preference.
func NewNote(midi int, preferFlats bool) Note {
	return Note{Midi: midi, Spelling: Spell(midi, preferFlats)}
}

// Name returns the scientific pitch name, e.g. "C#4" for MIDI 61.
// Octave numbering follows the MIDI convention where 60 is C4.
func (n Note) Name() string {
	octave := n.Midi/12 - 1
	return fmt.Sprintf("%s%s%d", n.Letter, n.Accidental, octave)
}

// ToMidi maps a frequency in Hz to the nearest MIDI note number.
// The result is not clamped; callers discard values outside 0-127.
func ToMidi(freq float64) int {
	return int(math.Round(refMidi + 12*math.Log2(freq/refFrequency)))
}

// Frequency returns the equal-tempered frequency in Hz for a MIDI number.
func Frequency(midi int) float64 {
	return refFrequency * math.Pow(2, float64(midi-refMidi)/12)
}

// IsNatural reports whether the MIDI number is a white-key pitch class.
func IsNatural(midi int) bool {
	switch ((midi % 12) + 12) % 12 {
	case 0, 2, 4, 5, 7, 9, 11:
		return true
	}
	return false
}

// BuildCandidates returns the ascending list of MIDI numbers in
// [minMidi, maxMidi] eligible as practice targets. Natural pitch classes are
// always included; the rest only when includeAccidentals is set. The result
// is empty when minMidi > maxMidi; callers must treat an empty set as a
// configuration error and present no exercise.
func BuildCandidates(minMidi, maxMidi int, includeAccidentals bool) []int {
	if minMidi > maxMidi {
		return nil
	}
	candidates := make([]int, 0, maxMidi-minMidi+1)
	for m := minMidi; m <= maxMidi; m++ {
		if IsNatural(m) || includeAccidentals {
			candidates = append(candidates, m)
		}
	}
	return candidates
}

// ParseNote parses a scientific pitch name such as "C4", "F#3", or "Bb2"
// into a MIDI note number.
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	letter := strings.ToUpper(s[:1])
	offset, ok := letterOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		offset++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	midi := (octave+1)*12 + offset
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("%w: %q", ErrNoteOutOfRange, s)
	}
	return midi, nil
}
