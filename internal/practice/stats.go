// internal/practice/stats.go
// Package practice implements the adaptive drill core: per-pitch performance
// statistics, the selection weight derived from them, the weighted-random
// scheduler, and the session that funnels every answer source through a
// single submit path.
package practice

import (
	"encoding/json"
	"strconv"
)

// Weighting constants. These are contractual: changing them changes which
// notes the learner is drilled on.
const (
	// EMAAlpha is the smoothing factor for the accuracy moving average
	EMAAlpha = 0.25
	// DefaultAccuracy seeds the moving average for a never-seen pitch
	DefaultAccuracy = 0.5
	// WrongPenaltyRate scales the per-error weight penalty
	WrongPenaltyRate = 0.6
	// DifficultyRate scales the low-accuracy weight boost
	DifficultyRate = 2.5
	// NoveltyBoost multiplies the weight of a never-seen pitch
	NoveltyBoost = 1.8
	// MinWeight and MaxWeight clamp the final selection weight
	MinWeight = 1.0
	MaxWeight = 8.0
)

// PitchStat is the cumulative performance record for one MIDI note.
type PitchStat struct {
	Seen        uint32  `json:"seen"`
	Correct     uint32  `json:"correct"`
	Wrong       uint32  `json:"wrong"`
	EMAAccuracy float64 `json:"ema"`
}

// defaultStat is the record implied by an absent table entry.
func defaultStat() PitchStat {
	return PitchStat{EMAAccuracy: DefaultAccuracy}
}

// Table maps MIDI note numbers to their performance records. Absent entries
// imply the default record.
type Table map[int]PitchStat

// Get returns the record for a MIDI number, or the default record when the
// pitch has never been seen.
func (t Table) Get(midi int) PitchStat {
	if s, ok := t[midi]; ok {
		return s
	}
	return defaultStat()
}

// RecordOutcome returns a new table with only the record for midi replaced.
// The input table is not modified.
func RecordOutcome(t Table, midi int, wasCorrect bool) Table {
	next := make(Table, len(t)+1)
	for k, v := range t {
		next[k] = v
	}

	s := t.Get(midi)
	s.Seen++
	outcome := 0.0
	if wasCorrect {
		s.Correct++
		outcome = 1.0
	} else {
		s.Wrong++
	}
	s.EMAAccuracy = (1-EMAAlpha)*s.EMAAccuracy + EMAAlpha*outcome

	next[midi] = s
	return next
}

// Weight derives the selection weight for a MIDI number from its record.
// Notes answered wrong, notes with low recent accuracy, and notes never
// presented all weigh heavier. The result is always within
// [MinWeight, MaxWeight].
func Weight(t Table, midi int) float64 {
	s := t.Get(midi)

	penalty := 1 + float64(s.Wrong)*WrongPenaltyRate
	difficulty := 1 + (1-s.EMAAccuracy)*DifficultyRate
	novelty := 1.0
	if s.Seen == 0 {
		novelty = NoveltyBoost
	}

	raw := penalty * difficulty * novelty
	if raw < MinWeight {
		return MinWeight
	}
	if raw > MaxWeight {
		return MaxWeight
	}
	return raw
}

// MarshalTable serializes a table to JSON with string keys.
func MarshalTable(t Table) (string, error) {
	m := make(map[string]PitchStat, len(t))
	for midi, s := range t {
		m[strconv.Itoa(midi)] = s
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalTable parses a serialized table. Corrupt input or unparseable
// keys degrade to an empty table rather than an error: missing stats are a
// normal startup condition, never fatal.
func UnmarshalTable(data string) Table {
	var m map[string]PitchStat
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return Table{}
	}

	t := make(Table, len(m))
	for k, s := range m {
		midi, err := strconv.Atoi(k)
		if err != nil || midi < 0 || midi > 127 {
			continue
		}
		if s.EMAAccuracy < 0 || s.EMAAccuracy > 1 {
			s.EMAAccuracy = DefaultAccuracy
		}
		t[midi] = s
	}
	return t
}
