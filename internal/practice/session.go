// internal/practice/session.go
package practice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/notedrill/notedrill/internal/music"
)

// Persistence keys for the key/value store.
const (
	StatsKey    = "stats"
	SettingsKey = "settings"
)

// ErrInvalidRange indicates a practice range with minMidi > maxMidi.
var ErrInvalidRange = errors.New("practice range is empty: min_midi exceeds max_midi")

// KV is the persistence boundary. A failed Set is logged and ignored;
// a missing or corrupt value degrades to defaults at the caller.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Settings are the user-tunable drill parameters, persisted between runs.
type Settings struct {
	MinMidi            int  `json:"minMidi"`
	MaxMidi            int  `json:"maxMidi"`
	IncludeAccidentals bool `json:"includeAccidentals"`
	PreferFlats        bool `json:"preferFlats"`
}

// DefaultSettings covers C4 through B5, naturals only, sharp spellings.
func DefaultSettings() Settings {
	return Settings{MinMidi: 60, MaxMidi: 83}
}

// Outcome describes one answered exercise, for scoring and feedback.
type Outcome struct {
	Target   music.Note
	Answered int
	Correct  bool
}

// OutcomeCallback receives the result of every submitted answer.
// Invoked while the session lock is held - must be fast and non-blocking.
type OutcomeCallback func(Outcome)

// Session orchestrates the drill. It owns the stats table and the current
// target; every answer source (typed note, MIDI note-on, detected pitch)
// funnels through SubmitAnswer, which is the only stats mutator. A mutex
// serializes answers so each is processed to completion before the next.
type Session struct {
	mu         sync.Mutex
	store      KV
	scheduler  *Scheduler
	settings   Settings
	candidates []int
	stats      Table
	target     music.Note
	started    bool
	onOutcome  OutcomeCallback
	log        *slog.Logger
}

// NewSession wires a session from its collaborators. Call Start before
// submitting answers.
func NewSession(store KV, scheduler *Scheduler, settings Settings, onOutcome OutcomeCallback) *Session {
	return &Session{
		store:     store,
		scheduler: scheduler,
		settings:  settings,
		stats:     Table{},
		onOutcome: onOutcome,
		log:       slog.Default(),
	}
}

// LoadSettings reads persisted settings from the store, substituting
// defaults when the value is missing or corrupt.
func LoadSettings(store KV) Settings {
	value, ok, err := store.Get(SettingsKey)
	if err != nil || !ok {
		return DefaultSettings()
	}
	var s Settings
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return DefaultSettings()
	}
	if s.MinMidi < 0 || s.MaxMidi > 127 {
		return DefaultSettings()
	}
	return s
}

// Start loads persisted stats, builds the candidate set, and picks the
// first target. An empty candidate set is a configuration error.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok, err := s.store.Get(StatsKey); err == nil && ok {
		s.stats = UnmarshalTable(value)
	} else {
		s.stats = Table{}
	}

	s.candidates = music.BuildCandidates(s.settings.MinMidi, s.settings.MaxMidi, s.settings.IncludeAccidentals)
	if len(s.candidates) == 0 {
		return ErrInvalidRange
	}

	midi, err := s.scheduler.PickNext(s.candidates, s.stats, NoAvoid)
	if err != nil {
		return err
	}
	s.target = music.NewNote(midi, s.settings.PreferFlats)
	s.started = true
	return nil
}

// Target returns the current exercise note.
func (s *Session) Target() music.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Candidates returns a copy of the active candidate set.
func (s *Session) Candidates() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Stats returns a snapshot of the stats table.
func (s *Session) Stats() Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(Table, len(s.stats))
	for k, v := range s.stats {
		snapshot[k] = v
	}
	return snapshot
}

// SubmitAnswer scores midi against the current target, updates and persists
// the stats table, emits the outcome, and advances to the next target
// (avoiding the pitch just answered). A late answer from a slow source is
// scored against whatever the target is at delivery time.
func (s *Session) SubmitAnswer(midi int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNoCandidates
	}

	correct := midi == s.target.Midi
	answered := s.target
	s.stats = RecordOutcome(s.stats, s.target.Midi, correct)
	s.persistStats()

	if s.onOutcome != nil {
		s.onOutcome(Outcome{Target: answered, Answered: midi, Correct: correct})
	}

	next, err := s.scheduler.PickNext(s.candidates, s.stats, answered.Midi)
	if err != nil {
		return err
	}
	s.target = music.NewNote(next, s.settings.PreferFlats)
	return nil
}

// NoteOn is the MIDI answer source. Only note-on messages
// (status&0xF0 == 0x90 with velocity > 0) are answers; everything else is
// dropped. Notes outside the candidate set are ignored rather than scored
// wrong, so stray keys outside the practice range cannot poison the stats.
func (s *Session) NoteOn(status, note, velocity byte) error {
	if status&0xF0 != 0x90 || velocity == 0 {
		return nil
	}
	if !s.inCandidates(int(note)) {
		return nil
	}
	return s.SubmitAnswer(int(note))
}

// SubmitFrequency is the pitch-detection answer source. The frequency maps
// to its nearest MIDI number; detections outside the candidate set are
// ignored under the same policy as NoteOn.
func (s *Session) SubmitFrequency(freq float64) error {
	midi := music.ToMidi(freq)
	if midi < 0 || midi > 127 || !s.inCandidates(midi) {
		return nil
	}
	return s.SubmitAnswer(midi)
}

// ResetStats clears all performance records and persists the empty table.
func (s *Session) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Table{}
	s.persistStats()
}

// SaveSettings persists the session settings.
func (s *Session) SaveSettings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(s.settings)
	if err != nil {
		return
	}
	if err := s.store.Set(SettingsKey, string(b)); err != nil {
		s.log.Warn("persist settings failed", "err", err)
	}
}

// persistStats writes the table through to the store. Callers hold the lock.
func (s *Session) persistStats() {
	value, err := MarshalTable(s.stats)
	if err != nil {
		s.log.Warn("marshal stats failed", "err", err)
		return
	}
	if err := s.store.Set(StatsKey, value); err != nil {
		s.log.Warn("persist stats failed", "err", err)
	}
}

func (s *Session) inCandidates(midi int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.candidates {
		if m == midi {
			return true
		}
	}
	return false
}
