// cmd/practice.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/notedrill/notedrill/internal/audio"
	"github.com/notedrill/notedrill/internal/config"
	"github.com/notedrill/notedrill/internal/dsp"
	"github.com/notedrill/notedrill/internal/midiin"
	"github.com/notedrill/notedrill/internal/music"
	"github.com/notedrill/notedrill/internal/practice"
	"github.com/notedrill/notedrill/internal/recovery"
	"github.com/notedrill/notedrill/internal/store"
	"github.com/spf13/cobra"
)

var (
	practiceNoMic  bool
	practiceNoMidi bool
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an interactive practice session",
	Long: `Presents one note at a time. Answer by typing a note name (e.g. C4,
F#3, Bb2), by pressing a key on a connected MIDI keyboard, or by sounding
the note into the microphone. Type q to quit.`,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().BoolVar(&practiceNoMic, "no-mic", false, "disable microphone input")
	practiceCmd.Flags().BoolVar(&practiceNoMidi, "no-midi", false, "disable MIDI input")
	rootCmd.AddCommand(practiceCmd)
}

// memKV keeps the session usable when the stats database cannot be opened;
// progress simply won't survive the run.
type memKV map[string]string

func (m memKV) Get(key string) (string, bool, error) { v, ok := m[key]; return v, ok, nil }
func (m memKV) Set(key, value string) error          { m[key] = value; return nil }

func runPractice(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	settings, err := sessionSettings(cmd, cfg)
	if err != nil {
		return err
	}

	log := slog.Default()

	var kv practice.KV
	path, err := cfg.DataPath()
	if err == nil {
		db, openErr := store.Open(path)
		if openErr == nil {
			defer db.Close()
			kv = db
		} else {
			log.Warn("stats database unavailable, progress will not persist", "err", openErr)
			kv = memKV{}
		}
	} else {
		log.Warn("stats database unavailable, progress will not persist", "err", err)
		kv = memKV{}
	}

	scheduler := practice.NewScheduler(rand.New(rand.NewSource(time.Now().UnixNano())))
	session := practice.NewSession(kv, scheduler, settings, printOutcome)
	if err := session.Start(); err != nil {
		return err
	}
	session.SaveSettings()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !practiceNoMidi {
		if closeMidi := connectMIDI(cfg, session); closeMidi != nil {
			defer closeMidi()
		}
	}
	if !practiceNoMic {
		if stopMic := connectMic(ctx, cfg, session); stopMic != nil {
			defer stopMic()
		}
	}

	fmt.Printf("Practicing %s to %s. Type a note name, or q to quit.\n",
		music.NewNote(settings.MinMidi, settings.PreferFlats).Name(),
		music.NewNote(settings.MaxMidi, settings.PreferFlats).Name())
	printTarget(session)

	lines := make(chan string)
	go func() {
		defer recovery.HandlePanicFunc(func() { close(lines) })
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "q" || line == "quit" {
				return nil
			}

			midi, err := music.ParseNote(line)
			if err != nil {
				fmt.Printf("don't understand %q - try a note name like C4 or F#3\n", line)
				continue
			}
			if err := session.SubmitAnswer(midi); err != nil {
				return err
			}
			printTarget(session)
		}
	}
}

// sessionSettings merges the config file with the --min/--max note-name
// flags, which take precedence.
func sessionSettings(cmd *cobra.Command, cfg *config.Settings) (practice.Settings, error) {
	settings := practice.Settings{
		MinMidi:            cfg.MinMidi,
		MaxMidi:            cfg.MaxMidi,
		IncludeAccidentals: cfg.IncludeAccidentals,
		PreferFlats:        cfg.PreferFlats,
	}

	if v, _ := cmd.Flags().GetString("min"); v != "" {
		midi, err := music.ParseNote(v)
		if err != nil {
			return settings, fmt.Errorf("--min: %w", err)
		}
		settings.MinMidi = midi
	}
	if v, _ := cmd.Flags().GetString("max"); v != "" {
		midi, err := music.ParseNote(v)
		if err != nil {
			return settings, fmt.Errorf("--max: %w", err)
		}
		settings.MaxMidi = midi
	}
	return settings, nil
}

func printOutcome(o practice.Outcome) {
	if o.Correct {
		fmt.Printf("correct: %s\n", o.Target.Name())
		return
	}
	answered := music.NewNote(o.Answered, false)
	fmt.Printf("wrong: that was %s, the target is %s\n", answered.Name(), o.Target.Name())
}

func printTarget(session *practice.Session) {
	fmt.Printf("\n>> name this note: %s\n", session.Target().Name())
}

// connectMIDI attaches a MIDI keyboard as an answer source and returns its
// close function, or nil when no device is available. Failure is not fatal;
// the session continues with the remaining sources.
func connectMIDI(cfg *config.Settings, session *practice.Session) func() {
	log := slog.Default()

	input, err := midiin.New(func(status, note, velocity byte) {
		before := session.Target().Midi
		if err := session.NoteOn(status, note, velocity); err != nil {
			log.Warn("midi answer rejected", "err", err)
			return
		}
		if session.Target().Midi != before {
			printTarget(session)
		}
	})
	if err != nil {
		log.Warn("MIDI unavailable", "err", err)
		return nil
	}
	if err := input.Open(cfg.MidiPort); err != nil {
		log.Warn("MIDI unavailable", "err", err)
		input.Close()
		return nil
	}
	return input.Close
}

// connectMic attaches the pitch detector as an answer source and returns
// its stop function, or nil when the microphone is unavailable.
func connectMic(ctx context.Context, cfg *config.Settings, session *practice.Session) func() {
	log := slog.Default()

	analyzer, err := dsp.NewAnalyzer(dsp.AnalyzerConfig{
		SampleRate: cfg.SampleRate,
		WindowSize: cfg.WindowSize,
	})
	if err != nil {
		log.Warn("microphone unavailable", "err", err)
		return nil
	}

	capture := audio.New(audio.Config{
		DeviceIndex: cfg.DeviceIndex,
		SampleRate:  uint32(cfg.SampleRate),
		WindowSize:  cfg.WindowSize,
	})
	if err := capture.Init(); err != nil {
		log.Warn("microphone unavailable", "err", err)
		return nil
	}

	listener := dsp.NewListener(analyzer, capture)
	listener.SetCallback(func(freq float64) {
		before := session.Target().Midi
		if err := session.SubmitFrequency(freq); err != nil {
			log.Warn("detected answer rejected", "err", err)
			return
		}
		if session.Target().Midi != before {
			printTarget(session)
		}
	})

	if err := listener.Start(ctx); err != nil {
		log.Warn("microphone unavailable", "err", err)
		_ = capture.Close()
		return nil
	}
	log.Debug("microphone listening", "sample_rate", cfg.SampleRate, "window", cfg.WindowSize)

	return func() {
		listener.Stop()
		_ = capture.Close()
	}
}
