// cmd/root.go
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/notedrill/notedrill/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "notedrill",
	Short: "Adaptive note-identification trainer",
	Long: `notedrill drills you on identifying musical notes. It picks targets
adaptively - notes you miss or have never seen come up more often - and
accepts answers typed at the prompt, played on a MIDI keyboard, or sung or
played into the microphone.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio capture device index (-1 for default)")
	rootCmd.PersistentFlags().Int("midi-port", -1, "MIDI input port index (-1 for first available)")
	rootCmd.PersistentFlags().String("min", "", "lowest practice note, e.g. C4")
	rootCmd.PersistentFlags().String("max", "", "highest practice note, e.g. B5")
	rootCmd.PersistentFlags().BoolP("accidentals", "a", false, "include black-key notes")
	rootCmd.PersistentFlags().Bool("flats", false, "spell accidentals as flats")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("midi_port", rootCmd.PersistentFlags().Lookup("midi-port"))
	_ = viper.BindPFlag("include_accidentals", rootCmd.PersistentFlags().Lookup("accidentals"))
	_ = viper.BindPFlag("prefer_flats", rootCmd.PersistentFlags().Lookup("flats"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	initLogger(viper.GetBool("debug"))
}

// initLogger configures the shared slog logger and calls slog.SetDefault
// so stdlib log.* routes through it as well.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
