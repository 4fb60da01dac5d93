// cmd/stats.go
package cmd

import (
	"fmt"
	"sort"

	"github.com/notedrill/notedrill/internal/config"
	"github.com/notedrill/notedrill/internal/music"
	"github.com/notedrill/notedrill/internal/practice"
	"github.com/notedrill/notedrill/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-note practice statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	path, err := cfg.DataPath()
	if err != nil {
		return err
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	table := practice.Table{}
	if value, ok, err := db.Get(practice.StatsKey); err == nil && ok {
		table = practice.UnmarshalTable(value)
	}
	if len(table) == 0 {
		fmt.Println("no practice history yet")
		return nil
	}

	settings := practice.LoadSettings(db)

	notes := make([]int, 0, len(table))
	for midi := range table {
		notes = append(notes, midi)
	}
	sort.Ints(notes)

	fmt.Printf("%-5s %6s %8s %6s %9s %7s\n", "note", "seen", "correct", "wrong", "accuracy", "weight")
	for _, midi := range notes {
		s := table.Get(midi)
		fmt.Printf("%-5s %6d %8d %6d %8.0f%% %7.2f\n",
			music.NewNote(midi, settings.PreferFlats).Name(),
			s.Seen, s.Correct, s.Wrong, s.EMAAccuracy*100, practice.Weight(table, midi))
	}
	return nil
}
