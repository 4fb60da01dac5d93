// cmd/reset.go
package cmd

import (
	"fmt"

	"github.com/notedrill/notedrill/internal/config"
	"github.com/notedrill/notedrill/internal/practice"
	"github.com/notedrill/notedrill/internal/store"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all persisted practice statistics",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
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

	if err := db.Delete(practice.StatsKey); err != nil {
		return fmt.Errorf("clearing statistics: %w", err)
	}
	fmt.Println("practice statistics cleared")
	return nil
}
