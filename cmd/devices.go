// cmd/devices.go
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/notedrill/notedrill/internal/audio"
	"github.com/notedrill/notedrill/internal/midiin"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices and MIDI input ports",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		log.Warn("audio backend unavailable", "err", err)
	} else {
		defer capture.Close()
		devices, err := capture.ListDevices()
		if err != nil {
			return err
		}
		fmt.Printf("Capture devices (%d):\n", len(devices))
		for i, d := range devices {
			fmt.Printf("  [%d] %s\n", i, d.Name())
		}
	}

	input, err := midiin.New(nil)
	if err != nil {
		log.Warn("MIDI backend unavailable", "err", err)
		return nil
	}
	defer input.Close()

	ports, err := input.Ports()
	if err != nil {
		return err
	}
	fmt.Printf("MIDI input ports (%d):\n", len(ports))
	for i, name := range ports {
		fmt.Printf("  [%d] %s\n", i, name)
	}
	return nil
}
