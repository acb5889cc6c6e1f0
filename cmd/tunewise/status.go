package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunewise/tunewise/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	report, err := client.Status()
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}

	fmt.Printf("Uptime:          %s\n", report.Uptime)
	profile := report.ActiveProfile
	if profile == "" {
		profile = "(none)"
	}
	fmt.Printf("Active profile:  %s\n", profile)

	snap := report.Snapshot
	fmt.Printf("CPU:             %.1f%%\n", snap.CPUPercent)
	fmt.Printf("GPU:             %.1f%%\n", snap.GPUPercent)
	fmt.Printf("RAM:             %.1f%%\n", snap.RAMPercent)
	fmt.Printf("Disk:            %.1f%%\n", snap.DiskPercent)
	fmt.Printf("Network:         %.1f%%\n", snap.NetworkPercent)
	fmt.Printf("Processes:       %d tracked\n", len(snap.Processes))
	fmt.Printf("User active:     %v\n", snap.IsUserActive)

	if ticks, ok := report.Loop["ticks"]; ok {
		fmt.Printf("Loop ticks:      %v\n", ticks)
	}
	if rounds, ok := report.Loop["rounds"]; ok {
		fmt.Printf("Reasoning rounds: %v\n", rounds)
	}
	return nil
}
