package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tunewise/tunewise/internal/tui"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents and their states",
	RunE:  runAgents,
}

var recommendationsFlag bool

func init() {
	agentsCmd.Flags().BoolVar(&recommendationsFlag, "recommendations", false, "Also show the latest recommendations")
}

func runAgents(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	agents, err := client.Agents()
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tCONFIDENCE")
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", a.ID, a.Name, a.State, a.Confidence)
	}
	w.Flush()

	if !recommendationsFlag {
		return nil
	}

	recs, err := client.Recommendations()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("\nNo recommendations this round")
		return nil
	}

	fmt.Println()
	for _, rec := range recs {
		auto := ""
		if rec.AutoApply {
			auto = " [auto]"
		}
		fmt.Printf("%s (%.0f%% confidence)%s\n", rec.Title, rec.Confidence*100, auto)
		for _, act := range rec.Actions {
			fmt.Printf("  - %s\n", act.Name)
		}
	}
	return nil
}
