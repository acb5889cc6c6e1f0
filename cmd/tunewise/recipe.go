package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/tui"
)

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Inspect and control the recipe catalog",
}

var recipeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes",
	RunE:  runRecipeList,
}

var recipeShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show recipe details",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeShow,
}

var recipeApplyCmd = &cobra.Command{
	Use:   "apply [name]",
	Short: "Apply a recipe now",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeApply,
}

var recipeRevertCmd = &cobra.Command{
	Use:   "revert [name]",
	Short: "Revert a recipe's applied changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeRevert,
}

func init() {
	recipeCmd.AddCommand(recipeListCmd, recipeShowCmd, recipeApplyCmd, recipeRevertCmd)
}

func runRecipeList(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	recipes, err := client.Recipes()
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}

	if len(recipes) == 0 {
		fmt.Println("No recipes loaded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTRIGGERS\tCHANGES")
	for _, r := range recipes {
		fmt.Fprintf(w, "%s\t%s\t%d\n",
			r.Name, strings.Join(r.TriggerProcesses, ","), changeCount(r))
	}
	w.Flush()
	return nil
}

func runRecipeShow(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	recipes, err := client.Recipes()
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}

	for _, r := range recipes {
		if r.Name != args[0] {
			continue
		}
		fmt.Printf("Name:     %s\n", r.Name)
		fmt.Printf("Triggers: %s\n", strings.Join(r.TriggerProcesses, ", "))
		for path, value := range r.RegistryChanges {
			fmt.Printf("Registry: %s = %s\n", path, value)
		}
		for svc, enabled := range r.ServiceStates {
			state := "disable"
			if enabled {
				state = "enable"
			}
			fmt.Printf("Service:  %s %s\n", state, svc)
		}
		for res, frac := range r.ResourceAlloc {
			fmt.Printf("Resource: %s %.0f%%\n", res, frac*100)
		}
		for _, app := range r.CompanionApps {
			fmt.Printf("Launch:   %s\n", app)
		}
		return nil
	}
	return fmt.Errorf("recipe %q not found", args[0])
}

func runRecipeApply(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	result, err := client.ApplyRecipe(args[0])
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runRecipeRevert(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	result, err := client.RevertRecipe(args[0])
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(result *models.ConfigurationResult) {
	if result.Success {
		fmt.Printf("OK: %s\n", result.Message)
	} else {
		fmt.Printf("INCOMPLETE: %s\n", result.Message)
	}
	for _, c := range result.Changes {
		line := fmt.Sprintf("  [%s] %s %s/%s", c.Status, c.Change.Type, c.Change.Domain, c.Change.Key)
		if c.Reason != "" {
			line += " (" + c.Reason + ")"
		}
		fmt.Println(line)
	}
}

func changeCount(r models.AutomationRecipe) int {
	return len(r.RegistryChanges) + len(r.ServiceStates) + len(r.ResourceAlloc) + len(r.CompanionApps)
}
