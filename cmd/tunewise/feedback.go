package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunewise/tunewise/internal/tui"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Send feedback on an agent action",
	Long: `Tells an agent how one of its optimizations worked out. Feedback
adjusts the agent's learned success rates and is archived for inspection.`,
	RunE: runFeedback,
}

var (
	fbAgent       string
	fbAction      string
	fbKind        string
	fbImprovement float64
	fbComment     string
)

func init() {
	feedbackCmd.Flags().StringVar(&fbAgent, "agent", "", "Agent ID (required, see 'tunewise agents')")
	feedbackCmd.Flags().StringVar(&fbAction, "action", "", "Action name the feedback is about (required)")
	feedbackCmd.Flags().StringVar(&fbKind, "kind", "success", "Feedback kind: success, partial_success, failure, user_rejected")
	feedbackCmd.Flags().Float64Var(&fbImprovement, "improvement", 0, "Measured improvement, if any")
	feedbackCmd.Flags().StringVar(&fbComment, "comment", "", "Free-form comment")
	feedbackCmd.MarkFlagRequired("agent")
	feedbackCmd.MarkFlagRequired("action")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(apiAddr)
	if err := client.SubmitFeedback(fbAgent, fbAction, fbKind, fbImprovement, fbComment); err != nil {
		return err
	}
	fmt.Printf("Feedback recorded for %s/%s\n", fbAgent, fbAction)
	return nil
}
