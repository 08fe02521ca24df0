package main

import (
	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/summary"
)

var summaryBaselineID string

var summaryCmd = &cobra.Command{
	Use:   "summary EXECUTION_ID",
	Short: "Summarize an execution's findings and safety score (summarize)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryBaselineID, "baseline", "", "baseline execution ID to fold drift score/grade into the summary, if a comparison has been run for this pair")
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	executionID, err := coretypes.ParseID(args[0])
	if err != nil {
		return fatalf(cmd, "invalid execution ID: %v", err)
	}

	var baselineID *coretypes.ID
	if summaryBaselineID != "" {
		id, err := coretypes.ParseID(summaryBaselineID)
		if err != nil {
			return fatalf(cmd, "invalid baseline ID: %v", err)
		}
		baselineID = &id
	}

	a, err := openApp(ctx)
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	defer a.Close()

	s, err := summary.Summarize(ctx, a.store, executionID, baselineID)
	if err != nil {
		return fatalf(cmd, "summarize: %v", err)
	}

	return formatter(cmd).PrintJSON(s)
}
