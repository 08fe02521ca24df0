package main

import (
	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/internal/coretypes"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel EXECUTION_ID",
	Short: "Cancel a running execution",
	Long: `Cancel transitions a running execution's row to Cancelled. If the
execution is in flight in a different promptshield process, that process's
jobs drain on their own schedule — this command only marks the row, it does
not reach across processes to interrupt a worker pool.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	executionID, err := coretypes.ParseID(args[0])
	if err != nil {
		return fatalf(cmd, "invalid execution ID: %v", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	defer a.Close()

	engine, err := a.executionEngine()
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	if err := engine.Cancel(ctx, executionID); err != nil {
		return fatalf(cmd, "cancel execution: %v", err)
	}

	return formatter(cmd).PrintSuccess("execution " + executionID.String() + " cancelled")
}
