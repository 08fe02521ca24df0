package main

import (
	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

var (
	runPipelineID  string
	runLLMConfigID string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an execution of a pipeline against an LLM config (startExecution)",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPipelineID, "pipeline", "", "pipeline ID to run (required)")
	runCmd.Flags().StringVar(&runLLMConfigID, "llm-config", "", "LLM config ID to run against (required)")
	runCmd.MarkFlagRequired("pipeline")
	runCmd.MarkFlagRequired("llm-config")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, err := coretypes.ParseID(runPipelineID)
	if err != nil {
		return fatalf(cmd, "invalid pipeline ID: %v", err)
	}
	llmConfigID, err := coretypes.ParseID(runLLMConfigID)
	if err != nil {
		return fatalf(cmd, "invalid llm config ID: %v", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	defer a.Close()

	executionID := coretypes.NewID()
	if err := a.store.CreateExecution(ctx, model.Execution{
		ID:          executionID,
		PipelineID:  pipelineID,
		LLMConfigID: llmConfigID,
		Status:      model.StatusPending,
	}); err != nil {
		return fatalf(cmd, "create execution: %v", err)
	}

	engine, err := a.executionEngine()
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	if err := engine.Run(ctx, executionID); err != nil {
		return fatalf(cmd, "run execution: %v", err)
	}

	exec, err := a.store.GetExecution(ctx, executionID)
	if err != nil {
		return fatalf(cmd, "fetch execution: %v", err)
	}
	count, err := a.store.CountFindingsByExecution(ctx, executionID)
	if err != nil {
		return fatalf(cmd, "count findings: %v", err)
	}

	f := formatter(cmd)
	return f.PrintJSON(map[string]any{
		"execution_id": exec.ID,
		"status":       exec.Status,
		"finding_count": count,
		"error_message": exec.ErrorMessage,
	})
}
