package main

import (
	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/cmd/promptshield/internal/output"
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Drift detection operations",
}

var (
	driftBaselineID  string
	driftBaselineTag string
	driftPrevious    bool
)

var driftCompareCmd = &cobra.Command{
	Use:   "compare EXECUTION_ID",
	Short: "Compare an execution against a baseline (compareDrift)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDriftCompare,
}

func init() {
	driftCompareCmd.Flags().StringVar(&driftBaselineID, "baseline-id", "", "explicit baseline execution ID")
	driftCompareCmd.Flags().StringVar(&driftBaselineTag, "baseline-tag", "", "named baseline tag")
	driftCompareCmd.Flags().BoolVar(&driftPrevious, "previous", false, "use the previous completed execution of the same pipeline/llm-config as baseline")
	driftCmd.AddCommand(driftCompareCmd)
}

func resolveBaselineRef() (model.BaselineRef, error) {
	switch {
	case driftBaselineID != "":
		id, err := coretypes.ParseID(driftBaselineID)
		if err != nil {
			return model.BaselineRef{}, err
		}
		return model.ExplicitID(id), nil
	case driftBaselineTag != "":
		return model.ByTag(driftBaselineTag), nil
	default:
		return model.Previous(), nil
	}
}

func runDriftCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	executionID, err := coretypes.ParseID(args[0])
	if err != nil {
		return fatalf(cmd, "invalid execution ID: %v", err)
	}
	ref, err := resolveBaselineRef()
	if err != nil {
		return fatalf(cmd, "invalid baseline reference: %v", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fatalf(cmd, "%v", err)
	}
	defer a.Close()

	findings, err := a.driftEngine().Compare(ctx, executionID, ref, a.driftThresholds())
	if err != nil {
		return fatalf(cmd, "compare drift: %v", err)
	}

	if len(findings) == 0 {
		return formatter(cmd).PrintSuccess("no drift findings")
	}

	if outputFormat == string(output.FormatJSON) {
		return formatter(cmd).PrintJSON(findings)
	}

	headers := []string{"channel", "metric", "value", "threshold", "severity"}
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			string(f.Channel),
			f.Metric,
			formatFloat(f.Value),
			formatFloat(f.Threshold),
			output.ColorDriftSeverity(f.Severity),
		})
	}
	return formatter(cmd).PrintTable(headers, rows)
}
