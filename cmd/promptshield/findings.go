package main

import (
	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/cmd/promptshield/internal/output"
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Inspect normalized findings",
}

var findingsSeverity string

var findingsListCmd = &cobra.Command{
	Use:   "list EXECUTION_ID",
	Short: "List findings for an execution (listFindings)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFindingsList,
}

func init() {
	findingsListCmd.Flags().StringVar(&findingsSeverity, "severity", "", "filter to one severity (critical, high, medium, low, info)")
	findingsCmd.AddCommand(findingsListCmd)
}

func runFindingsList(cmd *cobra.Command, args []string) error {
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

	findings, err := a.store.ListFindings(ctx, executionID)
	if err != nil {
		return fatalf(cmd, "list findings: %v", err)
	}

	if findingsSeverity != "" {
		want := model.Severity(findingsSeverity)
		filtered := findings[:0]
		for _, f := range findings {
			if f.Severity == want {
				filtered = append(filtered, f)
			}
		}
		findings = filtered
	}

	if len(findings) == 0 {
		return formatter(cmd).PrintSuccess("no findings")
	}

	if outputFormat == string(output.FormatJSON) {
		return formatter(cmd).PrintJSON(findings)
	}

	headers := []string{"id", "library", "category", "severity", "risk_type"}
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			f.ID.String(),
			f.Library,
			f.TestCategory,
			output.ColorSeverity(f.Severity),
			f.RiskType,
		})
	}
	return formatter(cmd).PrintTable(headers, rows)
}
