package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/cmd/promptshield/internal/output"
)

var (
	configPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "promptshield",
	Short: "Validate LLM HTTP endpoints against adversarial and quality probes",
	Long: `promptshield runs adversarial and quality probes against an LLM HTTP
endpoint, normalizes the findings, scores safety, and detects behavioral
drift against a stored baseline execution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != string(output.FormatText) && outputFormat != string(output.FormatJSON) {
			return fmt.Errorf("--output must be %q or %q", output.FormatText, output.FormatJSON)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "promptshield.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", string(output.FormatText), "output format: text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with SIGINT/SIGTERM-aware cancellation,
// matching the teacher's root.go Execute(ctx) pattern.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func formatter(cmd *cobra.Command) output.Formatter {
	return output.New(output.Format(outputFormat), cmd.OutOrStdout())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("promptshield v0.1.0")
	},
}

func fatalf(cmd *cobra.Command, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	_ = formatter(cmd).PrintError(msg)
	return fmt.Errorf(msg)
}
