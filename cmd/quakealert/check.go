package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:       "check <source>",
	Short:     "Run one polling cycle for a feed",
	Long:      "Fetch one feed, alert eligible subscribers and print the cycle result as JSON.",
	Example:   "  quakealert check afad\n  quakealert check kandilli --dry-run",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"afad", "kandilli", "emsc"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			cfg.Push.DryRun = true
		}

		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		result, runErr := a.pipeline.RunCycle(ctx, args[0])

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("dry-run", false, "log alerts instead of delivering them")
}
