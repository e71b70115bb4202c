package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kura/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configured directories and metadata sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.CheckPaths(cfg)
			if !offline {
				results = append(results, preflight.CheckLocators(cmd.Context(), cfg)...)
			}
			if failed := printChecks(cmd.OutOrStdout(), results); failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip metadata source probes")
	return cmd
}

func printChecks(out io.Writer, results []preflight.Result) int {
	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state := "ok"
		if !r.Passed {
			state = "FAIL"
			failed++
		}
		rows = append(rows, []string{r.Name, state, r.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows))
	return failed
}
