package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kura/internal/logging"
	"kura/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
		code   string
		level  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show entries from the kura log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := logs.Filter{RunID: strings.TrimSpace(runID), Code: strings.TrimSpace(code)}
			if level != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q: %w", level, err)
				}
			} else {
				filter.MinLevel = slog.LevelDebug
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			entries, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 && !follow {
				fmt.Fprintf(out, "No log entries in %s\n", path)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, e.Format())
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, 500*time.Millisecond, func(e logs.Entry) {
				fmt.Fprintln(out, e.Format())
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&runID, "run", "", "Only entries from this run ID")
	cmd.Flags().StringVar(&code, "code", "", "Only entries about this code")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
