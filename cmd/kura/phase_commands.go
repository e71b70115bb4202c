package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kura/internal/pipeline"
	"kura/internal/reconcile"
)

// phase is one batch operation, reachable as a subcommand and through `run`
// by its legacy script name.
type phase struct {
	use    string
	legacy string
	short  string
	run    func(ctx context.Context, d *pipeline.Driver, out io.Writer) error
}

func phases(refresh *bool) []phase {
	return []phase{
		{
			use:    "get-codes",
			legacy: "getCodes",
			short:  "Query locators for every unsorted directory",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				s, err := d.GatherCodes(ctx, refresh != nil && *refresh)
				printCounts(out, "Gather", []count{
					{"Directories", s.Directories}, {"Gathered", s.Gathered}, {"Skipped", s.Skipped}, {"Failed", s.Failed},
				})
				return err
			},
		},
		{
			use:    "organize",
			legacy: "organizeDirectories",
			short:  "Score, confirm and file gathered directories",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				s, err := d.Organize(ctx)
				printCounts(out, "Organize", organizeCounts(s))
				return err
			},
		},
		{
			use:    "scan",
			legacy: "scanDirectories",
			short:  "Reconcile the store with the library directory",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				s, err := d.Scan(ctx)
				printCounts(out, "Scan", scanCounts(s))
				return err
			},
		},
		{
			use:    "download-sources",
			legacy: "downloadSources",
			short:  "Fetch metadata for records that have none",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				s, err := d.DownloadSources(ctx)
				printCounts(out, "Download", downloadCounts(s))
				return err
			},
		},
		{
			use:    "import",
			legacy: "launchboxToDb",
			short:  "Copy newer catalog edits into the store",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				r, err := d.Import(ctx)
				if err != nil {
					return err
				}
				printCounts(out, "Import", reportCounts(r))
				return nil
			},
		},
		{
			use:    "export",
			legacy: "dbToLaunchbox",
			short:  "Write the store into the catalog document",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				r, err := d.Export(ctx)
				if err != nil {
					return err
				}
				printCounts(out, "Export", reportCounts(r))
				return nil
			},
		},
		{
			use:    "sync",
			legacy: "syncAll",
			short:  "Run import, scan, gather, organize, scan, download and export",
			run: func(ctx context.Context, d *pipeline.Driver, out io.Writer) error {
				s, err := d.SyncAll(ctx)
				if s.Import != nil {
					printCounts(out, "Import", reportCounts(*s.Import))
				}
				printCounts(out, "Scan", scanCounts(s.Scan))
				printCounts(out, "Gather", []count{
					{"Directories", s.Gather.Directories}, {"Gathered", s.Gather.Gathered}, {"Skipped", s.Gather.Skipped}, {"Failed", s.Gather.Failed},
				})
				printCounts(out, "Organize", organizeCounts(s.Organize))
				printCounts(out, "Rescan", scanCounts(s.Rescan))
				printCounts(out, "Download", downloadCounts(s.Download))
				if s.Export != nil {
					printCounts(out, "Export", reportCounts(*s.Export))
				}
				return err
			},
		},
	}
}

func newPhaseCommands(ctx *commandContext) []*cobra.Command {
	var refresh bool
	var cmds []*cobra.Command
	for _, p := range phases(&refresh) {
		cmd := &cobra.Command{
			Use:   p.use,
			Short: p.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withDriver(cmd, func(runCtx context.Context, d *pipeline.Driver) error {
					return p.run(runCtx, d, cmd.OutOrStdout())
				})
			},
		}
		if p.use == "get-codes" {
			cmd.Flags().BoolVar(&refresh, "refresh", false, "Query again even when a sidecar exists")
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	byLegacy := make(map[string]phase)
	for _, p := range phases(nil) {
		byLegacy[strings.ToLower(p.legacy)] = p
	}
	names := make([]string, 0, len(byLegacy))
	for _, p := range phases(nil) {
		names = append(names, p.legacy)
	}
	sort.Strings(names)

	return &cobra.Command{
		Use:       "run <script>",
		Short:     "Run an operation by its script name",
		Long:      "Run an operation by its script name: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if strings.EqualFold(name, "downloadImages") {
				return fmt.Errorf("script %q is not supported: image downloading is not part of kura", name)
			}
			p, ok := byLegacy[strings.ToLower(name)]
			if !ok {
				return fmt.Errorf("unknown script %q (valid: %s)", name, strings.Join(names, ", "))
			}
			return ctx.withDriver(cmd, func(runCtx context.Context, d *pipeline.Driver) error {
				return p.run(runCtx, d, cmd.OutOrStdout())
			})
		},
	}
}

type count struct {
	label string
	value int
}

func printCounts(out io.Writer, title string, counts []count) {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.label, strconv.Itoa(c.value)})
	}
	fmt.Fprintln(out, renderTable([]string{title, "Count"}, rows))
}

func organizeCounts(s pipeline.OrganizeSummary) []count {
	return []count{
		{"Directories", s.Directories},
		{"Filed", s.Filed},
		{"Rejected", s.Rejected},
		{"Unmatched", s.Unmatched},
		{"Deferred", s.Deferred},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
	}
}

func scanCounts(s pipeline.ScanSummary) []count {
	return []count{
		{"Directories", s.Directories},
		{"Added", s.Added},
		{"Updated", s.Updated},
		{"Restored", s.Restored},
		{"Removed", s.Removed},
		{"Ignored", s.Ignored},
		{"Failed", s.Failed},
	}
}

func downloadCounts(s pipeline.DownloadSummary) []count {
	return []count{
		{"Candidates", s.Candidates},
		{"Updated", s.Updated},
		{"Missing", s.Missing},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
	}
}

func reportCounts(r reconcile.Report) []count {
	return []count{
		{"Created", r.Created},
		{"Updated", r.Updated},
		{"Skipped", r.Skipped},
		{"Failed", r.Failed},
	}
}
