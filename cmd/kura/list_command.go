package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kura/internal/config"
	"kura/internal/preflight"
	"kura/internal/resolution"
	"kura/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var includeDeleted bool
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				games, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				langs := cfg.Locators.PreferredLanguages
				rows := make([][]string, 0, len(games))
				for _, g := range games {
					if g.Deleted && !includeDeleted {
						continue
					}
					if missingOnly && g.HasMetadata() {
						continue
					}
					rows = append(rows, []string{g.ID, g.Title(langs), g.SourceName, g.Engine, recordState(g), g.ExternalID})
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No records")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Source", "Engine", "State", "External ID"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeDeleted, "all", false, "Include records whose library directory is gone")
	cmd.Flags().BoolVar(&missingOnly, "missing-metadata", false, "Only records without downloaded metadata")
	return cmd
}

func recordState(g *store.Game) string {
	var flags []string
	switch {
	case g.Deleted:
		flags = append(flags, "deleted")
	case g.ApplicationPath == "":
		flags = append(flags, "no executable")
	}
	if !g.HasMetadata() {
		flags = append(flags, "no metadata")
	}
	if g.ForceSourceUpdate {
		flags = append(flags, "refresh queued")
	}
	if len(flags) == 0 {
		return "ok"
	}
	return strings.Join(flags, ", ")
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize unsorted directories and store records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				inbox := summarizeInbox(cfg)
				fmt.Fprintln(out, renderTable([]string{"Unsorted", "Count"}, [][]string{
					{"Pending gather", strconv.Itoa(inbox.pending)},
					{"Awaiting decision", strconv.Itoa(inbox.gathered)},
					{"Resolved, not filed", strconv.Itoa(inbox.resolved)},
					{"Excluded (no match)", strconv.Itoa(inbox.excluded)},
					{"Unreadable sidecar", strconv.Itoa(inbox.invalid)},
				}))

				games, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				var active, deleted, missing, unexported int
				for _, g := range games {
					if g.Deleted {
						deleted++
						continue
					}
					active++
					if !g.HasMetadata() {
						missing++
					}
					if g.ExternalID == "" {
						unexported++
					}
				}
				fmt.Fprintln(out, renderTable([]string{"Store", "Count"}, [][]string{
					{"Active records", strconv.Itoa(active)},
					{"Deleted records", strconv.Itoa(deleted)},
					{"Missing metadata", strconv.Itoa(missing)},
					{"Not yet exported", strconv.Itoa(unexported)},
				}))

				catalogPath := cfg.CatalogPath()
				if catalogPath == "" {
					catalogPath = "not configured"
				}
				fmt.Fprintf(out, "Store: %s\nCatalog: %s\n", st.Path(), catalogPath)
				printChecks(out, preflight.CheckPaths(cfg))
				return nil
			})
		},
	}
}

type inboxSummary struct {
	pending  int
	gathered int
	resolved int
	excluded int
	invalid  int
}

func summarizeInbox(cfg *config.Config) inboxSummary {
	var s inboxSummary
	for _, root := range cfg.Paths.UnsortedDirs {
		entries, err := filepath.Glob(filepath.Join(root, "*"))
		if err != nil {
			continue
		}
		for _, dir := range entries {
			if strings.HasPrefix(filepath.Base(dir), ".") || !isDir(dir) {
				continue
			}
			state, found, err := resolution.Load(dir)
			switch {
			case err != nil:
				s.invalid++
			case !found:
				s.pending++
			case state.NoMatch:
				s.excluded++
			case state.ResolvedCode != "":
				s.resolved++
			default:
				s.gathered++
			}
		}
	}
	return s
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
