package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/airwaves-fm/stationsearch/internal/service"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the snapshot cache",
	}

	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cached content snapshot and facets",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Service.ClearCache(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the snapshot (from cache when fresh) and describe it",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := engine.Service.Snapshot(cmd.Context()); err != nil {
				return err
			}
			stats := engine.Service.Stats()
			if ctx.json() {
				return writeJSON(cmd, stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the snapshot from the content repository and store it in the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := engine.Service.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			if ctx.json() {
				return writeJSON(cmd, stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func printStats(out io.Writer, stats service.Stats) {
	if !stats.Loaded {
		fmt.Fprintln(out, "No snapshot loaded")
		return
	}
	partial := "none"
	if len(stats.Partial) > 0 {
		partial = fmt.Sprint(stats.Partial)
	}
	rows := [][]string{
		{"Snapshot", stats.SnapshotID},
		{"Created", stats.CreatedAt.Local().Format(time.RFC3339)},
		{"Age", (time.Duration(stats.AgeMs) * time.Millisecond).String()},
		{"Items", strconv.Itoa(stats.Items)},
		{"Indexed", strconv.FormatBool(stats.Indexed)},
		{"Failed types", partial},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
