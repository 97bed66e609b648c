package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-script-cache/monitor"
	"github.com/goliatone/go-script-cache/pkg/di"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the scripts, tags and script_tags tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				if err := c.Store().Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func newWarmupCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Populate the cache from the store",
		Long: `Warm recently updated, newest and active scripts and the version lists
of titles with several versions. --limit sets the recently updated count;
the newest and version counts are half of it and the active count twice it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative, got %d", limit)
			}
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				sched := c.Warmup()
				if cmd.Flags().Changed("limit") {
					sched = sched.WithLimit(limit)
				}
				out := cmd.OutOrStdout()
				if !sched.Run(cmd.Context()) {
					fmt.Fprintln(out, "warmup already in progress, skipped")
					return nil
				}
				fmt.Fprintln(out, "warmup complete")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "base number of records to warm")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the last published cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				out := cmd.OutOrStdout()
				stats, ok := c.Service().PublishedCacheStats(cmd.Context())
				if !ok {
					fmt.Fprintln(out, "no cache statistics available")
					return nil
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				}
				printStats(out, stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				c.Service().ClearCacheMetrics(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "cache statistics cleared")
				return nil
			})
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Warm the cache and publish cache statistics until interrupted",
		Long: `Run periodic warmup every warmup.interval and publish this process's
cache statistics every stats.publish_interval until SIGINT or SIGTERM. Other
scriptctl invocations sharing the cache backend read the snapshot with
"stats" and reset it with "clear".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				out := cmd.OutOrStdout()
				cfg := c.Config()
				fmt.Fprintf(out, "running (warmup every %s, stats every %s)\n", cfg.Warmup.Interval, cfg.Stats.PublishInterval)
				if err := c.Run(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "stopped")
				return nil
			})
		},
	}
}

func printStats(w io.Writer, stats monitor.Stats) {
	o := stats.Overall
	fmt.Fprintln(w, "=== overall ===")
	fmt.Fprintf(w, "requests:    %d\n", o.Total)
	fmt.Fprintf(w, "hits:        %d\n", o.Hits)
	fmt.Fprintf(w, "misses:      %d\n", o.Misses)
	fmt.Fprintf(w, "hit rate:    %.2f%%\n", o.HitRate*100)
	if o.LastUpdate.IsZero() {
		fmt.Fprintln(w, "last update: n/a")
	} else {
		fmt.Fprintf(w, "last update: %s\n", o.LastUpdate.UTC().Format(time.RFC3339))
	}

	prefixes := make([]string, 0, len(stats.Keys))
	for p := range stats.Keys {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	fmt.Fprintln(w, "\n=== per key ===")
	for _, p := range prefixes {
		k := stats.Keys[p]
		fmt.Fprintf(w, "%s\n", p)
		fmt.Fprintf(w, "  hit rate: %.2f%% (%d hits, %d misses)\n", k.HitRate*100, k.Hits, k.Misses)
		fmt.Fprintf(w, "  latency:  avg %s, min %s, max %s over %d calls\n",
			k.Latency.Average, k.Latency.Min, k.Latency.Max, k.Latency.Count)
	}
}
