package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-script-cache/pkg/di"
)

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "scriptctl",
		Short:         "Manage the script store and its cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file (defaults apply when empty)")

	root.AddCommand(
		newMigrateCmd(opts),
		newWarmupCmd(opts),
		newStatsCmd(opts),
		newClearCmd(opts),
		newRunCmd(opts),
	)
	return root
}

func (o *options) load() (di.Config, error) {
	if o.configPath == "" {
		return di.DefaultConfig(), nil
	}
	return di.LoadConfig(o.configPath)
}

// withContainer builds a Container for one command and closes it afterwards.
func (o *options) withContainer(ctx context.Context, fn func(*di.Container) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()
	return fn(container)
}
