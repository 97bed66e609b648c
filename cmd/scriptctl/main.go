// Command scriptctl runs maintenance tasks against a script cache deployment:
// schema migration, cache warmup and cache statistics. "scriptctl run" keeps a
// process warming the cache and publishing its statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
