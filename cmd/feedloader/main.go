// Command feedloader fetches a JSON product feed, flattens it into CSV and loads it into BigQuery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "feedloader:", err)
		os.Exit(1)
	}
}
