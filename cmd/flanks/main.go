package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fivetwenty-io/flanks-go/cmd/flanks/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := commands.NewRootCommand(version, commit, date).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
