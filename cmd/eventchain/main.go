// Command eventchain watches a chain engine and keeps an append-only log of
// the events that match an eventchain config.
package main

import (
	"os"

	"github.com/roach88/eventchain/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
