// Command pipeteer is the CLI entry point for pipeteer's ancillary
// services, currently just the pub-sub notification proxy. Running a
// pipeline graph itself is an embedding concern (call pipeline.RunAll
// from your own main), not something this binary does.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipeteer",
		Short: "pipeteer — durable queue-backed pipeline engine",
	}
	root.AddCommand(newProxyCmd())
	return root
}
