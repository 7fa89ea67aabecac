package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/romanqed/pipeteer/notify"
)

func newProxyCmd() *cobra.Command {
	var pubAddr, subAddr string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "run the pub-sub wakeup proxy used to short-circuit queue polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p := notify.NewProxy(notify.ProxyConfig{PubAddr: pubAddr, SubAddr: subAddr}, log)
			return p.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&pubAddr, "pub", "p", ":5555", "bind address for publishers")
	cmd.Flags().StringVarP(&subAddr, "sub", "s", ":5556", "bind address for subscribers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}
