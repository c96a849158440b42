package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/zoof-lsp/internal/udplog"
	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print log records sent by a server started with --log-udp",
		Long: `Listen for UDP log records and print each datagram as it arrives.

Run this in a terminal while an editor drives the server:
  zoof-lsp logs
  zoof-lsp logs --addr 127.0.0.1:12013`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := udplog.Listen(ctx, addr, cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", udplog.DefaultAddr, "Address to listen on")
	return cmd
}
