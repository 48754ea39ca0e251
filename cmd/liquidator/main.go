package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "liquidator",
		Short:         "Scans margin accounts and liquidates the unhealthy ones",
		Long:          "Runs the liquidation agent. Configuration is read from environment variables.",
		RunE:          runFunc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(hashPasswordCommand(), encryptKeypairCommand())
	return c
}
