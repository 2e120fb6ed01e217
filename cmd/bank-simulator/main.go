package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/cardflow-gateway/internal/logging"
	"github.com/alovak/cardflow-gateway/internal/simulator"
	"github.com/spf13/cobra"
)

func main() {
	var (
		addr string
		log  logging.Config
	)

	cmd := &cobra.Command{
		Use:          "bank-simulator",
		Short:        "Simulated acquiring bank: card ending 0 is unavailable, odd digits authorize, even digits decline",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := simulator.NewApp(logging.New(log), addr)
			if err := app.Start(); err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			app.Shutdown()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&log.Level, "log-level", "info", "debug|info|warn|error")
	cmd.Flags().StringVar(&log.Format, "log-format", "text", "text|json")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
