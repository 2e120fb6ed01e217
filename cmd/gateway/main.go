package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/cardflow-gateway/gateway"
	"github.com/alovak/cardflow-gateway/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gateway",
		Short:         "Card payment gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (GATEWAY_* env vars override it)")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(configCmd(&configPath))

	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payment gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateway.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Log)
			app := gateway.NewApp(logger, cfg)
			if err := app.Start(); err != nil {
				return fmt.Errorf("starting gateway: %w", err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			app.Shutdown()
			return nil
		},
	}
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateway.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateway.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	})

	return cmd
}
