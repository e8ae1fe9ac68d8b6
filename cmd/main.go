package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/config"
	"github.com/JonasSouza871/rfid-catalog/internal/station"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "rfid-catalog",
		Short: "RFID item catalog — flash-persisted tag registry with HTTP and console frontends",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog station",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up logger
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	logger.Info("Starting catalog station")

	ctrl := station.NewController(cfg, logger)
	return ctrl.Run(context.Background())
}
