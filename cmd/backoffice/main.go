package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kasirinaja/backoffice/internal/config"
)

var (
	sourceKind   string
	screensFile  string
	currentStore int64
	jsonOutput   bool
	logFormat    string
	logLevel     string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "backoffice <command>",
	Short:         "Browse kasirinaja back-office lists from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("source") {
			loaded.Source = sourceKind
		}
		if cmd.Flags().Changed("screens") {
			loaded.ScreensFile = screensFile
		}
		if cmd.Flags().Changed("log-format") {
			loaded.LogFormat = logFormat
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if err := validateConfig(loaded); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceKind, "source", "", "list source: http, postgres or memory (default from environment)")
	rootCmd.PersistentFlags().StringVar(&screensFile, "screens", "", "TOML file with screen declarations")
	rootCmd.PersistentFlags().Int64Var(&currentStore, "current-store", 0, "switch the current store before running")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or console")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(screensCmd)
	rootCmd.AddCommand(storesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
