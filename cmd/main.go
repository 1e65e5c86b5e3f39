package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mnemoscan/internal/app"
	"mnemoscan/internal/config"
	"mnemoscan/internal/logger"
	"mnemoscan/internal/metrics"
	"mnemoscan/internal/progress"
	"mnemoscan/internal/validate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mnemoscan",
	Short: "Validate BIP39 mnemonic phrases from a file",
	Long: `Reads candidate mnemonic phrases from an input file (one per line),
validates them concurrently, and appends the valid ones to an output
file. Progress is checkpointed so an interrupted run resumes where it
left off.`,
	SilenceUsage: true,
	RunE:         runValidation,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is none)")

	rootCmd.Flags().StringP("input", "i", "input/mnemonics.txt", "Input file with one phrase per line")
	rootCmd.Flags().StringP("output", "o", "output/valid_mnemonics.txt", "Output file for valid phrases")
	rootCmd.Flags().Int("concurrency", 0, "Number of concurrent workers (default: CPU count)")
	rootCmd.Flags().String("checkpoint", "", "Checkpoint file (default: ~/.mnemoscan_checkpoint)")
	rootCmd.Flags().Int64("checkpoint-interval", 10000, "Persist the checkpoint every N lines")
	rootCmd.Flags().Bool("dedup", false, "Skip lines already emitted by earlier runs")
	rootCmd.Flags().String("dedup-index", "", "Dedup index database (default: alongside output)")
	rootCmd.Flags().String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (disabled when empty)")
	rootCmd.Flags().Bool("show-progress", true, "Show progress display")
	rootCmd.Flags().String("log-level", "info", "Log level (debug/info/warn/error)")
}

func runValidation(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if _, err := os.Stat(cfg.Input); err != nil {
		return fmt.Errorf("input file not found at %q", cfg.Input)
	}

	runner, err := app.New(cfg, validate.Mnemonic, metrics.New(), log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, saving checkpoint and stopping...")
		cancel()
	}()

	var display *progress.Display
	if cfg.Processing.ShowProgress && progress.IsTerminalSupported() {
		display = progress.NewDisplay(runner.Tracker(), 1*time.Second)
		display.Start()
	}

	result, err := runner.Run(ctx)
	if display != nil {
		display.Stop()
	}
	if err != nil {
		return err
	}

	log.Info("Run finished",
		zap.String("state", string(result.State)),
		zap.Int64("total", result.Total),
		zap.Int64("processed", result.Processed),
		zap.Int64("valid", result.Valid),
		zap.String("elapsed", progress.FormatDuration(result.Elapsed)),
	)

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
