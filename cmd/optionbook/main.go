package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/config"
	"github.com/dgnsrekt/optionbook/internal/logging"
)

var (
	cfgFile string
	envFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "optionbook",
		Short:         "Price option structures and inspect the live order book",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				var err error
				logger, err = logging.New(config.LoggingConfig{Level: "info"}, verbose)
				return err
			}

			if err := loadEnv(envFile); err != nil {
				return err
			}

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger, err = logging.New(cfg.Logging, verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("OPTIONBOOK_CONFIG"), "config file path (or set OPTIONBOOK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading config (default .env if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(greeksCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(expiriesCmd())
	rootCmd.AddCommand(exportCmd())

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

// loadEnv loads an explicit dotenv file, or .env when it exists.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}
	return nil
}
