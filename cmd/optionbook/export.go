package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/export"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/notify"
	"github.com/dgnsrekt/optionbook/internal/staging"
)

func exportCmd() *cobra.Command {
	var (
		dryRun bool
		batch  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every configured chain to CSV",
		Long: `Fetch the order book once and write one CSV per asset, product and expiry.

Files land in <export.directory>/<batch>/<asset>/<product>/<DDMMMYY>.csv once
every chain has been written.

Examples:
  optionbook export
  optionbook export --batch 2026-01-05 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			if batch == "" {
				batch = start.UTC().Format("2006-01-02T150405Z")
			}

			snap, err := fetchSnapshot(ctx)
			if err != nil {
				return err
			}
			book := snap.Book()
			feeds := cfg.Feeds.Feeds()

			tasks := export.Plan(book, feeds, cfg.Assets(), cfg.Products(), batch)
			logger.Info("generated tasks", zap.Int("count", len(tasks)), zap.String("batch", batch))

			if dryRun {
				for _, t := range tasks {
					fmt.Fprintf(cmd.OutOrStdout(), "Would export: %s\n", t)
				}
				return nil
			}

			stgMgr := staging.NewManager(cfg.Export.Directory)
			if err := stgMgr.PrepareStaging(batch); err != nil {
				return fmt.Errorf("preparing staging: %w", err)
			}

			expMgr := export.NewManager(greeks.NewPricer(cfg.Pricing), feeds, stgMgr, cfg.Export.Workers, logger)
			notifier := notify.New(&cfg.Notify, logger)

			result, err := expMgr.Execute(ctx, book, tasks)
			duration := time.Since(start)
			if err != nil {
				if result == nil {
					result = &export.BatchResult{Total: len(tasks)}
				}
				_ = stgMgr.CleanupStaging(batch)
				if nErr := notifier.SendExportFailure(ctx, result, duration, err); nErr != nil {
					logger.Warn("failed to send notification", zap.Error(nErr))
				}
				return err
			}

			// Only publish complete batches
			if result.Failed == 0 && result.Success > 0 {
				if err := stgMgr.CommitStaging(batch); err != nil {
					logger.Warn("failed to commit staging", zap.String("batch", batch), zap.Error(err))
				}
			}
			if err := stgMgr.CleanupStaging(batch); err != nil {
				logger.Warn("failed to cleanup staging", zap.String("batch", batch), zap.Error(err))
			}

			logger.Info("export complete",
				zap.Int("total", result.Total),
				zap.Int("success", result.Success),
				zap.Int("empty", result.Empty),
				zap.Int("failed", result.Failed),
				zap.Duration("duration", duration),
			)

			if result.Failed > 0 {
				for _, e := range result.Errors {
					logger.Error("export error", zap.String("error", e))
				}
				failErr := fmt.Errorf("%d exports failed", result.Failed)
				if nErr := notifier.SendExportFailure(ctx, result, duration, failErr); nErr != nil {
					logger.Warn("failed to send notification", zap.Error(nErr))
				}
				return failErr
			}

			if nErr := notifier.SendExportSuccess(ctx, result, duration); nErr != nil {
				logger.Warn("failed to send notification", zap.Error(nErr))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be exported")
	cmd.Flags().StringVar(&batch, "batch", "", "batch directory name (default UTC timestamp)")

	return cmd
}
