package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/api"
	"github.com/dgnsrekt/optionbook/internal/archive"
	"github.com/dgnsrekt/optionbook/internal/config"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/logging"
	"github.com/dgnsrekt/optionbook/internal/market"
	"github.com/dgnsrekt/optionbook/internal/notify"
	"github.com/dgnsrekt/optionbook/internal/server"
	"github.com/dgnsrekt/optionbook/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("OPTIONBOOK_CONFIG"), "config file path (or set OPTIONBOOK_CONFIG)")
	verbose := flag.Bool("verbose", false, "development logging")
	flag.Parse()

	// Missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("sourceMode", cfg.Source.Mode),
		zap.Duration("refreshInterval", cfg.Refresh.Interval),
		zap.Float64("volatility", cfg.Pricing.Volatility),
		zap.Float64("riskFreeRate", cfg.Pricing.RiskFreeRate),
		zap.Bool("archiveEnabled", cfg.Archive.Enabled),
		zap.Bool("wsEnabled", cfg.WS.Enabled),
		zap.Duration("wsStreamInterval", cfg.WS.StreamInterval),
	)

	// Order book source
	var client api.Client
	switch cfg.Source.Mode {
	case config.SourceLive:
		client = api.NewClient(
			cfg.Source.URL,
			cfg.Source.RatePerSecond,
			cfg.Source.Timeout,
			cfg.Source.RetryDelay,
			cfg.Source.RetryCount,
			logger,
		)
	case config.SourceArchive:
		fileClient, err := archive.NewFileClient(cfg.Archive.Directory, logger)
		if err != nil {
			logger.Error("failed to open archive", zap.Error(err))
			return 1
		}
		defer fileClient.Close()
		client = fileClient
	default:
		logger.Error("unknown source mode", zap.String("mode", cfg.Source.Mode))
		return 1
	}

	pricer := greeks.NewPricer(cfg.Pricing)
	feeds := cfg.Feeds.Feeds()
	store := market.NewStore()
	notifier := notify.New(&cfg.Notify, logger)

	opts := []market.PollerOption{
		market.WithNotifier(notifier, cfg.Notify.FailureThreshold),
	}

	// Recording an archive replay would only duplicate it
	if cfg.Archive.Enabled && cfg.Source.Mode == config.SourceLive {
		recorder, err := archive.NewRecorder(cfg.Archive.Directory, logger)
		if err != nil {
			logger.Error("failed to create archive recorder", zap.Error(err))
			return 1
		}
		defer recorder.Close()
		opts = append(opts, market.WithRecorder(recorder))
	}

	poller := market.NewPoller(client, store, cfg.Refresh.Interval, logger, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket components (optional)
	var hub *ws.Hub
	if cfg.WS.Enabled {
		hub = ws.NewHub(logger)
		go hub.Run(ctx)

		streamer, err := ws.NewChainStreamer(hub, store, pricer, feeds, cfg.WS.StreamInterval, logger)
		if err != nil {
			logger.Error("failed to create chain streamer", zap.Error(err))
			return 1
		}
		poller.AddListener(streamer.OnSnapshot)
		go streamer.Run(ctx)

		logger.Info("WebSocket enabled", zap.Duration("streamInterval", cfg.WS.StreamInterval))
	}

	go poller.Run(ctx)

	srv := server.NewServer(store, server.NewRefreshManager(poller, logger), pricer, feeds, hub, logger)

	router, err := server.NewRouter(srv, cfg.Server.AllowedOrigins, logger)
	if err != nil {
		logger.Error("failed to create router", zap.Error(err))
		return 1
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Stops the poller, hub and streamer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
