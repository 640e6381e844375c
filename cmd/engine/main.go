// Package main provides the entry point for the wager engine service.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/config"
	"github.com/yourusername/wager-engine/internal/feed"
	"github.com/yourusername/wager-engine/internal/health"
	"github.com/yourusername/wager-engine/internal/ledger"
	"github.com/yourusername/wager-engine/internal/logger"
	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/settlement"
	"github.com/yourusername/wager-engine/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithDefaults(os.Getenv("WAGER_ENGINE_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("Wager engine starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the transaction store
	openingBalance := decimal.NewFromFloat(cfg.Ledger.OpeningBalance)
	pg, err := store.NewPostgresStore(ctx, cfg.GetDatabaseDSN(), cfg.Database.MaxConnections, openingBalance)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer pg.Close()

	appLog.Info("Database connection established")

	lg := ledger.New(pg, appLog)

	// Results feed and settlement scheduler
	resultsClient := feed.NewResultsClient(&cfg.Feeds.Results, appLog)
	defer resultsClient.Close()

	scheduler := settlement.NewScheduler(lg, resultsClient, appLog)
	if cfg.Settlement.Enabled {
		if err := scheduler.Schedule(cfg.Settlement.CronSchedule); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule settlement polling")
		}
		if err := scheduler.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start settlement scheduler")
		}
		defer scheduler.Stop()
	} else {
		appLog.Info("Settlement polling disabled")
	}

	// Streaming results are a fast path on top of the polling safety net
	var stream *feed.ResultStream
	if cfg.Feeds.Results.StreamURL != "" {
		stream = feed.NewResultStream(cfg.Feeds.Results.StreamURL, cfg.Feeds.Results.APIKey, appLog)
		stream.AddHandler(func(contestID string) error {
			settleCtx, settleCancel := context.WithTimeout(ctx, time.Minute)
			defer settleCancel()
			return scheduler.SettleContest(settleCtx, contestID)
		})
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				appLog.WithError(err).Error("Results stream stopped")
			}
		}()
	}

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer := &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.Metrics.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	// Health endpoint
	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthCfg := health.Config{
			ServiceName: cfg.App.Name,
			Port:        strconv.Itoa(cfg.Health.Port),
			Logger:      appLog,
			Store:       pg,
		}
		if stream != nil {
			healthCfg.Stream = stream
		}
		healthServer = health.NewServer(healthCfg)
		if err := healthServer.Start(ctx); err != nil {
			appLog.WithError(err).Fatal("Failed to start health server")
		}
		healthServer.SetReady(true)
	}

	appLog.WithFields(logrus.Fields{
		"settlement_enabled": cfg.Settlement.Enabled,
		"stream_enabled":     stream != nil,
		"metrics_enabled":    cfg.Metrics.Enabled,
	}).Info("Wager engine running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	if healthServer != nil {
		healthServer.SetReady(false)
	}
	cancel()

	// Give components time to cleanup
	time.Sleep(2 * time.Second)

	appLog.Info("Wager engine shut down successfully")
}
