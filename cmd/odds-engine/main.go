// Package main provides the entry point for the odds engine.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/darkhorses-odds/internal/config"
	"github.com/yourusername/darkhorses-odds/internal/database"
	"github.com/yourusername/darkhorses-odds/internal/historical"
	"github.com/yourusername/darkhorses-odds/internal/live"
	applogger "github.com/yourusername/darkhorses-odds/internal/logger"
	"github.com/yourusername/darkhorses-odds/internal/metrics"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
	"github.com/yourusername/darkhorses-odds/internal/repository"
	"github.com/yourusername/darkhorses-odds/internal/snapshot"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	dateFlag   string
	daysFlag   int

	cfg    *config.Config
	appLog *logrus.Logger
	db     *database.DB
	api    *racingapi.Client
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	historicalCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date to reconcile (YYYY-MM-DD, default yesterday)")
	historicalCmd.Flags().IntVar(&daysFlag, "days", 1, "Number of days to reconcile, ending at --date")
}

var rootCmd = &cobra.Command{
	Use:   "odds-engine",
	Short: "Horse racing odds acquisition and normalization engine",
	Long: `Collects live bookmaker odds on a proximity-adaptive schedule and
reconciles historical racecards with official results into settled records.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd.Context()); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("odds-engine %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the live odds collection loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd.Context())
	},
}

var historicalCmd = &cobra.Command{
	Use:   "historical",
	Short: "Reconcile racecards with results for specific dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistorical(cmd.Context())
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill the historical odds table, then run daily maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackfill(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(versionCmd, liveCmd, historicalCmd, backfillCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Overlay secrets before validation so required credentials can live
	// solely in Secrets Manager
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := cfg.AWS.Region
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		secretName := cfg.AWS.SecretName
		if secretName == "" {
			secretName = os.Getenv("AWS_SECRET_NAME")
		}
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS region and secret name must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = applogger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"version":     Version,
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("odds engine starting")

	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	appLog.Info("database connection established")

	httpLogger := log.New(os.Stdout, "racing-api: ", log.LstdFlags)
	httpClient := racingapi.NewRateLimitedHTTPClient(racingapi.HTTPClientConfig{
		Timeout:           cfg.RacingAPI.APITimeout(),
		MaxRetries:        cfg.RacingAPI.MaxRetries,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         cfg.RacingAPI.RequestsPerSecond,
		Burst:             cfg.RacingAPI.BurstSize,
		CircuitBreakerMax: 5,
	}, httpLogger)
	api = racingapi.NewClient(&cfg.RacingAPI, httpClient, cfg.Historical.ResultsPageLimit, applogger.WithComponent(appLog, "racing-api"))

	if cfg.Metrics.Enabled {
		startMetricsServer()
	}

	return nil
}

func teardown() {
	if api != nil {
		if err := api.Close(); err != nil {
			appLog.WithError(err).Error("failed to close API client")
		}
	}
	if db != nil {
		db.Close()
	}
}

func startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		appLog.WithField("addr", addr).Info("metrics server listening")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("metrics server stopped")
		}
	}()
}

func runLive(ctx context.Context) error {
	liveRepo := repository.NewPostgresLiveOddsRepository(db)
	statsRepo := repository.NewPostgresStatisticsRepository(db)

	invalidator := snapshot.NewInvalidator(&cfg.Redis, applogger.WithComponent(appLog, "invalidator"))
	defer func() {
		if err := invalidator.Close(); err != nil {
			appLog.WithError(err).Error("failed to close invalidator")
		}
	}()

	engine := snapshot.NewEngine(
		liveRepo,
		invalidator,
		cfg.LiveOdds.DisableChangeDetection,
		applogger.WithComponent(appLog, "snapshot"),
	)

	collector := live.NewCollector(
		api,
		engine,
		statsRepo,
		&cfg.LiveOdds,
		cfg.RacingAPI.Regions,
		applogger.WithComponent(appLog, "collector"),
	)

	scheduler := live.NewScheduler(collector, &cfg.LiveOdds, applogger.WithComponent(appLog, "scheduler"))

	sweeper := live.NewSweeper(liveRepo, cfg.LiveOdds.Retention(), applogger.WithComponent(appLog, "retention"))
	go sweeper.Run(ctx)

	appLog.Info("starting live odds collection")
	err := scheduler.Run(ctx)
	if err == context.Canceled {
		appLog.Info("live collection stopped")
		return nil
	}
	return err
}

func runHistorical(ctx context.Context) error {
	end := time.Now().UTC().AddDate(0, 0, -1)
	if dateFlag != "" {
		var err error
		end, err = time.Parse("2006-01-02", dateFlag)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateFlag, err)
		}
	}
	if daysFlag < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	histRepo := repository.NewPostgresHistoricalRepository(db)
	reconciler := historical.NewReconciler(api, histRepo, cfg.RacingAPI.Regions, applogger.WithComponent(appLog, "reconciler"))

	for i := daysFlag - 1; i >= 0; i-- {
		date := end.AddDate(0, 0, -i)
		if _, err := reconciler.ReconcileDate(ctx, date); err != nil {
			return err
		}
	}
	return nil
}

func runBackfill(ctx context.Context) error {
	histRepo := repository.NewPostgresHistoricalRepository(db)
	reconciler := historical.NewReconciler(api, histRepo, cfg.RacingAPI.Regions, applogger.WithComponent(appLog, "reconciler"))
	backfill := historical.NewBackfill(reconciler, histRepo, &cfg.Historical, applogger.WithComponent(appLog, "backfill"))

	if err := backfill.Run(ctx); err != nil {
		if err == context.Canceled {
			appLog.Info("backfill stopped")
			return nil
		}
		return err
	}

	// Backfill reached its coverage target; keep the table current with
	// the daily maintenance schedule until shut down
	if err := backfill.StartMaintenance(ctx); err != nil {
		return err
	}
	defer backfill.StopMaintenance()

	<-ctx.Done()
	appLog.Info("maintenance stopped")
	return nil
}
