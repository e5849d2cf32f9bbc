package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openswap-labs/swapsync/internal/common"
	internalconfig "github.com/openswap-labs/swapsync/internal/config"
	"github.com/openswap-labs/swapsync/internal/db"
	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/fetcher"
	"github.com/openswap-labs/swapsync/internal/handlers"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/internal/metrics"
	"github.com/openswap-labs/swapsync/internal/migrations"
	"github.com/openswap-labs/swapsync/internal/rpc"
	"github.com/openswap-labs/swapsync/internal/store"
	"github.com/openswap-labs/swapsync/internal/syncer"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "swapsync",
		Short: "Cross-chain atomic swap event indexer",
		Long: "swapsync follows the orderbook, escrow and vault contracts on every " +
			"configured chain and maintains a local view of orders, locks and users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internalconfig.LoadFromFile(configPath)
			if err != nil {
				return err
			}

			fmt.Printf("config OK: %d chain(s)\n", len(cfg.Chains))

			return nil
		},
	}

	rootCmd.AddCommand(validateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := internalconfig.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentMain, cfg.Logging)
	defer log.Close() //nolint:errcheck

	log.Infof("starting swapsync with %d chain(s)", len(cfg.Chains))

	if err := migrations.RunMigrations(cfg.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	registry, err := rpc.NewRegistryFromConfig(
		ctx,
		cfg.Chains,
		cfg.Sync.Retry,
		logger.NewComponentLoggerFromConfig(common.ComponentChainClient, cfg.Logging),
	)
	if err != nil {
		return err
	}
	defer registry.Close()

	st := store.New(database, logger.NewComponentLoggerFromConfig(common.ComponentEventStore, cfg.Logging))

	decoder := events.NewDecoder(logger.NewComponentLoggerFromConfig(common.ComponentDecoder, cfg.Logging))
	dispatcher := events.NewDispatcher(logger.NewComponentLoggerFromConfig(common.ComponentDecoder, cfg.Logging))

	handlers.New(
		st,
		registry,
		logger.NewComponentLoggerFromConfig(common.ComponentHandlers, cfg.Logging),
	).RegisterAll(dispatcher)

	logFetcher := fetcher.NewLogFetcher(logger.NewComponentLoggerFromConfig(common.ComponentLogFetcher, cfg.Logging))

	syncers := make([]*syncer.Syncer, 0, len(cfg.Chains))

	for _, chain := range cfg.Chains {
		client, err := registry.Client(chain.ChainID)
		if err != nil {
			return err
		}

		syncers = append(syncers, syncer.NewSyncer(
			chain,
			cfg.Sync,
			client,
			logFetcher,
			decoder,
			dispatcher,
			st,
			logger.NewComponentLoggerFromConfig(common.ComponentSyncer, cfg.Logging),
		))
	}

	metricsServer := metrics.NewServer(cfg.Metrics, logger.NewComponentLoggerFromConfig(common.ComponentMetrics, cfg.Logging))
	if err := metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer metricsServer.Stop(context.Background()) //nolint:errcheck

	scheduler := syncer.NewScheduler(cfg, syncers, logger.NewComponentLoggerFromConfig(common.ComponentScheduler, cfg.Logging))

	if err := scheduler.Run(ctx); err != nil {
		return err
	}

	log.Infof("shutting down")

	return nil
}
