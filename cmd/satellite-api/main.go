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

	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/api"
	mw "github.com/KeystonCloud/satellite/internal/api/middleware"
	"github.com/KeystonCloud/satellite/internal/config"
	"github.com/KeystonCloud/satellite/internal/core"
	"github.com/KeystonCloud/satellite/internal/db"
	"github.com/KeystonCloud/satellite/internal/deploy"
	"github.com/KeystonCloud/satellite/internal/ipfs"
	"github.com/KeystonCloud/satellite/internal/logging"
	"github.com/KeystonCloud/satellite/internal/metrics"
	"github.com/KeystonCloud/satellite/internal/nodedir"
	"github.com/KeystonCloud/satellite/internal/registry"
	"github.com/KeystonCloud/satellite/internal/worker"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "migrate" {
		migrate(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: embedded)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.CoreDatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, db.PoolOptions{
		ApplicationName: cfg.ServiceName,
		FanoutLimit:     cfg.FanoutLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	redisClient, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	checks := map[string]api.CheckFunc{"core_db": corePool.Ping}

	reg := registry.New()
	var (
		nodes     deploy.NodeSource = deploy.RegistrySource{Registry: reg, Staleness: cfg.NodeStaleness}
		directory deploy.NodeDirectory
	)
	if redisClient != nil {
		defer redisClient.Close()
		dir := nodedir.New(redisClient, cfg.NodeStaleness)
		directory = dir
		if cfg.NodeSource == config.NodeSourceDirectory {
			nodes = dir
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	sweeper := registry.NewSweeper(logger, reg, cfg.NodeCheckInterval, cfg.NodeStaleness)
	go sweeper.Run(ctx)

	supervisor := worker.NewSupervisor(logger, cfg.FanoutLimit)

	timeouts := deploy.Timeouts{
		Store:      cfg.StoreTimeout,
		Key:        cfg.KeyTimeout,
		Publish:    cfg.PublishTimeout,
		NodeDeploy: cfg.NodeDeployTimeout,
	}
	ipfsClient := ipfs.NewClient(cfg.IPFSAPIURL)
	store := core.NewStore(corePool)

	coordinator := deploy.NewCoordinator(deploy.Config{
		Store:     store,
		Publisher: deploy.NewPublisher(ipfsClient, ipfsClient, timeouts),
		Nodes:     nodes,
		Policy:    deploy.MaxNodes(cfg.MaxTargetNodes),
		Deployer:  deploy.NewNodeClient(),
		Tasks:     supervisor,
		Registry:  reg,
		Directory: directory,
		Timeouts:  timeouts,
		Logger:    logger,
	})
	gateway := deploy.NewGateway(store.Applications, ipfsClient, ipfsClient, cfg.PublishTimeout)

	limiter := mw.NewRateLimiter(cfg.NodeRateLimit, cfg.NodeRateBurst, logging.Component(logger, "node-ratelimit"))
	go limiter.RunCleanup(ctx, 10*time.Minute)

	srv := api.NewServer(logging.Component(logger, "http"), api.Deps{
		Nodes:       coordinator,
		Deploys:     coordinator,
		Content:     gateway,
		NodeLimiter: limiter,
		Checks:      checks,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("node_source", cfg.NodeSource).Msg("starting satellite API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(ctx, cfg.MetricsListenAddr)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(logger, cancel, httpServer, metricsServer, supervisor)
}

func shutdown(logger zerolog.Logger, cancel context.CancelFunc, httpServer, metricsServer *http.Server, supervisor *worker.Supervisor) {
	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	httpServer.Shutdown(shutdownCtx)

	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("background tasks did not finish")
	}
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
}

func migrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := fs.String("dir", "", "Migration files directory (default: embedded)")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate("migrate"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(cfg.CoreDatabaseURL, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}
