package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flight_sim/internal/config"
	"flight_sim/internal/database"
	"flight_sim/internal/handlers"
	"flight_sim/internal/logger"
	"flight_sim/internal/metrics"
	"flight_sim/internal/prompts"
	"flight_sim/internal/reference"
	"flight_sim/internal/services"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var version = "0.1.0"

var (
	envFile    string
	configFile string
)

func main() {
	v := viper.New()
	if err := newRootCmd(v).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flight simulator MCP server",
		Long:  `The serve command generates a flight catalog and serves the booking tools over stdio or HTTP (SSE).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), v)
		},
	}

	rootCmd := &cobra.Command{
		Use:          "flight-sim",
		Short:        "Mock airline booking backend exposed over MCP",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "Path to a .env file")
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("transport", "", "Transport: stdio or http")
	flags.String("http-addr", "", "Listen address for the http transport")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Int64("seed", 0, "Generator seed, 0 for a time based seed")
	flags.Int("days", 0, "Days of flights to generate")
	flags.String("cache", "", "Search cache backend: memory, redis or none")

	for key, flag := range map[string]string{
		"server.transport": "transport",
		"server.http_addr": "http-addr",
		"log.level":        "log-level",
		"generator.seed":   "seed",
		"generator.days":   "days",
		"cache.backend":    "cache",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "flight-sim", version)
		},
	})
	return rootCmd
}

func serve(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v, envFile, configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("Starting flight simulator",
		zap.String("version", cfg.Server.Version),
		zap.String("env", cfg.Env),
		zap.String("transport", cfg.Server.Transport))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", zap.Error(err))
		return err
	}
	defer app.close(log)

	app.scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.scheduler.Stop(stopCtx)
	}()

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		return serveHTTP(ctx, cfg, app, log)
	default:
		log.Info("Serving MCP over stdio")
		if err := server.ServeStdio(app.server.MCP()); err != nil {
			log.Error("Stdio server stopped", zap.Error(err))
			return err
		}
		return nil
	}
}

type application struct {
	server    *handlers.Server
	scheduler *services.Scheduler
	cache     database.SearchCache
}

func (a *application) close(log *zap.Logger) {
	if err := a.cache.Close(); err != nil {
		log.Warn("Failed to close search cache", zap.Error(err))
	}
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	ref, err := reference.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("Generating flights", zap.Int("days", cfg.Generator.Days), zap.Int64("seed", seed))
	start := time.Now().UTC().Truncate(24 * time.Hour)
	flights := services.NewFlightGenerator(ref, rand.New(rand.NewSource(seed))).Generate(start, cfg.Generator.Days)

	cache, err := newSearchCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	catalog := services.NewFlightCatalog(ref, flights, services.CatalogOptions{
		Cache:            cache,
		Rand:             rand.New(rand.NewSource(seed + 1)),
		DelayProbability: cfg.Simulation.DelayProbability,
		Logger:           log,
		Metrics:          m,
	})
	m.SetFlights(catalog.Count())

	payments := services.NewPaymentService(cfg.Payment.FailureRate, rand.New(rand.NewSource(seed+2)), log, m)
	ledger := services.NewBookingLedger(catalog, services.LedgerOptions{
		Payments:  payments,
		Reconcile: cfg.Inventory.Reconcile,
		Logger:    log,
		Metrics:   m,
	})
	alerts := services.NewPriceAlertService(catalog, log, m)

	pm, err := prompts.NewManager(log)
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	srv, err := handlers.NewServer(handlers.Services{
		Catalog:   catalog,
		Ledger:    ledger,
		Ancillary: services.NewAncillaryService(ledger, ref, log, m),
		Seats:     services.NewSeatService(ledger, ref, log, m),
		Groups:    services.NewGroupService(ledger, log),
		Alerts:    alerts,
		Prompts:   pm,
	}, handlers.Options{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Rand:    rand.New(rand.NewSource(seed + 3)),
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	scheduler, err := services.NewScheduler(cfg.Simulation.Schedule, catalog, alerts, log)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	return &application{server: srv, scheduler: scheduler, cache: cache}, nil
}

func newSearchCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (database.SearchCache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisAddr, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return database.NewRedisSearchCache(client, cfg.TTL), nil
	case config.CacheNone:
		return database.NoopSearchCache{}, nil
	default:
		return database.NewMemorySearchCache(cfg.TTL), nil
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, app *application, log *zap.Logger) error {
	router := app.server.NewRouter(handlers.RouterOptions{
		BaseURL:         baseURL(cfg.Server.HTTPAddr),
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
	})

	// no WriteTimeout: SSE streams stay open
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("HTTP server exited")
	return nil
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
