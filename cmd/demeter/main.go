package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demeter/internal/auth"
	"demeter/internal/config"
	"demeter/internal/idgen"
	"demeter/internal/jobs"
	"demeter/internal/server"
	"demeter/internal/storage/sqlite"
	"demeter/internal/util"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("DEMETER_CONFIG", ""), "Path to a YAML config file")
	addrFlag := flag.String("addr", "", "HTTP listen address, overrides the config")
	dbFlag := flag.String("db", "", "Path to sqlite database file, overrides the config")
	staticFlag := flag.String("static", "", "Directory with built frontend, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *dbFlag != "" {
		cfg.Database.Path = *dbFlag
	}
	if *staticFlag != "" {
		cfg.Server.StaticDir = *staticFlag
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ids, err := idgen.New(cfg.Snowflake.DatacenterID, cfg.Snowflake.MachineID)
	if err != nil {
		logger.Error("unable to create id generator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.Database.Path, ids, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		logger.Error("unable to configure tokens", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner, err := jobs.New(store, cfg.Jobs.TokenCleanupInterval, logger)
	if err != nil {
		logger.Error("unable to schedule jobs", slog.String("error", err.Error()))
		os.Exit(1)
	}
	runner.Start()

	srv := server.New(store, tokens, logger, server.Options{
		StaticDir:         cfg.Server.StaticDir,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RequestTimeout:    cfg.Server.RequestTimeout,
		AuthRatePerMinute: cfg.Server.AuthRatePerMinute,
		SecureCookies:     cfg.Auth.SecureCookies,
		Policy:            cfg.AttributePolicy(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			slog.String("addr", httpServer.Addr),
			slog.String("db", cfg.Database.Path),
			slog.String("attribute_policy", cfg.Attributes.Policy),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := runner.Shutdown(); err != nil {
		logger.Error("failed to stop jobs", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
