package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reader-go/internal/config"
	"reader-go/internal/controller"
	"reader-go/internal/handler"
	"reader-go/internal/service/lookup"
	"reader-go/internal/service/reader"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var appConfigPath = flag.String("app", "app.yaml", "Path to app configuration file")
	var port = flag.Int("port", 0, "Server port, overrides app.port")
	flag.Parse()

	cfg, err := config.LoadConfig(*appConfigPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}

	logger, err := newLogger(cfg.App)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.Int("port", cfg.App.Port),
		zap.String("api_endpoint", cfg.API.Endpoint),
		zap.Duration("lookup_timeout", cfg.App.LookupTimeout),
		zap.Duration("retry_interval", cfg.App.RetryInterval),
		zap.Int("max_sessions", cfg.App.MaxSessions),
		zap.Duration("session_idle_timeout", cfg.App.IdleTimeout),
		zap.Int("cache_size", cfg.Cache.Size),
		zap.Duration("seen_content_ttl", cfg.Cache.SeenContentTTL),
		zap.Strings("allowed_origins", cfg.Auth.AllowedOrigins),
		zap.Bool("auth_disabled", cfg.Auth.Disabled))

	creds := lookup.NewCredentials(cfg.API.AccessToken, "")
	client := lookup.NewClient(cfg.API.Endpoint, cfg.App.LookupTimeout, creds, logger)
	dict, err := lookup.NewCachedClient(client, cfg.Cache.Size, cfg.Cache.SeenContentTTL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize lookup cache", zap.Error(err))
	}

	manager, err := reader.NewManager(dict, client, reader.Options{
		LookupTimeout: cfg.App.LookupTimeout,
		RetryInterval: cfg.App.RetryInterval,
		MaxSessions:   cfg.App.MaxSessions,
		IdleTimeout:   cfg.App.IdleTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session manager", zap.Error(err))
	}

	var auth handler.Authenticator
	if !cfg.Auth.Disabled {
		auth = handler.CookieAuthenticator{Cookie: cfg.Auth.SessionCookie}
	} else {
		logger.Warn("Authentication is disabled")
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go manager.RunJanitor(janitorCtx, time.Minute)

	readerController := controller.NewReaderController(manager, handler.OriginChecker(cfg.Auth.AllowedOrigins), logger)
	router := handler.SetupRouter(readerController, auth, cfg.Auth, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	stopJanitor()
	manager.Shutdown()
	logger.Info("Server stopped")
}

func newLogger(app config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(app.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", app.LogLevel, err)
	}
	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(level)
	cfgZap.OutputPaths = []string{"stdout"}
	if app.LogFile != "" {
		cfgZap.OutputPaths = append(cfgZap.OutputPaths, app.LogFile)
	}
	return cfgZap.Build()
}
