package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	app "github.com/kode4food/atelier"
	"github.com/kode4food/atelier/internal/config"
	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/flows"
	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/internal/server"
	"github.com/kode4food/atelier/pkg/log"
)

type atelier struct {
	cfg        *config.Config
	redis      *redis.Client
	docs       *docs.Store
	hub        *events.Hub
	executor   *flow.Executor
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectDocs   = errors.New("failed to connect to document store")
	ErrBuildRegistry = errors.New("failed to build flow registry")
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("Failed to load .env file", log.Error(err))
		os.Exit(1)
	}

	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &atelier{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *atelier) run() error {
	if err := s.initializeStore(); err != nil {
		return err
	}

	if err := s.initializeExecutor(); err != nil {
		_ = s.redis.Close()
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *atelier) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Atelier starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("model_base_url", s.cfg.Model.BaseURL),
		slog.String("text_model", s.cfg.Model.TextModel),
		slog.String("image_model", s.cfg.Model.ImageModel),
		slog.Duration("model_timeout", s.cfg.Model.Timeout),
		slog.String("docs_redis_addr", s.cfg.Docs.Addr),
		slog.Int("docs_redis_db", s.cfg.Docs.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *atelier) initializeStore() error {
	s.redis = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Docs.Addr,
		Password: s.cfg.Docs.Password,
		DB:       s.cfg.Docs.DB,
	})

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		_ = s.redis.Close()
		return fmt.Errorf("%w: %w", ErrConnectDocs, err)
	}

	s.docs = docs.NewStore(s.redis, docs.Config{
		Prefix:       s.cfg.Docs.Prefix,
		ShareBaseURL: s.cfg.ShareBaseURL,
	})
	return nil
}

func (s *atelier) initializeExecutor() error {
	reg, err := flows.NewRegistry(flows.Models{
		Text:  s.cfg.Model.TextModel,
		Image: s.cfg.Model.ImageModel,
	}, s.docs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildRegistry, err)
	}

	client := model.NewHTTPClient(model.HTTPConfig{
		BaseURL: s.cfg.Model.BaseURL,
		APIKey:  s.cfg.Model.APIKey,
		Timeout: s.cfg.Model.Timeout,
	})

	s.hub = events.NewHub()
	s.executor = flow.NewExecutor(reg, client, flow.WithPublisher(s.hub))

	slog.Info("Flows registered",
		slog.Any("flows", reg.Names()))
	return nil
}

func (s *atelier) startServer() {
	s.apiServer = server.NewServer(s.executor, s.hub, s.docs)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *atelier) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.hub.Close()

	if err := s.redis.Close(); err != nil {
		slog.Error("Document store shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
