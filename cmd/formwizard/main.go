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

	app "github.com/stepwise/formwizard"
	"github.com/stepwise/formwizard/internal/config"
	"github.com/stepwise/formwizard/internal/events"
	"github.com/stepwise/formwizard/internal/server"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/builder"
	"github.com/stepwise/formwizard/pkg/log"
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/wizard"
)

type formwizard struct {
	cfg        *config.Config
	store      storage.Store
	redis      *storage.RedisStore
	files      *storage.BlobFileStore
	hub        *events.Hub
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateFileStore = errors.New("failed to create file store")
	ErrConnectRedis    = errors.New("failed to connect to redis")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &formwizard{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *formwizard) run() error {
	if err := s.initializeStorage(); err != nil {
		return err
	}

	s.hub = events.NewHub()
	if err := s.startServer(); err != nil {
		return err
	}

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *formwizard) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Form wizard starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		log.Backend(s.cfg.Backend),
		slog.String("bucket_url", s.cfg.BucketURL),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *formwizard) initializeStorage() error {
	switch s.cfg.Backend {
	case config.BackendRedis:
		s.redis = storage.NewRedisStore(s.cfg.Redis)
		if err := s.redis.Ping(context.Background()); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectRedis, err)
		}
		s.store = s.redis

	case config.BackendCookie:
		// Cookie persistence needs no server-side store; the codec is
		// handed to the server below
		s.store = storage.NewMemoryStore()

	default:
		s.store = storage.NewMemoryStore()
	}

	files, err := storage.NewBlobFileStore(
		context.Background(), s.cfg.BucketURL, s.cfg.FilePrefix,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFileStore, err)
	}
	s.files = files
	return nil
}

func (s *formwizard) startServer() error {
	var codec *storage.CookieCodec
	if s.cfg.Backend == config.BackendCookie {
		c, err := storage.NewCookieCodec(s.cfg.CookieSecret)
		if err != nil {
			return err
		}
		codec = c
	}

	s.apiServer = server.NewServer(s.store, codec, s.hub)

	signup, err := signupWizard(s.files)
	if err != nil {
		return err
	}
	if err := s.apiServer.Register(signup); err != nil {
		return err
	}

	router := s.apiServer.SetupRoutes()
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
	return nil
}

// signupWizard is the built-in demonstration wizard: account details, a
// company step shown only for business plans, an optional logo upload,
// and a confirmation
func signupWizard(files storage.FileStore) (*wizard.Wizard, error) {
	return builder.NewWizard("signup").
		Step(builder.NewStep("account").
			Required("username", api.FieldString).
			Required("email", api.FieldEmail).
			Choice("plan", "personal", "business")).
		Step(builder.NewStep("company").
			Required("company", api.FieldString).
			Optional("vat", api.FieldString).
			WhenEqual("steps.account.plan", "business")).
		Step(builder.NewStep("logo").
			Optional("logo", api.FieldFile).
			WhenEqual("steps.account.plan", "business")).
		Step(builder.NewStep("confirm").
			Required("agree", api.FieldBool)).
		OnComplete(func(_ context.Context, c *wizard.Completion) error {
			slog.Info("Wizard completed",
				log.Wizard(c.Wizard),
				slog.Int("steps", len(c.Steps)))
			return nil
		}).
		WithFileStore(files).
		Build()
}

func (s *formwizard) shutdown() {
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

	if err := s.files.Close(); err != nil {
		slog.Error("File store shutdown failed", log.Error(err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Redis shutdown failed", log.Error(err))
		}
	}

	slog.Info("Server exited")
}
