package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/backoffice/internal/auth"
	"github.com/backoffice/internal/config"
	"github.com/backoffice/internal/intake"
	"github.com/backoffice/internal/mailer"
	"github.com/backoffice/internal/notify"
	"github.com/backoffice/internal/store"
)

type App struct {
	config     *config.Config
	logger     *zap.SugaredLogger
	users      store.Directory
	mailer     *mailer.Transport
	dispatcher *notify.Dispatcher
}

func (app *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.users.Close(ctx); err != nil {
		app.logger.Warnw("closing user directory", "error", err)
	}
	_ = app.logger.Sync()
}

func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	users, err := store.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("open user directory: %w", err)
	}

	auth.SeedFirstAdmin(ctx, users, cfg.SeedAdminEmail, cfg.SeedAdminPassword, logger)

	transport := mailer.NewTransport(logger)
	transport.Initialize(cfg.SMTP)

	return &App{
		config:     cfg,
		logger:     logger,
		users:      users,
		mailer:     transport,
		dispatcher: notify.New(users, transport, cfg.ClientURL, logger),
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", app.config.Port),
		Handler:     app.routes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// Intake requests wait for SMTP delivery before responding.
		WriteTimeout: 60 * time.Second,
		ErrorLog:     zap.NewStdLog(app.logger.Desugar()),
	}

	// Start the server in a goroutine
	g.Go(func() error {
		app.logger.Infow("starting server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	if app.config.KafkaEnabled() {
		consumer := intake.NewConsumer(intake.Config{
			Brokers: app.config.Kafka.Brokers,
			Topic:   app.config.Kafka.Topic,
			GroupID: app.config.Kafka.GroupID,
		}, app.dispatcher, app.logger)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	// Verify SMTP in the background; the result seeds the health status.
	g.Go(func() error {
		if app.mailer.Configured() {
			app.mailer.Verify(gctx)
		}
		return nil
	})

	// Start shutdown listener
	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or parent context to fail

		app.logger.Infow("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Infow("stopped server")
	return nil
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}
