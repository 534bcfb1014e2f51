package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"membercrm/db"
	"membercrm/handlers"
	"membercrm/logger"
	"membercrm/middleware"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending schema migrations before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := connectDB(); err != nil {
		return err
	}
	defer db.GetDB().Close()

	if migrate {
		m, err := db.NewMigrator(db.GetDB(), appLog)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
	}

	transport, err := services.NewTransport(ctx, cfg, appLog.Named("mail"))
	if err != nil {
		return fmt.Errorf("mail transport: %w", err)
	}
	mailer := services.NewMailer(transport, cfg.Mail.SendDelay, appLog.Named("mailer"))

	var storage services.ObjectStorage
	if cfg.Storage.Enabled() {
		s3, err := services.NewS3Storage(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		storage = s3
	} else {
		appLog.Info("Cover uploads disabled (storage.bucket not set)")
	}

	revocations, limiter, closeRedis, err := sessionStores(ctx)
	if err != nil {
		return err
	}
	defer closeRedis()

	if cfg.JWT.Ephemeral {
		appLog.Warn("jwt.secret not set, using a random key; sessions will not survive a restart")
	}
	sessions := services.NewSessions(cfg.SigningSecret(), cfg.JWT.TTL, cfg.JWT.Issuer, revocations)

	api := handlers.New(handlers.Deps{
		Config:   cfg,
		Logger:   appLog,
		Mailer:   mailer,
		Storage:  storage,
		Sessions: sessions,
		Slack:    services.NewSlackNotifier(cfg.Slack.WebhookURL, appLog.Named("slack")),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		logger.RequestID(),
		logger.GinMiddleware(appLog),
		logger.Recovery(appLog),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.Register(engine, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env),
			zap.String("mail", transport.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	appLog.Info("Server exited gracefully")
	return nil
}

// sessionStores uses Redis when configured so revocations and login limits
// are shared between instances.
func sessionStores(ctx context.Context) (services.Revocations, services.Limiter, func(), error) {
	rl := cfg.RateLimit
	if cfg.Redis.Addr == "" {
		appLog.Info("Redis not configured, keeping sessions and rate limits in memory")
		return services.NewMemoryRevocations(), services.NewMemoryLimiter(rl.LoginRequests, rl.LoginWindow), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	closeFn := func() { _ = client.Close() }
	return services.NewRedisRevocations(client),
		services.NewRedisLimiter(client, "crm:rl:", rl.LoginRequests, rl.LoginWindow),
		closeFn, nil
}
