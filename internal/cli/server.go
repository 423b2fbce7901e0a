package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rounds-service/internal/app"
	"rounds-service/internal/auth"
	"rounds-service/internal/config"
	"rounds-service/internal/docstore"
	"rounds-service/internal/docstore/memory"
	mongostore "rounds-service/internal/docstore/mongo"
	pgstore "rounds-service/internal/docstore/postgres"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
	"rounds-service/internal/seed"
	transport "rounds-service/internal/transport/http"
	"rounds-service/internal/warnstore"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the event server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		np, err := events.Connect(cfg.NATS.URL, log)
		if err != nil {
			return err
		}
		defer np.Close()
		pub = np
	}

	gw := gateway.New(store)
	cache := gateway.NewRoundCache(gw, config.TTLDuration(cfg.Cache.TTL, 5*time.Minute))
	queue := gateway.NewWriteQueue(store, log, 256, 3, 200*time.Millisecond)
	defer queue.Close()

	var counters warnstore.Store = warnstore.NewMemory()
	if redisClient != nil {
		counters = warnstore.NewRedis(redisClient)
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
	identity := app.NewIdentityService(gw, tokens, cfg.Auth.AdminEmails, log)
	proctor := app.NewProctorService(gw, counters, cfg.MaxWarnings(), cfg.Proctor.UnlockPassphrase, pub, log)
	board := app.NewLeaderboardService(gw)
	hub := app.NewHub(board, log)
	defer hub.Close()
	attempts := app.NewAttemptService(gw, cache, queue, pub, proctor, hub, log)
	admin := app.NewAdminService(gw, cache, hub, log)

	schedule := cfg.Sweep.Schedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	sweeper, err := app.StartSweeper(schedule, attempts, log)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	srv := transport.NewServer(identity, attempts, proctor, board, admin, hub, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting rounds service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore picks the document store backend: Mongo first, then Postgres,
// falling back to the in-memory store seeded with the default content.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (docstore.Store, func(), error) {
	switch {
	case cfg.Mongo.URI != "":
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		log.Info("using mongo document store", zap.String("database", cfg.Mongo.Database))
		return mongostore.NewStore(client, cfg.Mongo.Database), cleanup, nil

	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres document store")
		return pgstore.NewStore(pool), pool.Close, nil

	default:
		store := memory.NewStore()
		if err := seed.Apply(ctx, store, &cfg, log); err != nil {
			return nil, nil, err
		}
		log.Warn("no store configured, using in-memory store with seed data")
		return store, func() {}, nil
	}
}
