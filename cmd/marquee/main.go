package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marquee/internal/adapters/api"
	"marquee/internal/adapters/authapi"
	"marquee/internal/adapters/db/file"
	"marquee/internal/adapters/db/memory"
	pgstore "marquee/internal/adapters/db/postgres"
	redisstore "marquee/internal/adapters/db/redis"
	appsession "marquee/internal/application/session"
	"marquee/internal/config"
	domain "marquee/internal/domain/session"
	"marquee/internal/infrastructure/sealer"
)

//	@title			Marquee Session Daemon API
//	@version		1.0
//	@description	Local session and authentication lifecycle service for the Marquee movie browser

//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT

//	@host		localhost:8090
//	@BasePath	/api/v1

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("api_base_url", cfg.API.BaseURL).
		Str("store_backend", cfg.Store.Backend).
		Bool("store_sealed", cfg.Store.Secret != "").
		Msg("Starting Marquee session daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open credential store")
	}
	defer closeStore()

	bridge := api.NewBridge()
	service := appsession.NewService(
		authapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout()),
		appsession.NewCredentialStore(kv),
		appsession.NewState(),
		bridge,
		bridge,
		bridge,
		domain.SystemClock{},
		appsession.Config{
			LoginLifetime:   cfg.Session.LoginLifetime(),
			RefreshLifetime: cfg.Session.RefreshLifetime(),
			Monitor: appsession.MonitorConfig{
				Interval:  cfg.Session.CheckInterval(),
				Debounce:  cfg.Session.Debounce(),
				Threshold: cfg.Session.WarnThreshold(),
				Cooldown:  cfg.Session.Cooldown(),
			},
		},
	)
	bridge.OnVisible(service.Monitor().Visible)
	unsubscribe := service.Subscribe(bridge.PublishSession)
	defer unsubscribe()

	service.Restore(ctx)

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		service.Monitor().Run(ctx)
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
	}))
	api.NewHandler(service, bridge).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Msgf("Listening on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-monitorDone
}

// openStore builds the configured KeyValueStore, sealed when a secret is set
func openStore(ctx context.Context, cfg *config.Config) (domain.KeyValueStore, func(), error) {
	var (
		kv      domain.KeyValueStore
		closeFn = func() {}
	)
	switch cfg.Store.Backend {
	case "memory":
		log.Warn().Msg("memory store selected - sessions will not survive a restart")
		kv = memory.NewStore()
	case "file":
		kv = file.NewStore(cfg.Store.FilePath)
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := pgstore.OpenSQL(connectCtx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		err = pgstore.RunMigrationsDir(connectCtx, db, cfg.Database.Migrations)
		_ = db.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := pgstore.Connect(connectCtx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		kv = pgstore.NewStore(pool, cfg.Store.Namespace)
		closeFn = pool.Close
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		kv = redisstore.NewStore(client, cfg.Store.Namespace)
		closeFn = func() { _ = client.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.Secret == "" {
		return kv, closeFn, nil
	}
	sealed, err := sealer.New(kv, cfg.Store.Secret)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return sealed, closeFn, nil
}
