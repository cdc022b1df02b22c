package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/config"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/gateway"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/geocache"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/httpapi"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/jwt"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/lifecycle"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/postgres"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/routing"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/storage/memory"
)

// run wires the service and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string, memoryMode bool) error {
	log := logger.New("caronas")
	ctx = contextx.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	var (
		rides     ports.RideStore
		vehicles  ports.VehicleRegistry
		blocks    ports.BlockRegistry
		sharing   ports.SharingLog
		pub       ports.EventPublisher
		positions *geocache.Positions
	)

	if memoryMode {
		rides = memory.NewRideStore()
		vehicles = memory.NewVehicleRegistry()
		blocks = memory.NewBlockRegistry()
		sharing = memory.NewSharingLog()
		pub = notify.NoopPublisher{}
		log.Info(ctx, "memory_mode", "Running with in-memory storage", nil)
	} else {
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
			return err
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Error(ctx, "db_migrate_failed", "Failed to apply migrations", err, nil)
			return err
		}

		rides = postgres.NewRideStore(pool)
		vehicles = postgres.NewVehicleRegistry(pool)
		blocks = postgres.NewBlockRegistry(pool)
		sharing = postgres.NewSharingLog(pool)

		mq, err := notify.Connect(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer mq.Close()
		pub = notify.NewPublisher(mq)

		positions = geocache.New(cfg.Redis.Addr, cfg.Redis.Password)
		if err := positions.Ping(ctx); err != nil {
			// position replay is auxiliary; run without it
			log.Error(ctx, "redis_unavailable", "Redis unreachable, continuing without position cache", err, nil)
			positions = nil
		} else {
			defer positions.Close()
		}
	}

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	svc := lifecycle.NewService(log, rides, vehicles, pub)

	rooms := gateway.NewRooms()
	router := routing.NewService(log, rides, blocks, sharing, pub, rooms, rooms, positions)
	gw := gateway.New(log, jwtManager, svc, router, rooms)

	mux := http.NewServeMux()
	httpHandler := httpapi.NewHandler(svc, log, jwtManager, gw)
	httpHandler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Service started on port %d", cfg.HTTP.Port),
		map[string]any{"port": cfg.HTTP.Port},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Shutting down HTTP server", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.HTTP.Port})
			return err
		}
	}

	return nil
}
