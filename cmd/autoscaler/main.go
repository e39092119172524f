// Command autoscaler runs the controller process: it loads bindings from
// Postgres, starts the metric consumers, the aggregator, the scaler loop,
// and the HTTP management API, then waits for a shutdown signal. Grounded
// on controller_go/cmd/main.go's startup/run/shutdown shape.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"autoscaler/internal/aggregator"
	"autoscaler/internal/api"
	"autoscaler/internal/bus"
	"autoscaler/internal/config"
	"autoscaler/internal/consumers"
	"autoscaler/internal/engine"
	"autoscaler/internal/registry"
	"autoscaler/internal/scaler"
	"autoscaler/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	pg, err := store.NewPostgresStore(postgresDSN(cfg), cfg.PostgresMaxOpenConns, cfg.PostgresMaxIdleConns)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pg.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	msgBus := bus.New(rdb)

	reg := registry.New(pg, msgBus)
	if err := reg.LoadFromStore(); err != nil {
		log.Fatalf("failed to load bindings from store: %v", err)
	}

	eng := engine.New(engine.Config{
		Host:            cfg.EngineHost,
		ScalingEndpoint: cfg.EngineScalingEndpoint,
		NameEndpoint:    cfg.EngineNameEndpoint,
		Secret:          cfg.EngineSecret,
		Timeout:         cfg.EngineTimeout,
		RateLimitPerSec: cfg.EngineRateLimitPerSec,
		Burst:           cfg.EngineBurst,
	})
	names := engine.NewNameResolver(eng, cfg.UpdateAppNameAtBinding)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cons := consumers.New(msgBus, reg)
	go func() {
		if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("consumers stopped: %v", err)
		}
	}()

	agg := aggregator.New(reg, msgBus, cfg.AggregatorPeriod)
	go agg.Run(ctx)

	scl := scaler.New(reg, msgBus, eng, cfg.ScalerPeriod, cfg.StaticScalingSize)
	go scl.Run(ctx)

	apiServer := api.New(reg, pg, names, cfg.BrokerSecret, cfg.MaxMetricListSize, cfg.MaxMetricAge)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		if err := apiServer.Run(addr); err != nil {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("received signal %v, shutting down gracefully...", sig)

	cancel()
	log.Println("shutdown complete")
}

func postgresDSN(cfg config.Config) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB, cfg.PostgresUser, cfg.PostgresPassword)
}
