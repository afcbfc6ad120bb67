// Command server runs the team activity log service: event ingestion, the
// time machine read surface and view-state persistence behind one HTTP
// listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	eventhandler "pitlog/internal/event/handler"
	eventmetrics "pitlog/internal/event/metrics"
	"pitlog/internal/event/publisher"
	"pitlog/internal/event/service"
	"pitlog/internal/event/store"
	memstore "pitlog/internal/event/store/memory"
	pgstore "pitlog/internal/event/store/postgres"
	"pitlog/internal/event/store/redisnotify"
	sqlitestore "pitlog/internal/event/store/sqlite"
	jwttoken "pitlog/internal/jwt_token"
	"pitlog/internal/platform/config"
	"pitlog/internal/platform/httpserver"
	"pitlog/internal/platform/logger"
	platformredis "pitlog/internal/platform/redis"
	"pitlog/internal/timemachine/evolution"
	tmhandler "pitlog/internal/timemachine/handler"
	tmmetrics "pitlog/internal/timemachine/metrics"
	"pitlog/internal/timemachine/replay"
	"pitlog/internal/timemachine/snapshot"
	httptransport "pitlog/internal/transport/http"
	"pitlog/internal/viewstate"
	vshandler "pitlog/internal/viewstate/handler"
	vsmemory "pitlog/internal/viewstate/memory"
	vsredis "pitlog/internal/viewstate/redis"
	"pitlog/pkg/platform/middleware/ratelimit"
)

func main() {
	config.LoadEnv()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("unknown timezone, falling back to UTC", slog.String("timezone", cfg.Timezone))
		loc = time.UTC
	}

	g, ctx := errgroup.WithContext(ctx)
	health := map[string]httptransport.HealthChecker{}

	// Event store + change-feed notifier. Postgres pushes its own NOTIFY
	// signals; single-process backends fall back to redis pub/sub or an
	// in-process fanout.
	var (
		eventStore store.Store
		notifier   store.Notifier
	)
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging postgres: %w", err)
		}
		health["postgres"] = func() error { return db.Ping() }
		eventStore = pgstore.New(db)

		listener, err := pgstore.NewListener(cfg.PostgresURL, log)
		if err != nil {
			return fmt.Errorf("starting postgres listener: %w", err)
		}
		notifier = listener
		g.Go(func() error { return listener.Run(ctx) })
	case "sqlite":
		st, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		eventStore = st
	default:
		eventStore = memstore.New()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	var viewStore viewstate.Store = vsmemory.New()
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = func() error { return redisClient.Health(context.Background()) }
		viewStore = vsredis.New(redisClient.Client)

		if notifier == nil {
			rn := redisnotify.New(redisClient.Client, log)
			notifier = rn
			g.Go(func() error { return rn.Run(ctx) })
		}
	}
	if notifier == nil {
		notifier = store.NewFanout()
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithNotifier(notifier),
		service.WithMetrics(eventmetrics.New()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer kafka.Close()

		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopic(ensureCtx, 1); err != nil {
			log.Warn("ensuring kafka topic failed", slog.String("error", err.Error()))
		}
		cancel()

		svcOpts = append(svcOpts, service.WithPublisher(kafka))
	}

	eventService, err := service.New(eventStore, svcOpts...)
	if err != nil {
		return fmt.Errorf("building event service: %w", err)
	}

	tmMetrics := tmmetrics.New()
	snap := snapshot.New(eventStore, snapshot.WithLogger(log), snapshot.WithMetrics(tmMetrics))
	if err := snap.Refresh(ctx); err != nil {
		log.Warn("initial snapshot refresh failed", slog.String("error", err.Error()))
	}
	g.Go(func() error { return snap.Watch(ctx, notifier) })

	replays := replay.NewManager(
		replay.WithManagerLogger(log),
		replay.WithIdleTTL(cfg.ReplayIdleTTL),
		replay.WithManagerBaseInterval(cfg.ReplayBaseInterval),
	)
	g.Go(func() error { return replays.Run(ctx) })

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.Deps{
		Events: eventhandler.New(eventService, log),
		TimeMachine: tmhandler.New(snap, replays, evolution.New(), log,
			tmhandler.WithMetrics(tmMetrics),
			tmhandler.WithLocation(loc)),
		ViewState:      vshandler.New(viewStore, log),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Limiter:        ratelimit.New(cfg.IngestRatePerSecond, cfg.IngestBurst, log),
		Health:         health,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("listening", slog.String("addr", cfg.Addr), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
