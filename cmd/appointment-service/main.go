package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptsched/internal/locker"
	"github.com/md-rashed-zaman/apptsched/internal/outbox"
	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
	"github.com/md-rashed-zaman/apptsched/internal/storage"
	"github.com/md-rashed-zaman/apptsched/libs/config"
	"github.com/md-rashed-zaman/apptsched/libs/db"
	"github.com/md-rashed-zaman/apptsched/libs/httpx"
	"github.com/md-rashed-zaman/apptsched/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptsched/libs/otel"
	"github.com/md-rashed-zaman/apptsched/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	serviceName := config.String("SERVICE_NAME", "appointment-service")
	logger := runtime.NewLogger(serviceName)

	if err := run(logger, serviceName); err != nil {
		logger.Error("service exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, serviceName string) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	port, err := config.Port("PORT", "8084")
	if err != nil {
		return err
	}

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shCtx)
	}()

	tzName := config.String("BUSINESS_TIMEZONE", "America/Los_Angeles")
	clock, err := scheduling.NewBusinessClock(tzName)
	if err != nil {
		return err
	}

	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("migrations applied")

	lockWait, err := config.Duration("LOCK_WAIT", "2s")
	if err != nil {
		return err
	}

	var (
		dayLocker scheduling.DayLocker
		rdb       *redis.Client
	)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		lockTTL, err := config.Duration("LOCK_TTL", "10s")
		if err != nil {
			return err
		}
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		dayLocker = locker.NewRedis(rdb, lockWait, lockTTL)
		logger.Info("using redis day locks", "addr", addr)
	} else {
		dayLocker = locker.NewLocal(lockWait)
		logger.Warn("REDIS_ADDR not set, day locks are process-local")
	}

	outboxRepo := outbox.NewRepository()
	repo := storage.NewAppointmentRepository(pool, clock, outboxRepo)
	engine := scheduling.NewEngine(repo, dayLocker, clock)
	appts, err := engine.ListAll(ctx)
	if err != nil {
		return err
	}
	logger.Info("scheduling engine ready", "appointments", len(appts))

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: time.Duration(config.Int("OUTBOX_POLL_MS", 2000)) * time.Millisecond,
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "postgres", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: locker.ReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handler := httpx.Chain(mux, httpx.WithRequestID, httpx.WithAccessLog(logger))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", port, "business_timezone", tzName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
