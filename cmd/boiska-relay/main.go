// boiska-relay migrates the schema and relays reservation decision events
// from the transactional outbox to Kafka.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/config"
	"github.com/pmiara/rezerwacja-boisk/internal/db"
	"github.com/pmiara/rezerwacja-boisk/internal/kafkax"
	"github.com/pmiara/rezerwacja-boisk/internal/otelx"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/runtime"
	"github.com/pmiara/rezerwacja-boisk/internal/storage/postgres"
)

func main() {
	service := config.String("SERVICE_NAME", "boiska-relay")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	pollSec, err := config.Int("OUTBOX_POLL_SECONDS", 2)
	if err != nil {
		panic(err)
	}
	publisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: time.Duration(pollSec) * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("ops server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "err", err)
	}
	logger.Info("relay stopped")
}
