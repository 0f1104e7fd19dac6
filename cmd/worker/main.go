package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/notification"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/worker"
)

// doneTTL bounds how long a completed job id is remembered for redelivery
// suppression.
const doneTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable; redelivered jobs will not be deduplicated")
	} else {
		defer rdb.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	n := &notification.Notifier{
		Bookings:          repository.NewBookingRepo(db),
		Payments:          repository.NewPaymentRepo(db),
		Mailer:            notification.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass),
		From:              cfg.Mail.From,
		FallbackRecipient: cfg.Mail.FallbackRecipient,
	}
	w := worker.New(n.Handlers(), worker.WithMaxRetries(cfg.Queue.MaxRetries), worker.WithMetrics(m))

	pub := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name)
	defer pub.Close()

	consumer := queue.NewConsumer(queue.ConsumerConfig{
		URL:         cfg.Queue.URL,
		Queue:       cfg.Queue.Name,
		Concurrency: cfg.Queue.Concurrency,
		RetryDelay:  cfg.Queue.RetryDelay,
	}, w, pub, queue.NewDoneMarker(rdb, doneTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("worker: metrics server: %v", err)
		}
	}()

	log.Printf("worker: consuming %q concurrency=%d max_retries=%d retry_delay=%s (env=%s)",
		cfg.Queue.Name, cfg.Queue.Concurrency, cfg.Queue.MaxRetries, cfg.Queue.RetryDelay, cfg.Env)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("worker: consumer stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Printf("worker: stopped")
}
