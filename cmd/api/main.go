package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/fastprodman/codemarket/internal/api"
	"github.com/fastprodman/codemarket/internal/infra/logging"
	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/notify"
	"github.com/fastprodman/codemarket/internal/ratelimit"
	pgaccounts "github.com/fastprodman/codemarket/internal/repos/accounts/postgres"
	"github.com/fastprodman/codemarket/internal/services/checkout"
	"github.com/fastprodman/codemarket/internal/services/payments"
	"github.com/fastprodman/codemarket/internal/services/reviews"
	"github.com/fastprodman/codemarket/pkg/envconf"
	"github.com/fastprodman/codemarket/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	shutdownqueue.AddNamed("postgres", func(context.Context) error {
		return db.Close()
	})

	var publisher notify.Publisher = notify.Nop{}
	if cfg.AMQP.URL != "" {
		amqpPub, perr := notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if perr != nil {
			return fmt.Errorf("connect amqp: %w", perr)
		}

		publisher = amqpPub

		shutdownqueue.AddNamed("amqp", func(context.Context) error {
			amqpPub.Close()
			return nil
		})
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		limiter = ratelimit.New(client, cfg.Redis.RateLimitPrefix)

		shutdownqueue.AddNamed("redis", func(context.Context) error {
			return client.Close()
		})
	}

	// --- Services ---
	policy := payments.Policy{
		MinDeposit:        cfg.MinDeposit,
		MaxDeposit:        cfg.MaxDeposit,
		MinWithdrawal:     cfg.MinWithdrawal,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}

	checkoutSrv := checkout.New(db, publisher)
	paymentsSrv := payments.New(db, publisher, limiter, policy)
	reviewsSrv := reviews.New(db)

	// --- HTTP server ---
	router := api.NewRouter(pgaccounts.New(db), checkoutSrv, paymentsSrv, reviewsSrv)
	srv := api.NewServer(cfg.Port, router)

	// Register HTTP server graceful shutdown
	shutdownqueue.AddNamed("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
