// Command likeboard serves the pay-to-post, pay-to-like message board
// over HTTP.
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
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/edgeee/likeboard/api"
	"github.com/edgeee/likeboard/api/validator"
	"github.com/edgeee/likeboard/badger"
	"github.com/edgeee/likeboard/board"
	"github.com/edgeee/likeboard/memory"
	"github.com/edgeee/likeboard/postgres"
	"github.com/edgeee/likeboard/redis"
)

// settlement is what both the engine (relay) and the API (deposit,
// refund) need from a ledger.
type settlement interface {
	board.Bank
	Deposit(ctx context.Context, amount board.Coin) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("Exiting", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := envconfig.Process("likeboard", &cfg); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("Could not close store", "error", err.Error())
		}
	}()
	log.Info("Store ready", "backend", cfg.StoreBackend)

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}

	engine := &board.Engine{Store: store, Bank: ledger, Logger: log}
	if err := bootstrapStipend(ctx, cfg, engine, log); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: &api.API{
			Logger: log,
			Board:  engine,
			Ledger: ledger,
			Val:    validator.New(),
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Could not shut down cleanly", "error", err.Error())
		}
	}()

	log.Info("Listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config) (board.Store, func() error, error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "badger":
		s, err := badger.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		s, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openLedger(ctx context.Context, cfg config) (settlement, error) {
	if cfg.PostgresDSN == "" {
		return memory.NewLedger(cfg.HoldingAccount), nil
	}
	pg, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.HoldingAccount)
	if err != nil {
		return nil, err
	}
	if err := pg.Init(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func bootstrapStipend(ctx context.Context, cfg config, engine *board.Engine, log *slog.Logger) error {
	if cfg.StipendDenom == "" && cfg.StipendAmount == "" {
		return nil
	}
	amount, err := board.ParseAmount(cfg.StipendAmount)
	if err != nil {
		return fmt.Errorf("stipend amount: %w", err)
	}
	err = engine.Initialize(ctx, board.Coin{Denom: cfg.StipendDenom, Amount: amount})
	if errors.Is(err, board.ErrAlreadyInitialized) {
		log.Info("Board already initialized, keeping existing stipend")
		return nil
	}
	return err
}
