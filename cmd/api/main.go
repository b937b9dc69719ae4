package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"motionlab/internal/adapter/repo"
	"motionlab/internal/domain"
	"motionlab/internal/http/handlers"
	httpapi "motionlab/internal/http/httpapi"
	"motionlab/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	orders := repo.NewOrderRepository(runner)

	app := &handlers.App{
		Orders: orders,
		Jobs:   repo.NewJobRepository(runner),
		Ledger: repo.NewLedgerRepository(runner),
		Proc:   &enqueuer{orders: orders},
		Logger: logger,
	}

	router := httpapi.NewRouter(app, logger, cfg.RateLimitPerMin)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}

// enqueuer is the API-side processor. The API runs no provider adapters;
// confirming an order here leaves it pending for the orchestrator binary,
// whose intake sweep runs it through admission control.
type enqueuer struct {
	orders domain.OrderRepository
}

func (e *enqueuer) ProcessOrder(ctx context.Context, orderID string) error {
	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order.Status == domain.OrderStatusPaymentRequired {
		// Funding confirmed; hand the order to the worker.
		return e.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending)
	}
	return nil
}
