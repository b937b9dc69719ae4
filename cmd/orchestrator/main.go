package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"motionlab/internal/infra"
	"motionlab/internal/infra/credentials"
	"motionlab/internal/notify"
	"motionlab/internal/orchestrator"
	"motionlab/internal/providers"
	"motionlab/internal/providers/genai"
	imageprovider "motionlab/internal/providers/image"
	videoprovider "motionlab/internal/providers/video"
	"motionlab/internal/sched"
	"motionlab/internal/session"

	"motionlab/internal/adapter/repo"
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
		logger.Fatal().Err(err).Msg("orchestrator: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	credStore := credentials.NewStore(runner)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	httpClient := &http.Client{Timeout: 60 * time.Second}

	geminiKey := resolveKey(ctx, logger, credStore, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if geminiKey == "" {
		logger.Fatal().Msg("orchestrator: gemini api key is required")
	}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     geminiKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("orchestrator: failed to configure gemini client")
	}

	videoAdapters := []providers.Adapter{
		videoprovider.NewGeminiAdapter(geminiClient, cfg.GeminiModels, logger),
	}

	wanxKey := resolveKey(ctx, logger, credStore, credentials.ProviderWanx, cfg.WanxAPIKey)
	if wanxKey != "" {
		wanx, err := videoprovider.NewWanxAdapter(videoprovider.WanxOptions{
			APIKey:     wanxKey,
			BaseURL:    cfg.WanxBaseURL,
			Model:      cfg.WanxModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("orchestrator: failed to configure wanx adapter")
		}
		videoAdapters = append(videoAdapters, wanx)
	} else {
		logger.Warn().Msg("orchestrator: wanx api key missing, adapter disabled")
	}

	combiner := imageprovider.NewCombineAdapter(geminiClient, "", logger)

	telegramToken := resolveKey(ctx, logger, credStore, credentials.ProviderTelegram, cfg.TelegramToken)
	notifier, err := notify.NewTelegram(notify.TelegramOptions{
		Token:      telegramToken,
		BaseURL:    cfg.TelegramBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("orchestrator: failed to configure telegram notifier")
	}

	scheduler := sched.New(ctx, logger)

	engine := orchestrator.New(orchestrator.Deps{
		Orders:    repo.NewOrderRepository(runner),
		Jobs:      repo.NewJobRepository(runner),
		Ledger:    repo.NewLedgerRepository(runner),
		Notifier:  notifier,
		Sessions:  sessions,
		Video:     videoAdapters,
		Combiner:  combiner,
		Scheduler: scheduler,
		Logger:    logger,
	}, orchestrator.Config{
		ConcurrencyCeiling: cfg.ConcurrencyCeiling,
		PollInterval:       cfg.PollInterval,
		MaxPollAttempts:    cfg.PollMaxAttempts,
		StaleAfter:         cfg.OrderStaleAfter,
		CreditCost:         cfg.CreditCost,
	})

	scheduler.Every(cfg.SweepInterval, "intake", engine.ProcessNewOrders)
	scheduler.Every(cfg.SweepInterval, "throttled", engine.ProcessThrottledOrders)
	scheduler.Every(cfg.OrderStaleAfter/2, "stale", engine.ProcessStaleOrders)

	logger.Info().
		Int("ceiling", cfg.ConcurrencyCeiling).
		Dur("poll_interval", cfg.PollInterval).
		Msg("orchestrator: started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("orchestrator: shutdown incomplete")
	}
	logger.Info().Msg("orchestrator: stopped")
}

// resolveKey prefers the environment and falls back to the credentials table.
func resolveKey(ctx context.Context, logger infra.Logger, store *credentials.Store, provider, fromEnv string) string {
	if key := strings.TrimSpace(fromEnv); key != "" {
		return key
	}
	key, err := store.Token(ctx, provider)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("orchestrator: failed to load api key from store")
		return ""
	}
	return key
}
