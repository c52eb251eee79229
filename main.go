package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/vladimiradmaev/coaching-engine/internal/bot"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
	"github.com/vladimiradmaev/coaching-engine/internal/config"
	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/handlers"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
	"github.com/vladimiradmaev/coaching-engine/internal/policy"
	"github.com/vladimiradmaev/coaching-engine/internal/risk"
	"github.com/vladimiradmaev/coaching-engine/internal/routes"
	"github.com/vladimiradmaev/coaching-engine/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	logger.Info("Starting coaching engine", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Coaching engine stopped with error", "error", err)
	}
	logger.Info("Coaching engine stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		client, err := state.NewRedisClient(cfg.Redis.Addr())
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		logger.Info("Redis connection established", "addr", cfg.Redis.Addr())
	}

	policies, err := policy.NewRegistry(cfg.Timing.Hours)
	if err != nil {
		return err
	}
	policyType, timing, err := resolveTiming(policies, cfg.Timing.Policy)
	if err != nil {
		return err
	}

	scorer, err := risk.NewScorer(risk.ScorerKind(cfg.Risk.Scorer), cfg.Risk.ModelPath)
	if err != nil {
		return err
	}

	var openaiClient *openai.Client
	if cfg.LLM.OpenAIAPIKey != "" {
		openaiClient = openai.NewClient(cfg.LLM.OpenAIAPIKey)
	}

	generator, closeGenerators, err := buildGenerator(ctx, cfg.LLM, openaiClient)
	if err != nil {
		return err
	}
	defer closeGenerators()

	detector := buildDetector(cfg.Moderation, openaiClient, redisClient)

	orchestrator := services.NewOrchestrationService(
		detector,
		scorer,
		generator,
		timing,
		services.NewBehaviorService(),
	)

	var stateManager state.StateManager = state.NewManager()
	if redisClient != nil {
		stateManager = state.NewRedisManager(redisClient)
	}

	var (
		telegramBot *bot.Bot
		notifier    handlers.Notifier
	)
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.NewBot(cfg.TelegramToken, stateManager, policies)
		if err != nil {
			return err
		}
		notifier = telegramBot.Notifier()
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, caretaker bot disabled")
	}

	h := handlers.New(orchestrator, policies, detector, notifier, policyType)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           routes.NewRouter(h, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	}

	return g.Wait()
}

// resolveTiming parses the configured policy type once so the orchestrator and the
// feedback paths share both the type and the instance.
func resolveTiming(policies *policy.Registry, raw string) (domain.TimingPolicyType, domain.TimingPolicy, error) {
	policyType, err := policy.ParseType(raw)
	if err != nil {
		return "", nil, err
	}
	timing, err := policies.Lookup(policyType)
	if err != nil {
		return "", nil, err
	}
	return policyType, timing, nil
}

// buildGenerator orders the configured providers so LLM_PROVIDER is tried first.
func buildGenerator(ctx context.Context, cfg config.LLMConfig, openaiClient *openai.Client) (*services.AIService, func(), error) {
	var openaiGen, geminiGen services.Generator
	closeFn := func() {}

	if openaiClient != nil {
		openaiGen = services.NewOpenAIGenerator(openaiClient, cfg.OpenAIModel)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, closeFn, err
		}
		geminiGen = gemini
		closeFn = func() {
			if err := gemini.Close(); err != nil {
				logger.Warn("Failed to close Gemini client", "error", err)
			}
		}
	}

	primary, fallback := openaiGen, geminiGen
	if cfg.Provider == "gemini" {
		primary, fallback = geminiGen, openaiGen
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		logger.Warn("No LLM API key configured, recommendation requests will fail")
	}
	return services.NewAIService(primary, fallback), closeFn, nil
}

// buildDetector wires the keyword prefilter to the OpenAI moderation endpoint when a key is set.
func buildDetector(cfg config.ModerationConfig, openaiClient *openai.Client, redisClient *redis.Client) domain.ContentDetector {
	var classifier services.Classifier
	if openaiClient != nil {
		classifier = services.NewOpenAIModerator(openaiClient, cfg.Model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, moderation uses the keyword prefilter only")
	}

	var cache services.VerdictCache = services.NewMemoryVerdictCache()
	if redisClient != nil {
		cache = services.NewRedisVerdictCache(redisClient)
	}
	return services.NewContentDetectionService(classifier, cache, cfg.CacheTTL)
}
