package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vladimiradmaev/coaching-engine/internal/config"
)

func main() {
	fmt.Println("🔍 Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration is valid!")
	fmt.Printf("📋 Resolved configuration:\n")
	fmt.Printf("  - Environment: %s\n", cfg.Environment)
	fmt.Printf("  - HTTP Addr: %s\n", cfg.HTTP.Addr())
	fmt.Printf("  - Allowed Origins: %s\n", strings.Join(cfg.HTTP.AllowedOrigins, ", "))
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - LLM Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.LLM.OpenAIAPIKey))
	fmt.Printf("  - OpenAI Model: %s\n", cfg.LLM.OpenAIModel)
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.LLM.GeminiAPIKey))
	fmt.Printf("  - Gemini Model: %s\n", cfg.LLM.GeminiModel)
	fmt.Printf("  - Moderation Model: %s (cache TTL %s)\n", cfg.Moderation.Model, cfg.Moderation.CacheTTL)
	if cfg.Redis.Enabled() {
		fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())
	} else {
		fmt.Printf("  - Redis: <disabled, in-memory stores>\n")
	}
	fmt.Printf("  - Risk Scorer: %s\n", cfg.Risk.Scorer)
	if cfg.Risk.ModelPath != "" {
		fmt.Printf("  - Risk Model Path: %s\n", cfg.Risk.ModelPath)
	}
	fmt.Printf("  - Timing Policy: %s\n", cfg.Timing.Policy)
	fmt.Printf("  - Timing Hours: %v\n", cfg.Timing.Hours)
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
