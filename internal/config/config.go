package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
	"github.com/vladimiradmaev/coaching-engine/internal/policy"
)

type Config struct {
	Environment   string
	TelegramToken string
	HTTP          HTTPConfig
	LLM           LLMConfig
	Moderation    ModerationConfig
	Redis         RedisConfig
	Risk          RiskConfig
	Timing        TimingConfig
	Logger        LoggerConfig
}

type HTTPConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

// Addr is the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type LLMConfig struct {
	Provider     string // openai or gemini
	OpenAIAPIKey string
	GeminiAPIKey string
	OpenAIModel  string
	GeminiModel  string
}

type ModerationConfig struct {
	Model    string
	CacheTTL time.Duration
}

type RedisConfig struct {
	Host string
	Port string
}

// Enabled reports whether a Redis host is configured. Without one, stores stay in memory.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RiskConfig struct {
	Scorer    string
	ModelPath string
}

type TimingConfig struct {
	Policy string
	Hours  []int
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnvOrDefault("MODERATION_CACHE_TTL", "1h"))
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("MODERATION_CACHE_TTL: %v", err))
	}

	hours, err := parseHours(os.Getenv("TIMING_HOURS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:   getEnvOrDefault("APP_ENV", "development"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTP: HTTPConfig{
			Host:           getEnvOrDefault("HTTP_HOST", "0.0.0.0"),
			Port:           getEnvOrDefault("HTTP_PORT", "8000"),
			AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai")),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			OpenAIModel:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Moderation: ModerationConfig{
			Model:    getEnvOrDefault("MODERATION_MODEL", "omni-moderation-latest"),
			CacheTTL: ttl,
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Risk: RiskConfig{
			Scorer:    strings.ToLower(getEnvOrDefault("RISK_SCORER", "demo")),
			ModelPath: os.Getenv("RISK_MODEL_PATH"),
		},
		Timing: TimingConfig{
			Policy: getEnvOrDefault("TIMING_POLICY", "thompson_sampling"),
			Hours:  hours,
		},
		Logger: LoggerConfig{
			Level:      logger.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.Environment {
	case "development", "staging", "production":
	default:
		problems = append(problems, fmt.Sprintf("APP_ENV %q is not one of development, staging, production", c.Environment))
	}

	if !validPort(c.HTTP.Port) {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %q is not a valid port", c.HTTP.Port))
	}
	if c.Redis.Enabled() && !validPort(c.Redis.Port) {
		problems = append(problems, fmt.Sprintf("REDIS_PORT %q is not a valid port", c.Redis.Port))
	}

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		problems = append(problems, fmt.Sprintf("LLM_PROVIDER %q is not one of openai, gemini", c.LLM.Provider))
	}

	switch c.Risk.Scorer {
	case "demo":
	case "model":
		if c.Risk.ModelPath == "" {
			problems = append(problems, "RISK_MODEL_PATH is required when RISK_SCORER=model")
		} else if !strings.HasSuffix(c.Risk.ModelPath, ".json") {
			problems = append(problems, "RISK_MODEL_PATH must point to a .json artifact")
		}
	default:
		problems = append(problems, fmt.Sprintf("RISK_SCORER %q is not one of demo, model", c.Risk.Scorer))
	}

	if _, err := policy.ParseType(c.Timing.Policy); err != nil {
		problems = append(problems, fmt.Sprintf("TIMING_POLICY %q is not registered", c.Timing.Policy))
	}
	if err := validateHours(c.Timing.Hours); err != nil {
		problems = append(problems, err.Error())
	}

	switch c.Logger.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT %q is not one of json, text", c.Logger.Format))
	}

	if len(problems) > 0 {
		return errors.NewConfigurationError(strings.Join(problems, "; "))
	}
	return nil
}

func parseHours(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]int(nil), policy.DefaultHours...), nil
	}
	var hours []int
	for _, part := range splitList(raw) {
		h, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("TIMING_HOURS entry %q is not an integer", part))
		}
		hours = append(hours, h)
	}
	return hours, nil
}

func validateHours(hours []int) error {
	if len(hours) == 0 {
		return fmt.Errorf("TIMING_HOURS must list at least one hour")
	}
	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("TIMING_HOURS entry %d is outside 0..23", h)
		}
		if seen[h] {
			return fmt.Errorf("TIMING_HOURS entry %d is listed twice", h)
		}
		seen[h] = true
	}
	return nil
}

func validPort(port string) bool {
	p, err := strconv.Atoi(port)
	return err == nil && p > 0 && p <= 65535
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
