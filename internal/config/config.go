package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by LOREKEEPER_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("LOREKEEPER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// OpenAIModel overrides the chat model used for extraction and enrichment.
// Empty selects the client default.
func OpenAIModel() string {
	return os.Getenv("OPENAI_MODEL")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LLMModel returns the model override for the configured LLM provider.
func LLMModel() string {
	if LLMProvider() == "openai" {
		return OpenAIModel()
	}
	return os.Getenv("ANTHROPIC_MODEL")
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// MaxAffectedEntries caps the size of one dependency closure.
// Defaults to 1000.
func MaxAffectedEntries() int {
	return positiveInt("MAX_AFFECTED_ENTRIES", 1000)
}

// MaxDependencyDepth caps the number of BFS layers walked from the changed entries.
// Defaults to 32.
func MaxDependencyDepth() int {
	return positiveInt("MAX_DEPENDENCY_DEPTH", 32)
}

// IncrementalConcurrency bounds parallel recompilation of an affected set.
// Defaults to 4.
func IncrementalConcurrency() int {
	return positiveInt("INCREMENTAL_CONCURRENCY", 4)
}

// RecompileInterval is the tick of the background dirty-entry worker.
// Defaults to 5m.
func RecompileInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("RECOMPILE_INTERVAL"))
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// RecompileBatchSize is how many dirty entries one worker tick drains.
// Defaults to 100.
func RecompileBatchSize() int {
	return positiveInt("RECOMPILE_BATCH_SIZE", 100)
}

func positiveInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
