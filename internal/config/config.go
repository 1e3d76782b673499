package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names for LLM backends.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Index backends.
const (
	BackendFile      = "file"
	BackendSurrealDB = "surrealdb"
)

// Config holds all configuration values.
type Config struct {
	// Index source
	IndexBackend string `yaml:"index_backend"`
	IndexPath    string `yaml:"index_path"`

	// SurrealDB connection (index_backend=surrealdb)
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	SynthesisModel  string `yaml:"synthesis_model"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"-"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	AnthropicAPIKey string `yaml:"-"`
	AWSRegion       string `yaml:"aws_region"`

	// Retrieval
	MaxIterations       int     `yaml:"max_iterations"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		IndexBackend: getEnv("PODSEARCH_INDEX_BACKEND", BackendFile),
		IndexPath:    getEnv("PODSEARCH_INDEX_PATH", "./index"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "podsearch"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "index"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     getEnv("PODSEARCH_LLM_PROVIDER", ProviderOllama),
		LLMModel:        getEnv("PODSEARCH_LLM_MODEL", "llama3.1"),
		SynthesisModel:  getEnv("PODSEARCH_SYNTHESIS_MODEL", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		MaxIterations:       getEnvInt("PODSEARCH_MAX_ITERATIONS", 3),
		SimilarityThreshold: getEnvFloat("PODSEARCH_SIMILARITY_THRESHOLD", 0.70),

		LogFile:  getEnv("PODSEARCH_LOG_FILE", "/tmp/podsearch.log"),
		LogLevel: parseLogLevel(getEnv("PODSEARCH_LOG_LEVEL", "INFO")),
	}
}

// LoadFile reads a YAML config file and applies environment variables on top.
// Keys missing from the file keep their env/default value.
func LoadFile(path string) (Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay := map[string]struct {
		dst *string
		val string
	}{
		"PODSEARCH_INDEX_BACKEND":   {&cfg.IndexBackend, file.IndexBackend},
		"PODSEARCH_INDEX_PATH":      {&cfg.IndexPath, file.IndexPath},
		"SURREALDB_URL":             {&cfg.SurrealDBURL, file.SurrealDBURL},
		"SURREALDB_NAMESPACE":       {&cfg.SurrealDBNamespace, file.SurrealDBNamespace},
		"SURREALDB_DATABASE":        {&cfg.SurrealDBDatabase, file.SurrealDBDatabase},
		"SURREALDB_USER":            {&cfg.SurrealDBUser, file.SurrealDBUser},
		"SURREALDB_PASS":            {&cfg.SurrealDBPass, file.SurrealDBPass},
		"SURREALDB_AUTH_LEVEL":      {&cfg.SurrealDBAuthLevel, file.SurrealDBAuthLevel},
		"PODSEARCH_LLM_PROVIDER":    {&cfg.LLMProvider, file.LLMProvider},
		"PODSEARCH_LLM_MODEL":       {&cfg.LLMModel, file.LLMModel},
		"PODSEARCH_SYNTHESIS_MODEL": {&cfg.SynthesisModel, file.SynthesisModel},
		"OLLAMA_HOST":               {&cfg.OllamaHost, file.OllamaHost},
		"OPENAI_BASE_URL":           {&cfg.OpenAIBaseURL, file.OpenAIBaseURL},
		"AWS_REGION":                {&cfg.AWSRegion, file.AWSRegion},
		"PODSEARCH_LOG_FILE":        {&cfg.LogFile, file.LogFile},
	}
	for key, o := range overlay {
		if o.val != "" && os.Getenv(key) == "" {
			*o.dst = o.val
		}
	}

	if file.MaxIterations > 0 && os.Getenv("PODSEARCH_MAX_ITERATIONS") == "" {
		cfg.MaxIterations = file.MaxIterations
	}
	if file.SimilarityThreshold > 0 && os.Getenv("PODSEARCH_SIMILARITY_THRESHOLD") == "" {
		cfg.SimilarityThreshold = file.SimilarityThreshold
	}

	return cfg, nil
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	switch c.IndexBackend {
	case BackendFile:
		if c.IndexPath == "" {
			return fmt.Errorf("index path required for file backend")
		}
	case BackendSurrealDB:
	default:
		return fmt.Errorf("unsupported index backend: %s", c.IndexBackend)
	}

	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	return nil
}

// SynthesisModelName returns the model used for answer synthesis,
// falling back to the navigation model.
func (c Config) SynthesisModelName() string {
	if c.SynthesisModel != "" {
		return c.SynthesisModel
	}
	return c.LLMModel
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return f
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
