// Package config loads skls configuration from config files, .env files and
// the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Chroma         ChromaConfig         `mapstructure:"chroma"`
	Generator      GeneratorConfig      `mapstructure:"generator"`
	Gemini         GeminiConfig         `mapstructure:"gemini"`
	LlamaCpp       LlamaCppConfig       `mapstructure:"llamacpp"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Alert          AlertConfig          `mapstructure:"alert"`
	Server         ServerConfig         `mapstructure:"server"`
	Workers        WorkersConfig        `mapstructure:"workers"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	File          string `mapstructure:"file"`
	MaxSizeMB     int    `mapstructure:"max_size_mb"`
	MaxBackups    int    `mapstructure:"max_backups"`
	MaxAgeDays    int    `mapstructure:"max_age_days"`
	Color         bool   `mapstructure:"color"`
	TelemetryPath string `mapstructure:"telemetry_path"`
}

// EmbeddingConfig holds the llama.cpp embedding server settings
type EmbeddingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	BatchSize      int    `mapstructure:"batch_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// CachePath enables the on-disk embedding cache when set.
	CachePath string `mapstructure:"cache_path"`
}

// ChromaConfig holds the vector store settings
type ChromaConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	Collection          string `mapstructure:"collection"`
	DocumentsCollection string `mapstructure:"documents_collection"`
	Tenant              string `mapstructure:"tenant"`
	Database            string `mapstructure:"database"`
}

// GeneratorConfig holds structured generation settings
type GeneratorConfig struct {
	Backend     string  `mapstructure:"backend"` // google, llamacpp
	Retries     int     `mapstructure:"retries"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Language    string  `mapstructure:"language"`
}

// GeminiConfig holds Google GenAI settings
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// LlamaCppConfig holds settings for the OpenAI-compatible llama.cpp server
type LlamaCppConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Neo4jConfig holds graph database settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// WorkersConfig holds settings for parallel file processing
type WorkersConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// Load loads configuration from .env, the active viper config and environment
// variables. Values already present in the environment win over .env entries.
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.file", "./log/application.log")
	viper.SetDefault("log.color", true)

	viper.SetDefault("embedding.base_url", "http://localhost:8080")
	viper.SetDefault("embedding.batch_size", 20)
	viper.SetDefault("embedding.timeout_seconds", 60)

	viper.SetDefault("chroma.base_url", "http://localhost:8000")
	viper.SetDefault("chroma.collection", "rag_collection")
	viper.SetDefault("chroma.documents_collection", "documents_metadata")

	viper.SetDefault("generator.backend", "llamacpp")
	viper.SetDefault("generator.retries", 8)
	viper.SetDefault("generator.temperature", 0.7)
	viper.SetDefault("generator.max_tokens", 2048)

	viper.SetDefault("gemini.model", "")

	viper.SetDefault("llamacpp.base_url", "http://localhost:8080/v1")
	viper.SetDefault("llamacpp.model", "local-llama-cpp-model")

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("workers.max_workers", 5)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if v := os.Getenv("LLAMACPP_EMBED_BASE"); v != "" {
		config.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_CACHE_PATH"); v != "" {
		config.Embedding.CachePath = v
	}

	if v := os.Getenv("CHROMA_URL"); v != "" {
		config.Chroma.BaseURL = v
	}
	if v := os.Getenv("CHROMA_COLLECTION"); v != "" {
		config.Chroma.Collection = v
	}

	if v := os.Getenv("GENERATOR_BACKEND"); v != "" {
		config.Generator.Backend = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		config.Gemini.Model = v
	}

	if v := os.Getenv("LLAMACPP_GEN_BASE"); v != "" {
		config.LlamaCpp.BaseURL = v
	}
	if v := os.Getenv("LLAMACPP_API_KEY"); v != "" {
		config.LlamaCpp.APIKey = v
	}

	if v := os.Getenv("NEO4J_URI"); v != "" {
		config.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		config.Neo4j.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		config.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		config.Neo4j.Database = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("TELEMETRY_PARQUET_PATH"); v != "" {
		config.Log.TelemetryPath = v
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
}
