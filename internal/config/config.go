// Package config loads service configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Lock backends
const (
	LockBackendMemory   = "memory"
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
	UploadDir   string   `yaml:"upload_dir"` // empty uses the system temp dir
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AIConfig selects the embedding and generation provider.
type AIConfig struct {
	Provider        string `yaml:"provider"`
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// IngestionConfig configures chunking and embedding of uploads.
type IngestionConfig struct {
	ChunkSize           int  `yaml:"chunk_size"`
	ChunkOverlap        int  `yaml:"chunk_overlap"`
	EmbedBatchSize      int  `yaml:"embed_batch_size"`
	NormalizeWhitespace bool `yaml:"normalize_whitespace"`
	LockTTLSecs         int  `yaml:"lock_ttl_secs"`
}

// RetrievalConfig configures answer context selection.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LockConfig selects the backend that serializes ingestion.
type LockConfig struct {
	Backend     string `yaml:"backend"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Lock      LockConfig      `yaml:"lock"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
			MaxUploadMB: 50,
		},
		Log: LogConfig{Level: "info"},
		AI: AIConfig{
			Provider:        "ollama",
			EmbeddingModel:  "embeddinggemma",
			GenerationModel: "gemma3:4b",
			TimeoutSecs:     300,
		},
		Ingestion: IngestionConfig{
			ChunkSize:      1000,
			ChunkOverlap:   100,
			EmbedBatchSize: 50,
			LockTTLSecs:    3600,
		},
		Retrieval: RetrievalConfig{TopK: 3},
		Lock:      LockConfig{Backend: LockBackendMemory},
	}
}

// Load reads the YAML file at path, fills unset fields with defaults and
// applies environment overrides. A missing file or empty path yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			applyConfigDefaults(&fileCfg, cfg)
			cfg = &fileCfg
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the environment.
// Files that do not exist are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func applyConfigDefaults(cfg, def *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = def.AI.Provider
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = def.AI.EmbeddingModel
	}
	if cfg.AI.GenerationModel == "" {
		cfg.AI.GenerationModel = def.AI.GenerationModel
	}
	if cfg.AI.TimeoutSecs == 0 {
		cfg.AI.TimeoutSecs = def.AI.TimeoutSecs
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = def.Ingestion.ChunkSize
		// Overlap defaults only alongside the default window
		if cfg.Ingestion.ChunkOverlap == 0 {
			cfg.Ingestion.ChunkOverlap = def.Ingestion.ChunkOverlap
		}
	}
	if cfg.Ingestion.EmbedBatchSize == 0 {
		cfg.Ingestion.EmbedBatchSize = def.Ingestion.EmbedBatchSize
	}
	if cfg.Ingestion.LockTTLSecs == 0 {
		cfg.Ingestion.LockTTLSecs = def.Ingestion.LockTTLSecs
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = def.Lock.Backend
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.Server.MaxUploadMB)
	cfg.Server.UploadDir = getEnv("UPLOAD_DIR", cfg.Server.UploadDir)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.AI.Provider = getEnv("AI_PROVIDER", cfg.AI.Provider)
	cfg.AI.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.AI.EmbeddingModel)
	cfg.AI.GenerationModel = getEnv("GENERATION_MODEL", cfg.AI.GenerationModel)
	cfg.AI.TimeoutSecs = getEnvInt("AI_TIMEOUT_SECS", cfg.AI.TimeoutSecs)

	cfg.Ingestion.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.Ingestion.ChunkSize)
	cfg.Ingestion.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.Ingestion.ChunkOverlap)
	cfg.Ingestion.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", cfg.Ingestion.EmbedBatchSize)
	cfg.Ingestion.NormalizeWhitespace = getEnvBool("NORMALIZE_WHITESPACE", cfg.Ingestion.NormalizeWhitespace)

	cfg.Retrieval.TopK = getEnvInt("TOP_K", cfg.Retrieval.TopK)

	cfg.Lock.Backend = getEnv("LOCK_BACKEND", cfg.Lock.Backend)
	cfg.Lock.RedisURL = getEnv("REDIS_URL", cfg.Lock.RedisURL)
	cfg.Lock.DatabaseURL = getEnv("DATABASE_URL", cfg.Lock.DatabaseURL)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.AI.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("ai.provider must be ollama or openai, got %q", c.AI.Provider)
	}
	if c.AI.TimeoutSecs <= 0 {
		return fmt.Errorf("ai.timeout_secs must be positive, got %d", c.AI.TimeoutSecs)
	}

	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.chunk_overlap must be in [0, %d), got %d",
			c.Ingestion.ChunkSize, c.Ingestion.ChunkOverlap)
	}
	if c.Ingestion.EmbedBatchSize <= 0 {
		return fmt.Errorf("ingestion.embed_batch_size must be positive, got %d", c.Ingestion.EmbedBatchSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}

	switch c.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Lock.RedisURL == "" {
			return fmt.Errorf("lock.redis_url is required for the redis backend")
		}
	case LockBackendPostgres:
		if c.Lock.DatabaseURL == "" {
			return fmt.Errorf("lock.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("lock.backend must be memory, redis or postgres, got %q", c.Lock.Backend)
	}

	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AITimeout returns the model server timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSecs) * time.Second
}

// LockTTL returns how long an ingestion lock lives without release.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Ingestion.LockTTLSecs) * time.Second
}

// MaxUploadBytes returns the upload size limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
