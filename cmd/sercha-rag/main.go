package main

// @title           Sercha RAG API
// @version         1.0
// @description     Document ingestion and retrieval-augmented question answering over an Ollama-compatible backend.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-rag/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/extractors"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

var version = "dev"

// logLevel is shared by the process logger so config can adjust it after startup
var logLevel = new(slog.LevelVar)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("sercha-rag failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sercha-rag",
		Usage:   "Document ingestion and question answering service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"SERCHA_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from these files before reading config",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen address (overrides config and HOST)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides config and PORT)",
					},
				},
			},
			{
				Name:   "check-config",
				Usage:  "Load and validate the configuration, then exit",
				Action: checkConfigCommand,
			},
			{
				Name:   "check-ai",
				Usage:  "Check that the embedding and generation services at a base URL answer",
				Action: checkAICommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ollama-url",
						Usage:    "Base URL of the embedding and generation server",
						EnvVars:  []string{"OLLAMA_URL"},
						Required: true,
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version)
					return nil
				},
			},
		},
		DefaultCommand: "serve",
	}
}

// setupLogger installs the process logger at the level named by --log-level
func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logLevel.Set(level)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig reads .env files and the config file, then applies command flags
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logLevel.Set(level)

	return cfg, nil
}

func checkConfigCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "configuration ok: listening on %s, provider %s, lock backend %s\n",
		cfg.Addr(), cfg.AI.Provider, cfg.Lock.Backend)
	return nil
}

// checkAICommand runs the health checks of both gateways against one base URL
func checkAICommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	factory, err := newAIFactory(cfg)
	if err != nil {
		return err
	}
	baseURL := c.String("ollama-url")

	ctx, cancel := context.WithTimeout(c.Context, cfg.AITimeout())
	defer cancel()

	embedder, err := factory.CreateEmbeddingService(baseURL)
	if err != nil {
		return err
	}
	defer embedder.Close()
	if err := embedder.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding model %s: %w", embedder.Model(), err)
	}
	fmt.Fprintf(c.App.Writer, "embedding ok: %s\n", embedder.Model())

	llm, err := factory.CreateLLMService(baseURL)
	if err != nil {
		return err
	}
	defer llm.Close()
	if err := llm.Ping(ctx); err != nil {
		return fmt.Errorf("generation model %s: %w", llm.Model(), err)
	}
	fmt.Fprintf(c.App.Writer, "generation ok: %s\n", llm.Model())
	return nil
}

func newAIFactory(cfg *config.Config) (*ai.Factory, error) {
	return ai.NewFactory(ai.Config{
		Provider:        cfg.AI.Provider,
		EmbeddingModel:  cfg.AI.EmbeddingModel,
		GenerationModel: cfg.AI.GenerationModel,
		Timeout:         cfg.AITimeout(),
	})
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()
	logger.Info("sercha-rag starting", "version", version, "addr", cfg.Addr())

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	lock, closeLock, err := newLock(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer closeLock()

	// ===== AI services =====
	factory, err := newAIFactory(cfg)
	if err != nil {
		return err
	}
	aiServices := runtime.NewServices(factory, runtime.DefaultMaxEntries)
	defer aiServices.Close()

	// ===== Ingestion pipeline =====
	pipeline, err := postprocessors.NewDefaultPipeline(postprocessors.ChunkConfig{
		Size:    cfg.Ingestion.ChunkSize,
		Overlap: cfg.Ingestion.ChunkOverlap,
	}, cfg.Ingestion.NormalizeWhitespace)
	if err != nil {
		return err
	}

	w, err := worker.New(worker.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Stop(30 * time.Second)
	}()

	store := memory.NewKnowledgeStore()

	ingestionService := services.NewIngestionService(services.IngestionServiceConfig{
		Extractors: extractors.DefaultRegistry(),
		Pipeline:   pipeline,
		Store:      store,
		AI:         aiServices,
		Lock:       lock,
		Worker:     w,
		Tracker:    services.NewJobTracker(logger),
		BatchSize:  cfg.Ingestion.EmbedBatchSize,
		LockTTL:    cfg.LockTTL(),
		Logger:     logger,
	})
	answerService := services.NewAnswerService(services.AnswerServiceConfig{
		Store:  store,
		AI:     aiServices,
		TopK:   cfg.Retrieval.TopK,
		Logger: logger,
	})

	// ===== HTTP =====
	if cfg.Server.UploadDir != "" {
		if err := os.MkdirAll(cfg.Server.UploadDir, 0o750); err != nil {
			return fmt.Errorf("create upload dir: %w", err)
		}
	}

	server := http.NewServer(http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		UploadDir:      cfg.Server.UploadDir,
		WriteTimeout:   cfg.AITimeout() + time.Minute,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         logger,
		Worker:         w,
	}, ingestionService, answerService, lock)

	return server.Start()
}

// newLock builds the ingestion lock for the configured backend.
// The returned func releases any connection the lock holds.
func newLock(ctx context.Context, cfg *config.Config) (driven.DistributedLock, func(), error) {
	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		client, err := redisadapter.Connect(ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis ingestion lock")
		return redisadapter.NewLock(client), func() { _ = client.Close() }, nil

	case config.LockBackendPostgres:
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Lock.DatabaseURL))
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using postgres advisory ingestion lock")
		return postgres.NewAdvisoryLock(db), func() { _ = db.Close() }, nil

	case config.LockBackendMemory, "":
		return memory.NewLock(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}
}
