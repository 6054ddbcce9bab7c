// Ragd is an agentic RAG daemon for per-disease document collections.
//
// This binary starts the ragd HTTP server with full service initialization:
// embedding provider, vector store, LLM client, and the verification
// pipeline.
//
// Configuration is loaded from ~/.config/ragd/config.yaml and RAGD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	ragd
//
//	# Start with an explicit config file
//	ragd --config /etc/ragd/config.yaml
//
//	# Configure via environment
//	RAGD_SERVER_HTTP_PORT=9000 OPENAI_API_KEY=sk-... ragd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	httpapi "github.com/fyrsmithlabs/ragd/internal/http"
	"github.com/fyrsmithlabs/ragd/internal/kb"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/telemetry"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/ragd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  ragd           Start the ragd daemon\n")
			fmt.Fprintf(os.Stderr, "  ragd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("ragd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the ragd server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes logger and telemetry
//  3. Creates the embedding provider and vector store
//  4. Creates the LLM client
//  5. Wires the generation, verification, and knowledge-base services
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger) // Best-effort sync on shutdown
	}()

	logger.Info("Starting ragd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_model", cfg.LLM.GenerationModel),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Initialize telemetry
	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if tel.IsEnabled() {
		logger.Info("Telemetry initialized",
			zap.String("endpoint", cfg.Telemetry.Endpoint),
			zap.Float64("sample_rate", cfg.Telemetry.SampleRate))
	}

	// Initialize infrastructure dependencies
	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info("Dependencies initialized",
		zap.Int("embedding_dimension", deps.embedder.Dimension()),
		zap.String("store_backend", cfg.Store.Backend))

	// Initialize business services
	services, err := initServices(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Create HTTP server
	srv, err := httpapi.NewServer(services.kbSvc, logger, &httpapi.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
		Version:         version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server (blocks until context cancellation)
	return srv.Start(ctx)
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	embedder embeddings.Provider
	store    vectorstore.Store
	llm      llm.Client
	logger   *zap.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if d.embedder != nil {
		if err := d.embedder.Close(); err != nil {
			d.logger.Warn("closing embedding provider", zap.Error(err))
		}
	}
}

// services holds all business services.
type services struct {
	kbSvc *kb.Service
}

// initLogger builds the structured logger from the logging section.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.NewDefaultConfig()

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format

	return logging.New(logCfg, nil)
}

// initTelemetry builds the OpenTelemetry stack from the telemetry section.
func initTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Telemetry.Enabled
	telCfg.Endpoint = cfg.Telemetry.Endpoint
	telCfg.Protocol = cfg.Telemetry.Protocol
	telCfg.ServiceName = cfg.Telemetry.ServiceName
	telCfg.ServiceVersion = version
	telCfg.Insecure = cfg.Telemetry.Insecure
	telCfg.Sampling.Rate = cfg.Telemetry.SampleRate

	return telemetry.New(ctx, telCfg)
}

// initDependencies initializes the embedding provider, vector store, and
// LLM client.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey.Value(),
		Dimension: cfg.Embedding.Dimension,
		CacheDir:  cfg.Embedding.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	logger.Info("Embedding provider initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model))

	store, err := vectorstore.NewStore(vectorstore.Config{
		Backend: cfg.Store.Backend,
		Chromem: vectorstore.ChromemConfig{
			Path:     cfg.Store.Path,
			Compress: cfg.Store.Compress,
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:       cfg.Store.Host,
			Port:       cfg.Store.Port,
			APIKey:     cfg.Store.APIKey.Value(),
			UseTLS:     cfg.Store.UseTLS,
			VectorSize: embedder.Dimension(),
		},
	}, embedder, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	// The store logs its own backend-specific details on init.
	logger.Info("Vector store initialized",
		zap.String("backend", cfg.Store.Backend))

	client := llm.NewOpenAIClient(llm.Config{
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey.Value(),
		GenerationModel: cfg.LLM.GenerationModel,
		ReasoningModel:  cfg.LLM.ReasoningModel,
		Timeout:         cfg.LLM.Timeout.Duration(),
	})

	return &dependencies{
		embedder: embedder,
		store:    store,
		llm:      client,
		logger:   logger,
	}, nil
}

// initServices wires the generation, verification, chunking, and
// knowledge-base services.
func initServices(cfg *config.Config, deps *dependencies, logger *zap.Logger) (*services, error) {
	generator, err := rag.NewGenerator(deps.store, deps.llm, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	verifier, err := verify.NewVerifier(generator, deps.llm, verify.Options{
		MaxAttempts:         cfg.Query.MaxAttempts,
		ConfidenceThreshold: cfg.Query.ConfidenceThreshold,
		BaseTopK:            cfg.Query.TopK,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier: %w", err)
	}

	ck, err := chunker.New(chunker.Config{
		ChunkSize: cfg.Query.ChunkSize,
		Overlap:   cfg.Query.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	kbSvc, err := kb.NewService(kb.Config{TopK: cfg.Query.TopK}, deps.store, ck, generator, verifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge base service: %w", err)
	}

	return &services{kbSvc: kbSvc}, nil
}
