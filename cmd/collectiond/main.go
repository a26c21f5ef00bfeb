// Collectiond serves virtual vector collections over HTTP.
//
// The daemon fronts a Qdrant deployment with workspace-scoped virtual
// collections, application and session scoping, and artifact-tracked
// ownership. Configuration is loaded from an optional YAML file and
// COLLECTIOND_* environment variables.
//
// Usage:
//
//	# Start the server with defaults
//	COLLECTIOND_AUTH_TOKEN=secret collectiond serve
//
//	# Start with a config file
//	collectiond serve --config /etc/collectiond/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/application"
	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/collection"
	"github.com/aicell-lab/collectiond/internal/config"
	"github.com/aicell-lab/collectiond/internal/data"
	"github.com/aicell-lab/collectiond/internal/generative"
	"github.com/aicell-lab/collectiond/internal/logging"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/rpc"
	"github.com/aicell-lab/collectiond/internal/services"
	"github.com/aicell-lab/collectiond/internal/session"
	"github.com/aicell-lab/collectiond/internal/telemetry"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "collectiond",
	Short: "Virtual vector collection daemon",
	Long: `collectiond serves workspace-scoped virtual collections backed by a
shared vector database, with application and session scoping enforced
server-side.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collectiond server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("collectiond\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runServe initializes dependencies and blocks until shutdown.
func runServe(ctx context.Context) error {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting collectiond",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Provider),
		zap.String("tracker", cfg.Tracker.Mode))

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    "collectiond",
		ServiceVersion: version,
		Disabled:       cfg.Telemetry.Disabled,
		TraceEndpoint:  cfg.Telemetry.TraceEndpoint,
		TraceInsecure:  cfg.Telemetry.TraceInsecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if terr := tel.Shutdown(context.Background()); terr != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(terr))
		}
	}()

	generator, err := initGenerator(cfg, logger)
	if err != nil {
		return err
	}

	store, err := initStore(cfg, generator, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("vector store close failed", zap.Error(cerr))
		}
	}()

	tracker, err := initTracker(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact tracker: %w", err)
	}

	checker := permission.NewChecker(cfg.Admin.Workspaces, tracker, logger)

	registry := services.NewRegistry(services.Options{
		Collections:  collection.NewManager(store, tracker, checker, logger),
		Applications: application.NewManager(store, tracker, logger),
		Sessions:     session.NewManager(tracker, logger),
		Data:         data.NewService(store, generator, checker, logger),
		VectorStore:  store,
		Tracker:      tracker,
	})

	srv, err := rpc.NewServer(registry, cfg.Auth.Token.Value(), logger, &rpc.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// initGenerator builds the optional embedding and generation backend.
// Generative search stays disabled when no API key is configured.
func initGenerator(cfg *config.Config, logger *zap.Logger) (generative.Generator, error) {
	if !cfg.Generative.APIKey.IsSet() {
		logger.Info("generative backend disabled: no API key configured")
		return nil, nil
	}

	gen, err := generative.NewOpenAI(generative.Config{
		APIKey:         cfg.Generative.APIKey.Value(),
		BaseURL:        cfg.Generative.BaseURL,
		EmbeddingModel: cfg.Generative.EmbeddingModel,
		ChatModel:      cfg.Generative.ChatModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generative backend: %w", err)
	}

	logger.Info("generative backend enabled",
		zap.String("embedding_model", cfg.Generative.EmbeddingModel),
		zap.String("chat_model", cfg.Generative.ChatModel))
	return gen, nil
}

// initStore builds the configured vector store backend.
func initStore(cfg *config.Config, embedder vectorstore.Embedder, logger *zap.Logger) (vectorstore.Store, error) {
	switch cfg.Store.Provider {
	case "memory":
		return vectorstore.NewMemoryStore(embedder), nil
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			APIKey:         cfg.Qdrant.APIKey.Value(),
			UseTLS:         cfg.Qdrant.UseTLS,
			Timeout:        cfg.Qdrant.Timeout.Duration(),
			StartupTimeout: cfg.Qdrant.StartupTimeout.Duration(),
			TextField:      cfg.Qdrant.TextField,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("unknown store provider: %q", cfg.Store.Provider)
	}
}

// initTracker builds the configured artifact tracker.
func initTracker(cfg *config.Config, logger *zap.Logger) (artifact.Tracker, error) {
	switch cfg.Tracker.Mode {
	case "memory":
		return artifact.NewMemoryTracker(), nil
	case "nats":
		return artifact.NewNATSTracker(&artifact.NATSConfig{
			URL:            cfg.Tracker.URL,
			SubjectPrefix:  cfg.Tracker.SubjectPrefix,
			RequestTimeout: cfg.Tracker.RequestTimeout.Duration(),
		}, logger)
	default:
		return nil, fmt.Errorf("unknown tracker mode: %q", cfg.Tracker.Mode)
	}
}
