package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/avoronov/ledger-mcp/internal/api"
	"github.com/avoronov/ledger-mcp/internal/config"
	"github.com/avoronov/ledger-mcp/internal/embedding"
	"github.com/avoronov/ledger-mcp/internal/logger"
	"github.com/avoronov/ledger-mcp/internal/server"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

func main() {
	// Parse command-line flags
	var (
		transport = flag.String("transport", "stdio", "MCP transport: stdio or http")
		addr      = flag.String("addr", ":8080", "Listen address for the http transport")
	)
	flag.Parse()

	start := time.Now()

	// A missing .env file is fine; deployments configure the process env.
	_ = godotenv.Load()

	// Initialize logger
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(cfg.LogLevel)

	log.Info().
		Str("supabase_project", projectPrefix(cfg.SupabaseURL)).
		Str("embedding_model", cfg.EmbeddingModel).
		Str("log_level", cfg.LogLevel.String()).
		Msg("Configuration loaded")

	gateway := supabase.NewGateway(cfg, log)
	embedder := embedding.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, log)
	srv := server.New(gateway, embedder, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *transport {
	case "stdio":
		log.Info().Dur("startup", time.Since(start)).Msg("Starting MCP server on stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Server stopped with error")
		}
	case "http":
		runHTTP(ctx, srv, *addr, start, log)
	default:
		log.Fatal().Str("transport", *transport).Msg("Unknown transport, expected stdio or http")
	}

	log.Info().Msg("Server stopped")
}

func runHTTP(ctx context.Context, srv *mcp.Server, addr string, start time.Time, log zerolog.Logger) {
	// No write timeout: MCP sessions hold streaming responses open.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(srv, log),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Dur("startup", time.Since(start)).Msg("Starting MCP server on http")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
}

// projectPrefix keeps the full project URL out of the logs.
func projectPrefix(raw string) string {
	if i := strings.Index(raw, "."); i >= 0 {
		return raw[:i]
	}
	return raw
}
