package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"safe-assistant/internal/assistant"
	"safe-assistant/internal/chatstore"
	"safe-assistant/internal/chunker"
	"safe-assistant/internal/config"
	"safe-assistant/internal/hospitals"
	"safe-assistant/internal/httpx"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
	"safe-assistant/internal/server"
	"safe-assistant/internal/transcribe"
)

func main() {
	testMode := flag.Bool("t", false, "Run in interactive CLI test mode")
	dataDir := flag.String("data", "", "Data directory (default ~/.safed)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = config.DefaultDataDir()
		if err != nil {
			logger.Error("failed to resolve data directory", "error", err)
			os.Exit(1)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dir, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if cfg.Gemini.APIKey == "" {
		logger.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
	if err != nil {
		logger.Error("failed to create GenAI client", "error", err)
		os.Exit(1)
	}

	store, err := kb.NewStore(dir, kb.NewGeminiEmbedder(client, cfg.Gemini.EmbeddingModel), logger)
	if err != nil {
		logger.Error("failed to open vector store", "error", err)
		os.Exit(1)
	}
	registry, err := kb.NewRegistry(filepath.Join(dir, "registry"))
	if err != nil {
		logger.Error("failed to open ingestion registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		logger.Error("invalid chunking config", "error", err)
		os.Exit(1)
	}
	ingestor := kb.NewIngestor(splitter, store, registry, nil, logger)
	retriever := rag.NewRetriever(store, cfg.Retrieval.FetchK)
	composer := rag.NewComposer(cfg.Retrieval.MaxContextChars)

	chats, err := chatstore.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		logger.Error("failed to open chat store", "error", err)
		os.Exit(1)
	}
	defer chats.Close()

	generator := assistant.NewGemini(client, cfg.Gemini.ChatModel)
	manager := assistant.NewManager(chats, generator, retriever, composer, cfg.Retrieval.MinRelevance, logger)

	httpClient := httpx.New(time.Duration(cfg.TimeoutSeconds) * time.Second)
	transcriber := transcribe.New(httpClient, cfg.Groq.BaseURL, cfg.Groq.APIKey, cfg.Groq.Model)
	finder := hospitals.NewFinder(httpClient)

	if *testMode {
		runInteractiveCLI(ctx, &cliApp{
			store:     store,
			registry:  registry,
			ingestor:  ingestor,
			retriever: retriever,
			manager:   manager,
		})
		return
	}

	srv := server.New(store, ingestor, registry, retriever, manager, transcriber, finder, cfg.Retrieval.MinRelevance, logger)

	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr, "data_dir", dir)
		if err := srv.Start(cfg.ListenAddr); err != nil {
			logger.Info("server stopped", "reason", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
