// Command safed-mcp exposes the first-aid knowledge base and assistant as
// MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"google.golang.org/genai"

	"safe-assistant/internal/assistant"
	"safe-assistant/internal/chatstore"
	"safe-assistant/internal/chunker"
	"safe-assistant/internal/config"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
)

type app struct {
	store     *kb.Store
	registry  *kb.Registry
	ingestor  *kb.Ingestor
	retriever *rag.Retriever
	manager   *assistant.Manager
}

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir, err := config.DefaultDataDir()
	if err != nil {
		logger.Error("failed to resolve data directory", "error", err)
		os.Exit(1)
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
	chats, err := chatstore.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		logger.Error("failed to open chat store", "error", err)
		os.Exit(1)
	}
	defer chats.Close()

	retriever := rag.NewRetriever(store, cfg.Retrieval.FetchK)
	a := &app{
		store:     store,
		registry:  registry,
		ingestor:  kb.NewIngestor(splitter, store, registry, nil, logger),
		retriever: retriever,
		manager: assistant.NewManager(
			chats,
			assistant.NewGemini(client, cfg.Gemini.ChatModel),
			retriever,
			rag.NewComposer(cfg.Retrieval.MaxContextChars),
			cfg.Retrieval.MinRelevance,
			logger,
		),
	}

	s := server.NewMCPServer("safed-mcp", "1.0.0")

	s.AddTool(mcp.NewTool("create_collection",
		mcp.WithDescription("Creates a named knowledge base collection for first-aid documents."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection name")),
	), a.createCollectionHandler)

	s.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("Lists the knowledge base collections and their chunk counts."),
	), a.listCollectionsHandler)

	s.AddTool(mcp.NewTool("ingest_document",
		mcp.WithDescription("Chunks and indexes a local text, markdown or PDF file into a collection."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Target collection")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the document file")),
	), a.ingestHandler)

	s.AddTool(mcp.NewTool("delete_source",
		mcp.WithDescription("Removes all chunks of one source document from a collection."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source filename to remove")),
	), a.deleteSourceHandler)

	s.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Semantic search over a collection, returns the best matching chunks."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
	), a.searchHandler)

	s.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Asks the first-aid assistant a question, grounded in a collection when given."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The first-aid question")),
		mcp.WithString("collection", mcp.Description("Collection to ground the answer in")),
		mcp.WithString("language", mcp.Description("Response language code (en, ta, hi, te)")),
	), a.askHandler)

	logger.Info("server starting on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func stringArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func (a *app) createCollectionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := stringArgs(request)
	name, _ := args["name"].(string)
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	if err := a.store.CreateCollection(name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Collection '%s' created.", name)), nil
}

func (a *app) listCollectionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := a.store.ListCollections()
	if len(names) == 0 {
		return mcp.NewToolResultText("No collections."), nil
	}
	var sb strings.Builder
	for _, name := range names {
		count, _ := a.store.Count(name)
		sb.WriteString(fmt.Sprintf("- %s (%d chunks)\n", name, count))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (a *app) ingestHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := stringArgs(request)
	collection, _ := args["collection"].(string)
	path, _ := args["path"].(string)
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
	}
	count, err := a.ingestor.Ingest(ctx, collection, filepath.Base(path), data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ingested %d chunks from %s.", count, filepath.Base(path))), nil
}

func (a *app) deleteSourceHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := stringArgs(request)
	collection, _ := args["collection"].(string)
	source, _ := args["source"].(string)
	deleted, err := a.ingestor.DeleteSource(ctx, collection, source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d chunks of %s.", deleted, source)), nil
}

func (a *app) searchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := stringArgs(request)
	collection, _ := args["collection"].(string)
	query, _ := args["query"].(string)

	searchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	results, err := a.retriever.RetrieveK(searchCtx, collection, query, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching chunks."), nil
	}
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("[%s #%d] (%.1f%%)\n%s\n---\n", r.Source, r.Index, rag.Relevance(r.Distance), r.Text))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (a *app) askHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := stringArgs(request)
	question, _ := args["question"].(string)
	collection, _ := args["collection"].(string)
	language, _ := args["language"].(string)

	reply, err := a.manager.Send(ctx, assistant.SendRequest{
		Collection: collection,
		Language:   language,
		Text:       question,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	answer := reply.Answer
	if len(reply.Sources) > 0 {
		answer += "\n\nSources: " + strings.Join(reply.Sources, ", ")
	}
	return mcp.NewToolResultText(answer), nil
}
