package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"safe-assistant/internal/assistant"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
)

type cliApp struct {
	store     *kb.Store
	registry  *kb.Registry
	ingestor  *kb.Ingestor
	retriever *rag.Retriever
	manager   *assistant.Manager

	collection string
	language   string
	sessionID  string
}

// runInteractiveCLI drives the assistant from a terminal, used for manual
// testing without the HTTP server.
func runInteractiveCLI(ctx context.Context, app *cliApp) {
	fmt.Println("=== S.A.F.E. Test Mode ===")
	fmt.Println("Commands: collections | create <name> | drop <name> | ingest <collection> <path> |")
	fmt.Println("          sources <collection> | forget <collection> <source> | search <collection> <query> |")
	fmt.Println("          use <collection> | lang <code> | new | ask <question> | exit")

	app.language = "en"
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nsafe> ")
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "exit":
			return
		case "collections":
			for _, name := range app.store.ListCollections() {
				count, _ := app.store.Count(name)
				fmt.Printf("- %s (%d chunks)\n", name, count)
			}
		case "create":
			if len(parts) < 2 {
				continue
			}
			if err := app.store.CreateCollection(parts[1]); err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Printf("Collection '%s' created.\n", parts[1])
		case "drop":
			if len(parts) < 2 {
				continue
			}
			if err := app.store.DeleteCollection(parts[1]); err != nil {
				fmt.Println("Error:", err)
				continue
			}
			_ = app.registry.DeleteCollection(parts[1])
			fmt.Printf("Collection '%s' deleted.\n", parts[1])
		case "ingest":
			if len(parts) < 3 {
				continue
			}
			data, err := os.ReadFile(parts[2])
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			count, err := app.ingestor.Ingest(ctx, parts[1], filepath.Base(parts[2]), data)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Printf("Ingested %d chunks from %s.\n", count, filepath.Base(parts[2]))
		case "sources":
			if len(parts) < 2 {
				continue
			}
			sources, err := app.registry.Sources(parts[1])
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			for src, chunks := range sources {
				fmt.Printf("- %s (%d chunks)\n", src, chunks)
			}
		case "forget":
			if len(parts) < 3 {
				continue
			}
			deleted, err := app.ingestor.DeleteSource(ctx, parts[1], parts[2])
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Printf("Deleted %d chunks of %s.\n", deleted, parts[2])
		case "search":
			if len(parts) < 3 {
				continue
			}
			results, err := app.retriever.RetrieveK(ctx, parts[1], strings.Join(parts[2:], " "), 5)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			for _, r := range results {
				fmt.Printf("[%s #%d] (%.1f%%)\n%s\n---\n", r.Source, r.Index, rag.Relevance(r.Distance), r.Text)
			}
		case "use":
			if len(parts) < 2 {
				continue
			}
			if !app.store.HasCollection(parts[1]) {
				fmt.Printf("No such collection '%s'.\n", parts[1])
				continue
			}
			app.collection = parts[1]
			fmt.Printf("Answering from '%s'.\n", parts[1])
		case "lang":
			if len(parts) < 2 {
				continue
			}
			app.language = parts[1]
			fmt.Printf("Language set to %s.\n", app.language)
		case "new":
			app.sessionID = ""
			fmt.Println("Started a new chat.")
		case "ask":
			if len(parts) < 2 {
				continue
			}
			reply, err := app.manager.Send(ctx, assistant.SendRequest{
				SessionID:  app.sessionID,
				Collection: app.collection,
				Language:   app.language,
				Text:       strings.Join(parts[1:], " "),
			})
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			app.sessionID = reply.SessionID
			fmt.Println(reply.Answer)
			if len(reply.Sources) > 0 {
				fmt.Println("Sources:", strings.Join(reply.Sources, ", "))
			}
		}
	}
}
