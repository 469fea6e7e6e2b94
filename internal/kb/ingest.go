package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"safe-assistant/internal/chunker"
)

// ErrUnsupportedFileType is returned for uploads that are neither plain text
// nor PDF. The check happens before any side-effecting call.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// CommandRunner executes an external command and returns its stdout.
// It exists so text extraction can be tested without the real binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ingestor turns uploaded files into indexed chunks: extract text, split,
// add to the vector store, and record the ingest in the registry.
type Ingestor struct {
	splitter *chunker.Splitter
	store    *Store
	registry *Registry
	runner   CommandRunner
	logger   *slog.Logger
}

// NewIngestor wires an ingestion pipeline. A nil runner uses the real
// pdftotext binary for PDF extraction.
func NewIngestor(splitter *chunker.Splitter, store *Store, registry *Registry, runner CommandRunner, logger *slog.Logger) *Ingestor {
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingestor{
		splitter: splitter,
		store:    store,
		registry: registry,
		runner:   runner,
		logger:   logger,
	}
}

// Ingest extracts text from the uploaded file, chunks it and indexes the
// chunks into the collection under the file's name. Returns the number of
// chunks indexed. Re-ingesting the same file overwrites its chunks.
func (ing *Ingestor) Ingest(ctx context.Context, collection, filename string, data []byte) (int, error) {
	if !ing.store.HasCollection(collection) {
		return 0, fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}

	text, err := ing.extractText(ctx, filename, data)
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("no text extracted from %q", filename)
	}

	source := sanitizeSource(filename)
	pieces := ing.splitter.Split(text)
	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{Source: source, Index: i, Text: p}
	}

	count, err := ing.store.Add(ctx, collection, chunks)
	if err != nil {
		return 0, err
	}

	if err := ing.registry.RecordIngest(collection, source, count, ""); err != nil {
		ing.logger.Warn("failed to record ingest", "collection", collection, "source", source, "error", err)
	}

	ing.logger.Info("ingested document", "collection", collection, "source", source, "chunks", count)
	return count, nil
}

// DeleteSource removes every chunk of a source from the collection and drops
// its ingestion record. Returns the number of chunks removed.
func (ing *Ingestor) DeleteSource(ctx context.Context, collection, source string) (int, error) {
	deleted, err := ing.store.DeleteBySource(ctx, collection, source)
	if err != nil {
		return 0, err
	}
	if err := ing.registry.Delete(collection, source); err != nil {
		ing.logger.Warn("failed to delete ingest record", "collection", collection, "source", source, "error", err)
	}
	return deleted, nil
}

// extractText converts the raw upload into plain text. Text files are decoded
// directly; PDFs go through the external pdftotext binary.
func (ing *Ingestor) extractText(ctx context.Context, filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".text":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%q is not valid UTF-8 text", filename)
		}
		return string(data), nil
	case ".pdf":
		return ing.extractPDF(ctx, data)
	default:
		return "", fmt.Errorf("%q: %w", filename, ErrUnsupportedFileType)
	}
}

func (ing *Ingestor) extractPDF(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "safed-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	// "-" sends the extracted text to stdout.
	out, err := ing.runner.Run(ctx, "pdftotext", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdf extraction failed: %w", err)
	}
	return string(out), nil
}
