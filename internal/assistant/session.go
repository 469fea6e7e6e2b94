// Package assistant implements the conversational first-aid assistant:
// session management, retrieval-augmented prompt composition, and Gemini
// generation with replayed turn history.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"safe-assistant/internal/chatstore"
	"safe-assistant/internal/i18n"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
)

// maxTitleRunes bounds the session title derived from the first message.
const maxTitleRunes = 24

// defaultTitle names sessions that start without any text.
const defaultTitle = "New Chat"

// Searcher retrieves candidate chunks for a query. rag.Retriever is the
// production implementation.
type Searcher interface {
	Retrieve(ctx context.Context, collection, query string) ([]kb.Result, error)
}

// SendRequest is one user turn. An empty SessionID starts a new session.
// Collection selects the knowledge base to ground the answer in; empty
// disables retrieval.
type SendRequest struct {
	SessionID  string
	Collection string
	Language   string
	Text       string
	Images     []Image
}

// Reply is the assistant's answer together with the session it landed in.
type Reply struct {
	SessionID string   `json:"session_id"`
	Title     string   `json:"title"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources,omitempty"`
}

// Manager drives chat sessions. All mutations go through a single writer
// lock so concurrent sends cannot interleave session state.
type Manager struct {
	mu           sync.Mutex
	chats        *chatstore.Store
	generator    Generator
	searcher     Searcher
	composer     *rag.Composer
	minRelevance float64
	logger       *slog.Logger
}

// NewManager wires the session manager. searcher may be nil when no
// knowledge base is configured.
func NewManager(chats *chatstore.Store, generator Generator, searcher Searcher, composer *rag.Composer, minRelevance float64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		chats:        chats,
		generator:    generator,
		searcher:     searcher,
		composer:     composer,
		minRelevance: minRelevance,
		logger:       logger,
	}
}

// Send processes one user turn: the session is created on the first message,
// the user message is persisted before the model call, and the assistant
// message plus the updated turn history are persisted only after the model
// answers. A failed generation therefore leaves the user message in place
// and the history untouched.
func (m *Manager) Send(ctx context.Context, req SendRequest) (*Reply, error) {
	prompt, err := NewPrompt(strings.TrimSpace(req.Text), req.Images)
	if err != nil {
		return nil, err
	}
	lang := i18n.Normalize(req.Language)

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.resolveSession(req.SessionID, prompt, lang)
	if err != nil {
		return nil, err
	}

	imageBytes := make([][]byte, 0, len(prompt.Images))
	for _, img := range prompt.Images {
		imageBytes = append(imageBytes, img.Data)
	}
	if _, err := m.chats.SaveMessage(sess.ID, "user", prompt.Text, imageBytes); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	raw, err := m.chats.GetHistory(sess.ID)
	if err != nil {
		return nil, err
	}
	history, err := DecodeHistory(raw)
	if err != nil {
		return nil, err
	}

	modelText, sources := m.groundPrompt(ctx, req.Collection, lang, prompt)
	enhanced := Prompt{Kind: prompt.Kind, Text: modelText, Images: prompt.Images}

	answer, err := m.generator.Generate(ctx, lang, history, enhanced)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	if _, err := m.chats.SaveMessage(sess.ID, "assistant", answer, nil); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}
	history = append(history,
		Turn{Role: "user", Text: modelText, Images: prompt.Images},
		Turn{Role: "model", Text: answer},
	)
	encoded, err := EncodeHistory(history)
	if err != nil {
		return nil, err
	}
	if err := m.chats.SaveHistory(sess.ID, encoded); err != nil {
		return nil, err
	}

	return &Reply{SessionID: sess.ID, Title: sess.Title, Answer: answer, Sources: sources}, nil
}

func (m *Manager) resolveSession(id string, prompt Prompt, lang i18n.Language) (*chatstore.Session, error) {
	if id != "" {
		return m.chats.GetSession(id)
	}
	sess, err := m.chats.CreateSession(deriveTitle(prompt.Text), string(lang))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// groundPrompt enriches the user text with retrieved knowledge. Retrieval
// problems degrade to the plain prompt rather than failing the turn.
func (m *Manager) groundPrompt(ctx context.Context, collection string, lang i18n.Language, prompt Prompt) (string, []string) {
	if collection == "" || m.searcher == nil {
		return prompt.Text, nil
	}

	query := prompt.Text
	if len(prompt.Images) > 0 {
		desc, err := m.generator.DescribeImages(ctx, lang, prompt.Images)
		if err != nil {
			m.logger.Warn("image description failed, retrieving on text only", "error", err)
		} else if desc != "" {
			query = strings.TrimSpace(query + "\n" + desc)
		}
	}
	if query == "" {
		return prompt.Text, nil
	}

	results, err := m.searcher.Retrieve(ctx, collection, query)
	if err != nil {
		m.logger.Warn("retrieval failed, answering without context", "collection", collection, "error", err)
		return prompt.Text, nil
	}
	relevant := rag.FilterByRelevance(results, m.minRelevance)

	var sources []string
	seen := make(map[string]bool)
	for _, r := range relevant {
		if !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}
	return m.composer.Compose(prompt.Text, relevant), sources
}

// Sessions lists all chat sessions, most recently active first.
func (m *Manager) Sessions() ([]*chatstore.Session, error) {
	return m.chats.ListSessions()
}

// Messages returns the turns of one session in order.
func (m *Manager) Messages(sessionID string) ([]*chatstore.Message, error) {
	if _, err := m.chats.GetSession(sessionID); err != nil {
		return nil, err
	}
	return m.chats.GetMessages(sessionID)
}

// Delete removes one session with its messages and history.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chats.DeleteSession(sessionID)
}

// DeleteAll removes every session.
func (m *Manager) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chats.DeleteAll()
}

// deriveTitle shortens the first message into a session title. Sessions
// opened with images only get the default title.
func deriveTitle(text string) string {
	if text == "" {
		return defaultTitle
	}
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes]) + "..."
}
