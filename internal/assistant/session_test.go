package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-assistant/internal/chatstore"
	"safe-assistant/internal/i18n"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
)

type fakeGenerator struct {
	answer      string
	err         error
	description string

	gotHistory []Turn
	gotPrompt  Prompt
	gotLang    i18n.Language
}

func (f *fakeGenerator) Generate(_ context.Context, lang i18n.Language, history []Turn, prompt Prompt) (string, error) {
	f.gotLang = lang
	f.gotHistory = history
	f.gotPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) DescribeImages(_ context.Context, _ i18n.Language, _ []Image) (string, error) {
	if f.description == "" {
		return "", errors.New("no description configured")
	}
	return f.description, nil
}

type fakeSearcher struct {
	results  []kb.Result
	err      error
	gotQuery string
}

func (f *fakeSearcher) Retrieve(_ context.Context, _ string, query string) ([]kb.Result, error) {
	f.gotQuery = query
	return f.results, f.err
}

func newTestManager(t *testing.T, gen Generator, search Searcher) (*Manager, *chatstore.Store) {
	t.Helper()
	chats, err := chatstore.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { chats.Close() })
	return NewManager(chats, gen, search, rag.NewComposer(0), 50, nil), chats
}

func TestSendCreatesSessionAndPersistsTurn(t *testing.T) {
	gen := &fakeGenerator{answer: "Run the burn under **cool water**."}
	mgr, chats := newTestManager(t, gen, nil)

	reply, err := mgr.Send(context.Background(), SendRequest{
		Language: "en",
		Text:     "how do I treat a minor burn at home",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "how do I treat a minor b...", reply.Title)
	assert.Equal(t, gen.answer, reply.Answer)

	messages, err := chats.GetMessages(reply.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)

	raw, err := chats.GetHistory(reply.SessionID)
	require.NoError(t, err)
	history, err := DecodeHistory(raw)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, gen.answer, history[1].Text)
}

func TestSendFailureKeepsUserMessageOnly(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	mgr, chats := newTestManager(t, gen, nil)

	_, err := mgr.Send(context.Background(), SendRequest{Text: "help"})
	require.Error(t, err)

	sessions, err := chats.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	messages, err := chats.GetMessages(sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)

	raw, err := chats.GetHistory(sessions[0].ID)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSendContinuesExistingSession(t *testing.T) {
	gen := &fakeGenerator{answer: "first answer"}
	mgr, _ := newTestManager(t, gen, nil)

	first, err := mgr.Send(context.Background(), SendRequest{Text: "hello"})
	require.NoError(t, err)

	gen.answer = "second answer"
	second, err := mgr.Send(context.Background(), SendRequest{SessionID: first.SessionID, Text: "and then?"})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	// The second turn replays the first exchange to the model.
	require.Len(t, gen.gotHistory, 2)
	assert.Equal(t, "hello", gen.gotHistory[0].Text)
	assert.Equal(t, "first answer", gen.gotHistory[1].Text)
}

func TestSendUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t, &fakeGenerator{answer: "x"}, nil)
	_, err := mgr.Send(context.Background(), SendRequest{SessionID: "missing", Text: "hi"})
	assert.ErrorIs(t, err, chatstore.ErrSessionNotFound)
}

func TestSendGroundsPromptInKnowledgeBase(t *testing.T) {
	gen := &fakeGenerator{answer: "cool the burn"}
	search := &fakeSearcher{results: []kb.Result{
		{Text: "Cool the burn under running water for 20 minutes.", Source: "burns.txt", Distance: 0.2},
		{Text: "Cover with a sterile dressing.", Source: "burns.txt", Distance: 0.3},
		{Text: "Unrelated snake bite advice.", Source: "bites.txt", Distance: 0.8},
	}}
	mgr, _ := newTestManager(t, gen, search)

	reply, err := mgr.Send(context.Background(), SendRequest{
		Collection: "first-aid",
		Text:       "burn treatment",
	})
	require.NoError(t, err)

	assert.Equal(t, "burn treatment", search.gotQuery)
	// The low-relevance result (distance 0.8 is 20% relevance) is dropped.
	assert.Equal(t, []string{"burns.txt"}, reply.Sources)
	assert.Contains(t, gen.gotPrompt.Text, "[Document: burns.txt]")
	assert.Contains(t, gen.gotPrompt.Text, "QUESTION:\nburn treatment")
	assert.NotContains(t, gen.gotPrompt.Text, "snake bite")
}

func TestSendImageDescriptionExtendsQuery(t *testing.T) {
	gen := &fakeGenerator{answer: "ok", description: "Image 1: a blistered hand"}
	search := &fakeSearcher{}
	mgr, _ := newTestManager(t, gen, search)

	_, err := mgr.Send(context.Background(), SendRequest{
		Collection: "first-aid",
		Text:       "what should I do",
		Images:     []Image{{MIMEType: "image/jpeg", Data: []byte{0xff}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "what should I do\nImage 1: a blistered hand", search.gotQuery)
}

func TestSendRetrievalFailureDegradesToPlainPrompt(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	search := &fakeSearcher{err: errors.New("index offline")}
	mgr, _ := newTestManager(t, gen, search)

	reply, err := mgr.Send(context.Background(), SendRequest{
		Collection: "first-aid",
		Text:       "burn treatment",
	})
	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	assert.Equal(t, "burn treatment", gen.gotPrompt.Text)
}

func TestSendWithoutCollectionSkipsRetrieval(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	search := &fakeSearcher{results: []kb.Result{{Text: "x", Source: "a.txt", Distance: 0.1}}}
	mgr, _ := newTestManager(t, gen, search)

	_, err := mgr.Send(context.Background(), SendRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, search.gotQuery)
	assert.Equal(t, "hi", gen.gotPrompt.Text)
}

func TestSendImagesOnlyUsesDefaultTitle(t *testing.T) {
	gen := &fakeGenerator{answer: "that looks like a minor cut", description: "Image 1: a cut finger"}
	mgr, _ := newTestManager(t, gen, nil)

	reply, err := mgr.Send(context.Background(), SendRequest{
		Images: []Image{{MIMEType: "image/png", Data: []byte{1}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "New Chat", reply.Title)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	mgr, _ := newTestManager(t, gen, nil)

	first, err := mgr.Send(context.Background(), SendRequest{Text: "a"})
	require.NoError(t, err)
	_, err = mgr.Send(context.Background(), SendRequest{Text: "b"})
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(first.SessionID))
	sessions, err := mgr.Sessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, mgr.DeleteAll())
	sessions, err = mgr.Sessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
