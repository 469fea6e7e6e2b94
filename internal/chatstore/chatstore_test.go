package chatstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.CreateSession("New Chat", "en")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "New Chat", sess.Title)

	loaded, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "en", loaded.Language)

	_, err = store.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessionsOrdersByRecency(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	timeNow = func() time.Time { return clock }
	defer func() { timeNow = time.Now }()

	first, err := store.CreateSession("first", "en")
	require.NoError(t, err)
	clock = base.Add(time.Minute)
	second, err := store.CreateSession("second", "en")
	require.NoError(t, err)

	// Touching the older session moves it back to the top.
	clock = base.Add(2 * time.Minute)
	_, err = store.SaveMessage(first.ID, "user", "hello", nil)
	require.NoError(t, err)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestUpdateTitle(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.CreateSession("New Chat", "en")
	require.NoError(t, err)
	require.NoError(t, store.UpdateTitle(sess.ID, "How to treat a burn..."))

	loaded, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "How to treat a burn...", loaded.Title)

	assert.ErrorIs(t, store.UpdateTitle("missing", "x"), ErrSessionNotFound)
}

func TestSaveAndGetMessages(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.CreateSession("New Chat", "en")
	require.NoError(t, err)

	_, err = store.SaveMessage(sess.ID, "user", "my hand is burned", [][]byte{{0xff, 0xd8}})
	require.NoError(t, err)
	_, err = store.SaveMessage(sess.ID, "assistant", "run it under cool water", nil)
	require.NoError(t, err)

	messages, err := store.GetMessages(sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, [][]byte{{0xff, 0xd8}}, messages[0].Images)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Nil(t, messages[1].Images)
}

func TestHistoryRoundTrip(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.CreateSession("New Chat", "en")
	require.NoError(t, err)

	history, err := store.GetHistory(sess.ID)
	require.NoError(t, err)
	assert.Nil(t, history)

	require.NoError(t, store.SaveHistory(sess.ID, []byte(`[{"role":"user"}]`)))
	require.NoError(t, store.SaveHistory(sess.ID, []byte(`[{"role":"user"},{"role":"model"}]`)))

	history, err = store.GetHistory(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"role":"user"},{"role":"model"}]`), history)
}

func TestDeleteSessionCascades(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.CreateSession("New Chat", "en")
	require.NoError(t, err)
	_, err = store.SaveMessage(sess.ID, "user", "hello", nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveHistory(sess.ID, []byte(`[]`)))

	require.NoError(t, store.DeleteSession(sess.ID))
	assert.ErrorIs(t, store.DeleteSession(sess.ID), ErrSessionNotFound)

	messages, err := store.GetMessages(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	history, err := store.GetHistory(sess.ID)
	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestDeleteAll(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateSession("a", "en")
	require.NoError(t, err)
	_, err = store.CreateSession("b", "ta")
	require.NoError(t, err)

	require.NoError(t, store.DeleteAll())

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
