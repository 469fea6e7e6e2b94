package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-assistant/internal/httpx"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "ta", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "note.wav", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFF"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"my hand is burned"}`))
	}))
	defer srv.Close()

	client := New(httpx.New(time.Second), srv.URL, "test-key", "whisper-large-v3")
	text, err := client.Transcribe(context.Background(), "note.wav", []byte("RIFF"), "ta")
	require.NoError(t, err)
	assert.Equal(t, "my hand is burned", text)
}

func TestTranscribeNoLanguageHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("language"))
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	client := New(httpx.New(time.Second), srv.URL, "test-key", "whisper-large-v3")
	_, err := client.Transcribe(context.Background(), "note.wav", []byte("RIFF"), "")
	require.NoError(t, err)
}

func TestTranscribeErrors(t *testing.T) {
	client := New(httpx.New(time.Second), "http://unused", "", "whisper-large-v3")
	_, err := client.Transcribe(context.Background(), "note.wav", []byte("RIFF"), "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	client = New(httpx.New(time.Second), "http://unused", "key", "whisper-large-v3")
	_, err = client.Transcribe(context.Background(), "note.wav", nil, "")
	assert.ErrorContains(t, err, "empty audio")
}

func TestTranscribeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	client := New(httpx.New(time.Second), srv.URL, "bad-key", "whisper-large-v3")
	_, err := client.Transcribe(context.Background(), "note.wav", []byte("RIFF"), "")
	assert.ErrorContains(t, err, "status 401")
}
