package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeSendsTranscriptAndReturnsContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "meeting transcript text", req.Messages[1].Content)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": " Summary:\n- point one "}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4o-mini", nil)
	summary, err := client.Summarize(context.Background(), "meeting transcript text")
	require.NoError(t, err)
	require.Equal(t, "Summary:\n- point one", summary)
}

func TestSummarizeRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4o-mini", nil)
	summary, err := client.Summarize(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, "ok", summary)
	require.Equal(t, int32(2), calls.Load())
}

func TestSummarizeDoesNotRetryBadRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "gpt-4o-mini", nil)
	_, err := client.Summarize(context.Background(), "text")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestSummarizeUnconfigured(t *testing.T) {
	t.Parallel()

	client := NewClient("", "", "gpt-4o-mini", nil)
	_, err := client.Summarize(context.Background(), "text")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	t.Parallel()

	client := NewClient("http://localhost:1", "sk", "m", nil)
	_, err := client.Summarize(context.Background(), "   ")
	require.Error(t, err)
}
