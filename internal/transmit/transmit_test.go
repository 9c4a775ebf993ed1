package transmit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftdex/driftdex/pkg/types"
)

func TestSend_Success(t *testing.T) {
	var got types.IndexRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(types.IndexResponse{ProcessedChunks: 2, SkippedChunks: 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Send(context.Background(), &types.IndexRequest{
		Branch:       "main",
		DeletedFiles: []string{"token1"},
		Chunks: []types.CodeChunk{
			{ChunkHash: "h1", Content: "x", StartLine: 1, EndLine: 1, ChunkTypes: []types.ChunkType{types.ChunkText}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.ProcessedChunks)
	assert.Equal(t, 1, resp.SkippedChunks)
	assert.Equal(t, "main", got.Branch)
	assert.Len(t, got.Chunks, 1)
	assert.Equal(t, []string{"token1"}, got.DeletedFiles)
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Send(context.Background(), &types.IndexRequest{Branch: "main"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSend_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/nope")
	_, err := c.Send(context.Background(), &types.IndexRequest{Branch: "main"})
	assert.Error(t, err)
}

func TestSend_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL)
	_, err := c.Send(ctx, &types.IndexRequest{Branch: "main"})
	assert.Error(t, err)
}
