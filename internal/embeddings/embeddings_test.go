package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/idea"
)

func TestOllama_Embed(t *testing.T) {
	var got OllamaEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"embeddings":[[0.1,0.2,0.3]]}`)
	}))
	defer srv.Close()

	v, err := NewOllama(srv.URL+"/", "nomic-embed-text").Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.Equal(t, OllamaEmbeddingRequest{Model: "nomic-embed-text", Input: "hello"}, got)
}

func TestOllama_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"empty", http.StatusOK, `{"embeddings":[]}`, "empty embedding"},
		{"garbage", http.StatusOK, `nope`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewOllama(srv.URL, "").Embed(context.Background(), "x")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	e, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNew_Ollama(t *testing.T) {
	cfg := &config.Config{}
	cfg.Similarity.Enabled = true
	cfg.Similarity.Provider = "ollama"
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, e)
}

func TestIdeaText(t *testing.T) {
	text := IdeaText(idea.Idea{
		Title:         "PetPals",
		Tagline:       "Walk together",
		Description:   "Dogs",
		Category:      idea.SocialUtility,
		ViralMechanic: "Invites",
	})
	assert.Equal(t, "PetPals\nWalk together\nDogs\nSocial Utility\nInvites", text)
}
