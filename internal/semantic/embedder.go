package semantic

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultEmbeddingModel = "text-embedding-004"

// Embedder produces embedding vectors through the Gemini API. The index
// embeds one text per call (a memory item on write, a query on search), so
// no batch surface is exposed.
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates an embedder over an existing Gemini client.
func NewEmbedder(client *genai.Client, model string) *Embedder {
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &Embedder{client: client, model: model}
}

// Embed returns the embedding vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("model %s returned no embedding", e.model)
	}
	return resp.Embeddings[0].Values, nil
}

// GetModel returns the embedding model name recorded on vector rows.
func (e *Embedder) GetModel() string {
	return e.model
}
