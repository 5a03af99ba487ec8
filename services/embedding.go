package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// EmbeddingDimensions is the output width of the embedding model; the
// intent_embedding column is typed vector(1536) to match.
const EmbeddingDimensions = 1536

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates the embedding vector for the given text. Any transport or
// API failure is returned as an error; callers must not fall back to a
// substitute vector.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model:          c.embeddingModel,
		Input:          text,
		EncodingFormat: "float",
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embeddings status %d: %s", resp.StatusCode(), resp.String())
	}

	var er embeddingResponse
	if err := json.Unmarshal(resp.Body(), &er); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("embeddings response contained no data")
	}

	return er.Data[0].Embedding, nil
}
