// Package openaiEmbedding is the OpenAI-compatible alternative to the raw
// HTTP provider, selected by config at startup.
package openaiEmbedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ragready/pipeline/pkg/logger_i"
)

type Client struct {
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

func NewClient(apiKey string, model string) *Client {
	return &Client{
		api:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger_i.NewLogger("openai_embedding"),
	}
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response for model %s", c.model)
	}
	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
