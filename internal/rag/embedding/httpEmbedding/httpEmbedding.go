// Package httpEmbedding calls an embedding provider over plain HTTP using
// the {"inputText": ...} request shape. The response is inspected for an
// "embedding", "embeddings" or "vector" key, in that priority order; any
// other shape is an unsupported-format error.
package httpEmbedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ragready/pipeline/internal/customHttpClient"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var ErrUnsupportedResponseFormat = errors.New("unsupported embedding response format")

type Client struct {
	endpoint string
	modelId  string
	apiKey   string
	http     *http.Client
	logger   *logger_i.Logger
}

func NewClient(endpoint string, modelId string, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		modelId:  modelId,
		apiKey:   apiKey,
		http:     customHttpClient.Get(),
		logger:   logger_i.NewLogger("http_embedding"),
	}
}

type embedRequest struct {
	InputText string `json:"inputText"`
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{InputText: text})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/model/%s/invoke", c.endpoint, c.modelId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(body))
	}
	return parseEmbedding(body)
}

// parseEmbedding accepts the three response shapes seen across providers.
func parseEmbedding(body []byte) ([]float32, error) {
	var parsed struct {
		Embedding  []float32   `json:"embedding"`
		Embeddings [][]float32 `json:"embeddings"`
		Vector     []float32   `json:"vector"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedResponseFormat, err)
	}
	switch {
	case parsed.Embedding != nil:
		return parsed.Embedding, nil
	case len(parsed.Embeddings) > 0:
		return parsed.Embeddings[0], nil
	case parsed.Vector != nil:
		return parsed.Vector, nil
	}
	return nil, ErrUnsupportedResponseFormat
}
