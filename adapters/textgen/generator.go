package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gimmefy/core"
)

// HTTP calls an external text-generation service: POST {endpoint} with
// {"prompt": seed}, expecting {"text": "..."} back. The model behind the
// endpoint is a black box; the engine sanitizes whatever comes out.
type HTTP struct {
	endpoint string
	client   *http.Client
}

// NewHTTP builds an HTTP generator against the given endpoint.
func NewHTTP(endpoint string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (g *HTTP) Generate(ctx context.Context, seed string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: seed})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: generator returned status %d", core.ErrGeneration, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}
	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: bad generator response: %v", core.ErrGeneration, err)
	}
	return out.Text, nil
}

// Static echoes the seed phrase. Used in tests and as the generator of last
// resort when no endpoint is configured.
type Static struct{}

func (Static) Generate(_ context.Context, seed string) (string, error) {
	return seed, nil
}
