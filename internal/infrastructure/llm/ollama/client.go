package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Option func(*Client)

// WithExecutor routes every call through retries and a circuit breaker.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) { c.executor = e }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func New(baseURL, genModel, embedModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    genModel,
		embedModel:  embedModel,
		temperature: 0.7,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator produces free-form answers from a formatted prompt.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": g.client.temperature,
		},
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	if c.executor == nil {
		return toDomainError("ollama "+operation, c.postJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, "ollama."+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, classifyError)
	return toDomainError("ollama "+operation, err)
}
