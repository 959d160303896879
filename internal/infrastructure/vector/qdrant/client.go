package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "text"
	scrollPageSize   = 256
)

// Client stores passages as qdrant points: a dense vector for semantic
// search, a sparse term vector for keyword search, and the text as payload.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Option func(*Client)

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

func New(baseURL, collection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type point struct {
	ID      string         `json:"id"`
	Vector  map[string]any `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]point, 0, len(passages))
	for i, p := range passages {
		points = append(points, point{
			ID: p.ID,
			Vector: map[string]any{
				denseVectorName:  vectors[i],
				sparseVectorName: encodeSparseDocument(p.Text, p.Source),
			},
			Payload: map[string]any{
				"text":     p.Text,
				"source":   p.Source,
				"position": p.Position,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.request(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) SearchVectors(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": vector,
		},
		"limit":        k,
		"with_payload": false,
	}

	var searchResp struct {
		Result []struct {
			ID    any     `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.request(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredID, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredID{ID: fmt.Sprintf("%v", r.ID), Score: r.Score})
	}
	return out, nil
}

// SearchLexical queries the sparse term vectors. Raw scores are unbounded, so
// they are divided by the best hit to land in [0,1].
func (c *Client) SearchLexical(ctx context.Context, text string, k int) ([]domain.ScoredText, error) {
	query := encodeSparseQuery(text)
	if len(query.Indices) == 0 || k <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   sparseVectorName,
			"vector": query,
		},
		"limit":        k,
		"with_payload": []string{"text"},
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.request(ctx, http.MethodPost, path, reqBody, &searchResp, "sparse search"); err != nil {
		return nil, err
	}

	maxScore := 0.0
	for _, r := range searchResp.Result {
		maxScore = max(maxScore, r.Score)
	}
	out := make([]domain.ScoredText, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		score := 0.0
		if maxScore > 0 {
			score = r.Score / maxScore
		}
		out = append(out, domain.ScoredText{Text: getStringPayload(r.Payload, "text"), Score: score})
	}
	return out, nil
}

func (c *Client) Passages(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	reqBody := map[string]any{
		"ids":          ids,
		"with_payload": []string{"text"},
		"with_vector":  false,
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", c.collection)
	if err := c.request(ctx, http.MethodPost, path, reqBody, &resp, "retrieve"); err != nil {
		return nil, err
	}
	for _, r := range resp.Result {
		out[fmt.Sprintf("%v", r.ID)] = getStringPayload(r.Payload, "text")
	}
	return out, nil
}

// SavePassages is a no-op: passage text travels as point payload in
// IndexPassages.
func (c *Client) SavePassages(context.Context, []domain.Passage) error {
	return nil
}

func (c *Client) ListPassages(ctx context.Context) ([]domain.Passage, error) {
	var (
		out    []domain.Passage
		offset any
	)
	path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
	for {
		reqBody := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := c.request(ctx, http.MethodPost, path, reqBody, &resp, "scroll"); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			pos, _ := p.Payload["position"].(float64)
			out = append(out, domain.Passage{
				ID:       fmt.Sprintf("%v", p.ID),
				Text:     getStringPayload(p.Payload, "text"),
				Source:   getStringPayload(p.Payload, "source"),
				Position: int(pos),
			})
		}
		if resp.Result.NextPageOffset == nil {
			return out, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{"modifier": "idf"},
		},
	}

	err := c.request(ctx, http.MethodPut, "/collections/"+c.collection, reqBody, nil, "ensure collection")
	// 409 when the collection already exists.
	if err != nil && !isStatus(err, http.StatusConflict) {
		return err
	}
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, payload, out any, operation string) error {
	call := func(ctx context.Context) error {
		return c.do(ctx, method, path, payload, out, operation)
	}
	if c.executor == nil {
		return wrapTemporaryIfNeeded("qdrant "+operation, call(ctx))
	}
	err := c.executor.Execute(ctx, "qdrant."+operation, call, classifyQdrantError)
	return wrapTemporaryIfNeeded("qdrant "+operation, err)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
