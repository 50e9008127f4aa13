package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin REST client for qdrant. Each deck gets its own
// collection, so a search can never cross deck boundaries.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(ctx context.Context, baseURL, apiKey string) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, baseURL+"/collections", nil)
	if err != nil {
		return nil, fmt.Errorf("build qdrant health request failed: %w", err)
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ping qdrant failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ping qdrant failed: status %d", resp.StatusCode)
	}
	return c, nil
}

// Ping verifies the qdrant endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/collections", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant returned status %d", status)
	}
	return nil
}

type Point struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type ScoredPoint struct {
	ID      uint64         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EnsureCollection creates the collection if it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, collection string, dim int) error {
	status, err := c.do(ctx, http.MethodGet, "/collections/"+collection, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	status, err = c.do(ctx, http.MethodPut, "/collections/"+collection, body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("create qdrant collection %s failed: status %d", collection, status)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	status, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("upsert qdrant points failed: status %d", status)
	}
	return nil
}

// Search returns the top-k nearest points. A missing collection yields an
// empty result rather than an error, so empty decks behave like empty corpora.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, k int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var out struct {
		Result []ScoredPoint `json:"result"`
	}
	status, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search qdrant points failed: status %d", status)
	}
	return out.Result, nil
}

// DeleteByIDs removes specific points; used when a metadata write has to be
// unwound after a partial ingest.
func (c *Client) DeleteByIDs(ctx context.Context, collection string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	status, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("delete qdrant points failed: status %d", status)
	}
	return nil
}

// DeleteBySourceFile removes every point ingested from one source file.
func (c *Client) DeleteBySourceFile(ctx context.Context, collection, sourceFile string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source_file", "match": map[string]any{"value": sourceFile}},
			},
		},
	}
	status, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("delete qdrant points by file failed: status %d", status)
	}
	return nil
}

func (c *Client) DropCollection(ctx context.Context, collection string) error {
	status, err := c.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("drop qdrant collection %s failed: status %d", collection, status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build qdrant request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response failed: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
