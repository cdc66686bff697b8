// File path: internal/vector/chromadb.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/registry"
)

// Store is the read surface the retriever needs from the descriptor index.
type Store interface {
	Available() bool
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)
}

// Match is one scored hit from the descriptor index. Score is a cosine
// similarity in [0,1]; DatasetID comes from the stored metadata.
type Match struct {
	ID        string
	DatasetID string
	Score     float64
}

var errNotFound = errors.New("chromadb resource not found")

// Client talks to a ChromaDB server over its HTTP API. All operations degrade
// gracefully: when the server is unreachable the client reports unavailable
// and the retriever falls back to keyword scoring.
type Client struct {
	httpClient *http.Client

	baseURL      string
	collection   string
	collectionID string
	available    bool
	apiKey       string

	mu sync.RWMutex
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. A failed initial
// handshake is logged, not returned: availability is re-checked per call.
func New(ctx context.Context, cfg Config) (*Client, error) {
	baseURL := fmt.Sprintf("%s://%s:%s/api/v1", cfg.Scheme, cfg.Host, cfg.Port)
	logger := common.Logger()
	logger.Info("vector: initializing chromadb client",
		"host", cfg.Host, "port", cfg.Port, "collection", cfg.Collection, "timeout", cfg.Timeout)

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
	}
	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("vector: chromadb initialization failed", "collection", cfg.Collection, "error", err)
		return client, nil
	}
	logger.Info("vector: chromadb connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) Collection() string {
	if c == nil {
		return ""
	}
	return c.collection
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("chromadb client not configured")
	}
	c.mu.RLock()
	ready := c.available && c.collectionID != ""
	c.mu.RUnlock()
	if ready {
		return nil
	}
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/heartbeat", nil, nil); err != nil {
		c.setAvailable(false)
		return err
	}
	if err := c.ensureCollectionID(ctx); err != nil {
		c.setAvailable(false)
		return err
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(available bool) {
	c.mu.Lock()
	c.available = available
	c.mu.Unlock()
}

func (c *Client) ensureCollectionID(ctx context.Context) error {
	c.mu.RLock()
	id := c.collectionID
	c.mu.RUnlock()
	if id != "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	payload := map[string]interface{}{
		"name":          c.collection,
		"get_or_create": true,
		"metadata":      map[string]interface{}{"hnsw:space": "cosine"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("chromadb returned empty collection id for %q", c.collection)
	}
	c.mu.Lock()
	c.collectionID = resp.ID
	c.mu.Unlock()
	return nil
}

// IndexDatasets embeds and upserts one document per dataset descriptor. The
// document text mirrors what the retriever embeds the question against.
func (c *Client) IndexDatasets(ctx context.Context, datasets []registry.Dataset, vectors [][]float32) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if len(datasets) == 0 {
		return nil
	}
	if len(vectors) != len(datasets) {
		return fmt.Errorf("vector count %d does not match dataset count %d", len(vectors), len(datasets))
	}
	ids := make([]string, 0, len(datasets))
	documents := make([]string, 0, len(datasets))
	metadatas := make([]map[string]interface{}, 0, len(datasets))
	for _, ds := range datasets {
		ids = append(ids, "ds_"+ds.ID)
		documents = append(documents, DescriptorText(ds))
		metadatas = append(metadatas, map[string]interface{}{
			"dataset_id": ds.ID,
			"domain":     ds.Domain,
		})
	}
	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": vectors,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/upsert", c.baseURL, url.PathEscape(c.collectionID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
		if errors.Is(err, errNotFound) {
			fallback := fmt.Sprintf("%s/collections/%s/add", c.baseURL, url.PathEscape(c.collectionID))
			return c.doRequest(ctx, http.MethodPost, fallback, payload, nil)
		}
		return err
	}
	return nil
}

// DescriptorText renders the embedding document for a dataset descriptor.
func DescriptorText(ds registry.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset %s (%s): %s", ds.Name, ds.Domain, ds.Description)
	for _, t := range ds.Tables {
		fmt.Fprintf(&b, "\nTable %s: %s", t.Qualified(), t.Description)
	}
	for _, d := range ds.Definitions {
		fmt.Fprintf(&b, "\nDefinition %s: %s", d.Term, d.Definition)
	}
	return b.String()
}

func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	body := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        limit,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, url.PathEscape(c.collectionID))
	var resp struct {
		IDs       [][]string                 `json:"ids"`
		Distances [][]float64                `json:"distances"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	results := make([]Match, 0, len(resp.IDs[0]))
	for idx, id := range resp.IDs[0] {
		match := Match{ID: id}
		if len(resp.Metadatas) > 0 && idx < len(resp.Metadatas[0]) {
			if raw, ok := resp.Metadatas[0][idx]["dataset_id"].(string); ok {
				match.DatasetID = raw
			}
		}
		if len(resp.Distances) > 0 && idx < len(resp.Distances[0]) {
			// Cosine distance to similarity, clamped to [0,1].
			score := 1 - resp.Distances[0][idx]
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			match.Score = score
		}
		results = append(results, match)
	}
	return results, nil
}

var _ Store = (*Client)(nil)

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode chromadb payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build chromadb request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chromadb request: %w", err)
	}
	defer resp.Body.Close()
	common.Logger().Debug("vector: chromadb request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "dur", time.Since(start))
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("chromadb %s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chromadb response: %w", err)
	}
	return nil
}
