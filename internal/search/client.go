package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"rentals_backend/internal/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrUnavailable = errors.New("search engine unavailable")

// Engine - операции над индексом объявлений
type Engine interface {
	EnsureIndex(ctx context.Context) error
	IndexDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, id string) error
	BulkIndex(ctx context.Context, docs []Document) (int, error)
	Search(ctx context.Context, p SearchParams) (*Result, error)
	Filter(ctx context.Context, p FilterParams) (*Result, error)
	SuggestSpelling(ctx context.Context, text string, max int) ([]string, error)
	Autocomplete(ctx context.Context, prefix, field string, limit int) (*Completions, error)
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type Hit struct {
	Document
	Score *float64
}

type Result struct {
	Total int64
	Hits  []Hit
}

type Completions struct {
	Titles    []string
	Locations []string
	Keywords  []string
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	return &Client{es: es, index: index}, nil
}

func (c *Client) IndexName() string {
	return c.index
}

// EnsureIndex создает индекс с маппингом, если его еще нет
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("index exists check failed: %s", res.Status())
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}

	logger.Info("Search index created", "index", c.index)
	return nil
}

func (c *Client) IndexDocument(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.ID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index document", res)
	}
	return nil
}

// DeleteDocument - отсутствующий документ не считается ошибкой
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.es.Delete(c.index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete document", res)
	}
	return nil
}

// BulkIndex возвращает число успешно проиндексированных документов
func (c *Client) BulkIndex(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := M{"index": M{"_id": doc.ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(doc); err != nil {
			return 0, err
		}
	}

	res, err := c.es.Bulk(
		&buf,
		c.es.Bulk.WithIndex(c.index),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("bulk index", res)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	indexed := 0
	var firstErr string
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				indexed++
				continue
			}
			if firstErr == "" {
				firstErr = fmt.Sprintf("%s: %s", op.ID, op.Error.Reason)
			}
		}
	}
	if firstErr != "" {
		return indexed, fmt.Errorf("bulk index partially failed (%d of %d): %s", len(docs)-indexed, len(docs), firstErr)
	}
	return indexed, nil
}

func (c *Client) Search(ctx context.Context, p SearchParams) (*Result, error) {
	resp, err := c.do(ctx, BuildSearchQuery(p))
	if err != nil {
		return nil, err
	}
	return resp.result(), nil
}

func (c *Client) Filter(ctx context.Context, p FilterParams) (*Result, error) {
	resp, err := c.do(ctx, BuildFilterQuery(p))
	if err != nil {
		return nil, err
	}
	return resp.result(), nil
}

// SuggestSpelling - уникальные варианты исправления, отсортированные по алфавиту
func (c *Client) SuggestSpelling(ctx context.Context, text string, max int) ([]string, error) {
	resp, err := c.do(ctx, BuildSpellingQuery(text, max))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, entries := range resp.Suggest {
		for _, entry := range entries {
			for _, opt := range entry.Options {
				seen[opt.Text] = struct{}{}
			}
		}
	}

	suggestions := make([]string, 0, len(seen))
	for s := range seen {
		suggestions = append(suggestions, s)
	}
	sort.Strings(suggestions)
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions, nil
}

func (c *Client) Autocomplete(ctx context.Context, prefix, field string, limit int) (*Completions, error) {
	resp, err := c.do(ctx, BuildAutocompleteQuery(prefix, field, limit))
	if err != nil {
		return nil, err
	}

	return &Completions{
		Titles:    resp.options("title_completions"),
		Locations: resp.options("location_completions"),
		Keywords:  resp.options("keyword_completions"),
	}, nil
}

func (c *Client) do(ctx context.Context, body M) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &parsed, nil
}

func responseError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch %s failed: %s %s", op, res.Status(), strings.TrimSpace(string(raw)))
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string   `json:"_id"`
			Score  *float64 `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Suggest map[string][]suggestEntry `json:"suggest"`
}

type suggestEntry struct {
	Text    string `json:"text"`
	Options []struct {
		Text string `json:"text"`
	} `json:"options"`
}

func (r *searchResponse) result() *Result {
	result := &Result{Total: r.Hits.Total.Value, Hits: make([]Hit, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		doc := h.Source
		if doc.ID == "" {
			doc.ID = h.ID
		}
		result.Hits = append(result.Hits, Hit{Document: doc, Score: h.Score})
	}
	return result
}

func (r *searchResponse) options(name string) []string {
	out := []string{}
	for _, entry := range r.Suggest[name] {
		for _, opt := range entry.Options {
			out = append(out, opt.Text)
		}
	}
	return out
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}
