package helpers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rentals_backend/internal/models"
	"rentals_backend/internal/search"
)

// MemoryEngine - search.Engine в памяти для интеграционных тестов.
// Поиск - подстрока без учета регистра; видимость как в Elasticsearch: только PUBLISHED и активные.
type MemoryEngine struct {
	mu   sync.RWMutex
	docs map[string]search.Document
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{docs: map[string]search.Document{}}
}

func (e *MemoryEngine) EnsureIndex(ctx context.Context) error { return nil }

func (e *MemoryEngine) IndexDocument(ctx context.Context, doc search.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[doc.ID] = doc
	return nil
}

func (e *MemoryEngine) DeleteDocument(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.docs, id)
	return nil
}

func (e *MemoryEngine) BulkIndex(ctx context.Context, docs []search.Document) (int, error) {
	for _, d := range docs {
		_ = e.IndexDocument(ctx, d)
	}
	return len(docs), nil
}

// Has - документ есть в индексе
func (e *MemoryEngine) Has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.docs[id]
	return ok
}

func (e *MemoryEngine) Search(ctx context.Context, p search.SearchParams) (*search.Result, error) {
	query := strings.ToLower(p.Query)
	return e.collect(p.Skip, p.Limit, func(d search.Document) bool {
		for _, field := range append([]string{d.Title, d.Description, d.Location}, d.Keywords...) {
			if strings.Contains(strings.ToLower(field), query) {
				return true
			}
		}
		return false
	}), nil
}

func (e *MemoryEngine) Filter(ctx context.Context, p search.FilterParams) (*search.Result, error) {
	location := strings.ToLower(p.Location)
	return e.collect(p.Skip, p.Limit, func(d search.Document) bool {
		if location != "" && !strings.Contains(strings.ToLower(d.Location), location) {
			return false
		}
		if p.MaxPrice != nil && d.RentPerWeek > *p.MaxPrice {
			return false
		}
		if p.StartDate != nil && d.StartDate.Before(*p.StartDate) {
			return false
		}
		return true
	}), nil
}

func (e *MemoryEngine) SuggestSpelling(ctx context.Context, text string, max int) ([]string, error) {
	return []string{}, nil
}

func (e *MemoryEngine) Autocomplete(ctx context.Context, prefix, field string, limit int) (*search.Completions, error) {
	prefix = strings.ToLower(prefix)
	out := &search.Completions{Titles: []string{}, Locations: []string{}, Keywords: []string{}}
	for _, d := range e.visible() {
		if strings.HasPrefix(strings.ToLower(d.Title), prefix) && len(out.Titles) < limit {
			out.Titles = append(out.Titles, d.Title)
		}
		if strings.HasPrefix(strings.ToLower(d.Location), prefix) && len(out.Locations) < limit {
			out.Locations = append(out.Locations, d.Location)
		}
	}
	return out, nil
}

func (e *MemoryEngine) visible() []search.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	docs := make([]search.Document, 0, len(e.docs))
	for _, d := range e.docs {
		if d.Status == string(models.ApartmentStatusPublished) && d.IsActive {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs
}

func (e *MemoryEngine) collect(skip, limit int, match func(d search.Document) bool) *search.Result {
	result := &search.Result{}
	for _, d := range e.visible() {
		if !match(d) {
			continue
		}
		result.Total++
		if int(result.Total) > skip && len(result.Hits) < limit {
			result.Hits = append(result.Hits, search.Hit{Document: d})
		}
	}
	return result
}
