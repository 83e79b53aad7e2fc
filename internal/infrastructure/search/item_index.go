package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/artesanato/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// ItemIndex keeps a searchable copy of items in Elasticsearch.
type ItemIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewItemIndex(es *elasticsearch.Client, index string) *ItemIndex {
	return &ItemIndex{ES: es, Index: index}
}

type itemDoc struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Description string `json:"description"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	PhotoURL    string `json:"photo_url,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

func (x *ItemIndex) Index(ctx context.Context, it *entity.Item) error {
	b, err := json.Marshal(itemDoc{
		ID:          it.ID,
		UserID:      it.UserID,
		Description: it.Description,
		Month:       it.Month,
		Year:        it.Year,
		Amount:      it.Amount.StringFixed(2),
		Kind:        string(it.Kind),
		Status:      string(it.Status),
		PhotoURL:    it.PhotoURL,
		UpdatedAt:   it.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: it.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index item %s: %s", it.ID, res.Status())
	}
	return nil
}

// Delete removes the document. A missing document is not an error.
func (x *ItemIndex) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete item %s: %s", id, res.Status())
	}
	return nil
}

// Search matches query against descriptions of userID's items and returns
// the hit ids in score order.
func (x *ItemIndex) Search(ctx context.Context, userID, query string, size int) ([]string, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"match": map[string]any{
						"description": map[string]any{"query": query, "fuzziness": "AUTO"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"size":    size,
		"_source": false,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return []string{}, nil
		}
		return nil, fmt.Errorf("search items: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// EnsureIndex creates the index with a keyword mapping for user_id when it
// does not exist yet.
func (x *ItemIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	exists, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":          map[string]any{"type": "keyword"},
				"user_id":     map[string]any{"type": "keyword"},
				"description": map[string]any{"type": "text"},
				"month":       map[string]any{"type": "integer"},
				"year":        map[string]any{"type": "integer"},
				"amount":      map[string]any{"type": "scaled_float", "scaling_factor": 100},
				"kind":        map[string]any{"type": "keyword"},
				"status":      map[string]any{"type": "keyword"},
				"photo_url":   map[string]any{"type": "keyword", "index": false},
				"updated_at":  map[string]any{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	res, err := esapi.IndicesCreateRequest{Index: x.Index, Body: bytes.NewReader(b)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}
