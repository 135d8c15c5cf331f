// Package search indexes products into Elasticsearch and serves full-text
// queries over name and description.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/craftberry/shop/internal/models"
)

type Service struct {
	ES    *elasticsearch.Client
	Index string
}

func New(es *elasticsearch.Client, index string) *Service {
	return &Service{ES: es, Index: index}
}

// Enabled reports whether an ES cluster is wired in. All methods are no-ops
// when it is not.
func (s *Service) Enabled() bool {
	return s != nil && s.ES != nil
}

func (s *Service) IndexProduct(ctx context.Context, p models.Product) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(body),
		s.ES.Index.WithDocumentID(p.ID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if !s.Enabled() {
		return nil
	}
	res, err := s.ES.Delete(s.Index, id, s.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer res.Body.Close()
	// deleting an unindexed product is fine
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

func (s *Service) Query(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if !s.Enabled() {
		return 0, nil, fmt.Errorf("search is not configured")
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	products := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		products[i] = hit.Source
	}
	return r.Hits.Total.Value, products, nil
}

// NormalizeQuery trims and collapses whitespace in a user query.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
