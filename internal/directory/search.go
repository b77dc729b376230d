// internal/directory/search.go

// Package directory serves school lookups from the Elasticsearch index.
// It is a read-only surface over the same warehouse rows: searches return
// the indexed documents as-is and never produce match scores.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/common/metrics"
)

// SearchResult carries one page of directory hits.
type SearchResult struct {
	Schools   []map[string]interface{} `json:"schools"`
	TotalHits int64                    `json:"total_hits"`
	MaxScore  float64                  `json:"max_score"`
	Took      int64                    `json:"took_ms"`
}

// Directory runs searches against the configured school index.
type Directory struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Directory {
	return &Directory{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// Search executes the directory query and decodes the hit page.
func (d *Directory) Search(ctx context.Context, query SchoolSearch) (*SearchResult, error) {
	query.Index = d.index

	req, err := BuildSearchRequest(query)
	if err != nil {
		return nil, errors.NewDirectoryError("build", err)
	}

	start := time.Now()
	res, err := req.Do(ctx, d.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchTimeoutError(d.index)
		}
		return nil, errors.NewDirectoryError("search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, errors.NewIndexNotFoundError(d.index)
		}
		return nil, errors.NewDirectoryError("search", fmt.Errorf("search query failed: %s", res.String()))
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewDirectoryError("decode", err)
	}

	result, err := decodeHits(r)
	if err != nil {
		return nil, err
	}
	result.Took = time.Since(start).Milliseconds()

	metrics.DirectorySearchDuration.Observe(time.Since(start).Seconds())

	d.logger.Debug("Directory search completed", map[string]interface{}{
		"index":     d.index,
		"totalHits": result.TotalHits,
		"returned":  len(result.Schools),
		"tookMs":    result.Took,
	})

	return result, nil
}

// Ping verifies the index exists and is reachable.
func (d *Directory) Ping(ctx context.Context) error {
	res, err := d.client.Indices.Exists([]string{d.index}, d.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewDirectoryError("ping", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return errors.NewIndexNotFoundError(d.index)
	}
	if res.IsError() {
		return errors.NewDirectoryError("ping", fmt.Errorf("index check failed: %s", res.String()))
	}
	return nil
}

func decodeHits(r map[string]interface{}) (*SearchResult, error) {
	hits, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.NewDirectoryError("decode", fmt.Errorf("response missing hits"))
	}

	total := 0.0
	if t, ok := hits["total"].(map[string]interface{}); ok {
		total, _ = t["value"].(float64)
	}

	maxScore := 0.0
	if ms, ok := hits["max_score"].(float64); ok {
		maxScore = ms
	}

	schools := []map[string]interface{}{}
	if hh, ok := hits["hits"].([]interface{}); ok {
		for _, hit := range hh {
			h, ok := hit.(map[string]interface{})
			if !ok {
				continue
			}
			if source, ok := h["_source"].(map[string]interface{}); ok {
				schools = append(schools, source)
			}
		}
	}

	return &SearchResult{
		Schools:   schools,
		TotalHits: int64(total),
		MaxScore:  maxScore,
	}, nil
}
