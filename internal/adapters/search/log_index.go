package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type (
	// LogIndex stores log entries in Elasticsearch for full text search.
	LogIndex struct {
		client *elasticsearch.Client
		index  string
		logger infrastructure.Logger
	}

	searchResponse struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source domain.LogEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
)

func NewLogIndex(client *elasticsearch.Client, index string, logger infrastructure.Logger) *LogIndex {
	return &LogIndex{
		client: client,
		index:  index,
		logger: logger.Component("log-index"),
	}
}

func (i *LogIndex) Index(ctx context.Context, entry *domain.LogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode log entry %s: %w", entry.ID, err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(entry.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index log entry %s: %w", entry.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index log entry %s: %s", entry.ID, res.String())
	}

	return nil
}

// Search runs a full text query on the message, newest entries first.
func (i *LogIndex) Search(ctx context.Context, filter domain.LogFilter, page domain.PageRequest) ([]*domain.LogEntry, int, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(filter, page)); err != nil {
		return nil, 0, fmt.Errorf("failed to encode log search: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(&buf),
		i.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("log search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("log search failed: %s", res.String())
	}

	return decodeHits(res.Body)
}

func (i *LogIndex) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

func buildQuery(filter domain.LogFilter, page domain.PageRequest) map[string]any {
	var (
		must    []any
		filters []any
	)

	if filter.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  filter.Query,
				"fields": []string{"message^2", "job_name", "order_id"},
			},
		})
	}

	for field, value := range map[string]string{
		"level":    string(filter.Level),
		"source":   filter.Source,
		"queue":    filter.Queue,
		"order_id": filter.OrderID,
	} {
		if value != "" {
			filters = append(filters, map[string]any{"term": map[string]any{field: value}})
		}
	}

	if filter.Since != nil {
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"created_at": map[string]any{"gte": filter.Since.UTC().Format(time.RFC3339)},
			},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}

	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(boolQuery) > 0 {
		query = map[string]any{"bool": boolQuery}
	}

	return map[string]any{
		"query": query,
		"from":  page.Offset(),
		"size":  page.Limit(),
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
	}
}

func decodeHits(body io.Reader) ([]*domain.LogEntry, int, error) {
	var result searchResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode log search: %w", err)
	}

	entries := make([]*domain.LogEntry, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		entry := hit.Source
		entries = append(entries, &entry)
	}

	return entries, result.Hits.Total.Value, nil
}

