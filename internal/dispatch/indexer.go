// internal/dispatch/indexer.go
package dispatch

import (
	"bytes"
	"context"
	"fmt"

	"jobcore/internal/common/database"
)

// SearchIndexer mirrors job documents into the index consumed by the external
// search service.
type SearchIndexer interface {
	Index(ctx context.Context, id string, document []byte) error
	Delete(ctx context.Context, id string) error
}

// ESIndexer is the Elasticsearch-backed SearchIndexer.
type ESIndexer struct {
	es    *database.ElasticsearchClient
	index string
}

func NewESIndexer(es *database.ElasticsearchClient, index string) *ESIndexer {
	return &ESIndexer{es: es, index: index}
}

func (e *ESIndexer) Index(ctx context.Context, id string, document []byte) error {
	res, err := e.es.Client.Index(
		e.index,
		bytes.NewReader(document),
		e.es.Client.Index.WithDocumentID(id),
		e.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s: %s", id, res.Status())
	}
	return nil
}

func (e *ESIndexer) Delete(ctx context.Context, id string) error {
	res, err := e.es.Client.Delete(
		e.index,
		id,
		e.es.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	defer res.Body.Close()

	// 404 is fine; the job may never have been indexed.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete document %s: %s", id, res.Status())
	}
	return nil
}
