// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
)

// documentIndexSettings mirrors the original index layout: the FAQ fields
// are full-text searchable, the course name is a keyword so it can be
// filtered and aggregated exactly.
const documentIndexSettings = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "text":     {"type": "text"},
      "section":  {"type": "text"},
      "question": {"type": "text"},
      "course":   {"type": "keyword"}
    }
  }
}`

const conversationIndexSettings = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "session_id": {"type": "keyword"},
      "question":   {"type": "text"},
      "answer":     {"type": "text"},
      "timestamp":  {"type": "long"}
    }
  }
}`

// EnsureIndices creates the document and conversation indices if they do
// not exist yet. Existing indices are left untouched.
func (c *Client) EnsureIndices(ctx context.Context) error {
	if err := c.ensureIndex(ctx, c.docIndex, documentIndexSettings); err != nil {
		return err
	}
	return c.ensureIndex(ctx, c.convIndex, conversationIndexSettings)
}

func (c *Client) ensureIndex(ctx context.Context, name, settings string) error {
	res, err := c.es.Indices.Exists(
		[]string{name},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: failed to check index %s: %w", name, err)
	}
	drain(res.Body)

	if res.StatusCode == http.StatusOK {
		slog.Info("Index already exists", "index", name)
		return nil
	}

	createRes, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(settings)),
	)
	if err != nil {
		return fmt.Errorf("search: failed to create index %s: %w", name, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("search: create index %s returned status %s", name, createRes.Status())
	}

	slog.Info("Created index", "index", name)
	return nil
}

// BulkIndex writes the bootstrap corpus to the FAQ index and refreshes
// it so the documents are immediately searchable. Ids are positional, so
// re-running a bootstrap overwrites rather than duplicates. It returns
// the number of documents successfully indexed.
func (c *Client) BulkIndex(ctx context.Context, docs []Document) (int, error) {
	return c.bulkIndex(ctx, docs, func(i int) string { return fmt.Sprintf("%d", i) })
}

// IndexDocuments appends documents with fresh ids, for ad-hoc ingestion
// on top of the bootstrap corpus.
func (c *Client) IndexDocuments(ctx context.Context, docs []Document) (int, error) {
	return c.bulkIndex(ctx, docs, func(int) string { return uuid.New().String() })
}

func (c *Client) bulkIndex(ctx context.Context, docs []Document, idFor func(int) string) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: c.es,
		Index:  c.docIndex,
	})
	if err != nil {
		return 0, fmt.Errorf("search: failed to create bulk indexer: %w", err)
	}

	for i, doc := range docs {
		payload, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("search: failed to marshal document %d: %w", i, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: idFor(i),
			Body:       bytes.NewReader(payload),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.Warn("Bulk index item failed", "doc_id", item.DocumentID, "error", err)
				} else {
					slog.Warn("Bulk index item rejected", "doc_id", item.DocumentID, "reason", res.Error.Reason)
				}
			},
		})
		if err != nil {
			return 0, fmt.Errorf("search: failed to enqueue document %d: %w", i, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("search: bulk indexing failed: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		slog.Warn("Some documents failed to index", "failed", stats.NumFailed, "flushed", stats.NumFlushed)
	}
	indexed := int(stats.NumFlushed - stats.NumFailed)

	if err := c.Refresh(ctx); err != nil {
		return indexed, err
	}

	slog.Info("Indexed documents", "count", indexed, "index", c.docIndex)
	return indexed, nil
}

// Refresh makes recently indexed documents visible to search.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.docIndex),
	)
	if err != nil {
		return fmt.Errorf("search: refresh failed: %w", err)
	}
	drain(res.Body)
	if res.IsError() {
		return fmt.Errorf("search: refresh returned status %s", res.Status())
	}
	return nil
}
