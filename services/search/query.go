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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("coursefaq.search")

// DefaultSearchSize is how many FAQ snippets a retrieval returns.
const DefaultSearchSize = 5

// Search runs the FAQ retrieval query: a multi_match over the question
// (boosted), answer text, and section, optionally filtered to a single
// course. Hits come back in score order.
func (c *Client) Search(ctx context.Context, query, course string, size int) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.course", course),
		attribute.Int("search.size", size),
	)

	if size <= 0 {
		size = DefaultSearchSize
	}

	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"question^3", "text", "section"},
				"type":   "best_fields",
			},
		},
	}
	if course != "" {
		boolQuery["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"course": course},
		}
	}
	searchBody := map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchBody); err != nil {
		return nil, fmt.Errorf("search: failed to encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.docIndex),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search: query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := fmt.Errorf("search: query returned status %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: failed to decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{Document: h.Source, Score: h.Score})
	}
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// Courses returns the distinct course names present in the FAQ index,
// via a terms aggregation on the course keyword field.
func (c *Client) Courses(ctx context.Context) ([]string, error) {
	body := `{
	  "size": 0,
	  "aggs": {
	    "courses": {
	      "terms": {"field": "course", "size": 100}
	    }
	  }
	}`

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.docIndex),
		c.es.Search.WithBody(bytes.NewReader([]byte(body))),
	)
	if err != nil {
		return nil, fmt.Errorf("search: courses aggregation failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: courses aggregation returned status %s", res.Status())
	}

	var parsed struct {
		Aggregations struct {
			Courses struct {
				Buckets []struct {
					Key string `json:"key"`
				} `json:"buckets"`
			} `json:"courses"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: failed to decode aggregation response: %w", err)
	}

	courses := make([]string, 0, len(parsed.Aggregations.Courses.Buckets))
	for _, b := range parsed.Aggregations.Courses.Buckets {
		courses = append(courses, b.Key)
	}
	return courses, nil
}

// SaveConversation stores a chat turn in the conversation index. A zero
// Timestamp is stamped with the current time.
func (c *Client) SaveConversation(ctx context.Context, turn ConversationTurn) error {
	if turn.Timestamp == 0 {
		turn.Timestamp = time.Now().UnixMilli()
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("search: failed to marshal conversation turn: %w", err)
	}

	res, err := c.es.Index(
		c.convIndex,
		bytes.NewReader(payload),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: failed to save conversation turn: %w", err)
	}
	drain(res.Body)
	if res.IsError() {
		return fmt.Errorf("search: save conversation returned status %s", res.Status())
	}

	slog.Debug("Saved conversation turn", "session_id", turn.SessionID)
	return nil
}

// SessionHistory returns the stored turns for a session, oldest first.
func (c *Client) SessionHistory(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	searchBody := map[string]interface{}{
		"size": 100,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"session_id": sessionID},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "asc"}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchBody); err != nil {
		return nil, fmt.Errorf("search: failed to encode history query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.convIndex),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: history query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: history query returned status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source ConversationTurn `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: failed to decode history response: %w", err)
	}

	turns := make([]ConversationTurn, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		turns = append(turns, h.Source)
	}
	return turns, nil
}
