// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search wraps the Elasticsearch client used for course-FAQ
// retrieval. It owns the two indices the service depends on: the document
// index holding FAQ entries and the conversation index holding chat turns.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	// DefaultDocumentIndex is the index holding course-FAQ entries.
	DefaultDocumentIndex = "course-questions"

	// DefaultConversationIndex is the index holding chat history turns.
	DefaultConversationIndex = "course-conversations"
)

// Config holds connection settings for the search cluster.
type Config struct {
	// URL is the Elasticsearch base URL, e.g. "http://localhost:9200".
	URL string

	// DocumentIndex overrides the FAQ index name. Default: "course-questions".
	DocumentIndex string

	// ConversationIndex overrides the chat-history index name.
	// Default: "course-conversations".
	ConversationIndex string
}

// Client is a thin wrapper around the official Elasticsearch client with
// the queries this service needs. Safe for concurrent use.
type Client struct {
	es        *elasticsearch.Client
	docIndex  string
	convIndex string
}

// NewClient creates a search client for the configured cluster URL.
// It does not contact the cluster; call WaitReady or Ping for that.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("search: cluster URL not configured")
	}
	if cfg.DocumentIndex == "" {
		cfg.DocumentIndex = DefaultDocumentIndex
	}
	if cfg.ConversationIndex == "" {
		cfg.ConversationIndex = DefaultConversationIndex
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("search: failed to create Elasticsearch client: %w", err)
	}

	slog.Info("Initialized Elasticsearch client", "url", cfg.URL, "index", cfg.DocumentIndex)
	return &Client{
		es:        es,
		docIndex:  cfg.DocumentIndex,
		convIndex: cfg.ConversationIndex,
	}, nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: ping returned status %s", res.Status())
	}
	return nil
}

// WaitReady blocks until the cluster answers a ping, retrying up to
// attempts times with the given wait between tries. The context cancels
// the wait early.
func (c *Client) WaitReady(ctx context.Context, attempts int, wait time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := c.Ping(ctx); err == nil {
			slog.Info("Connected to Elasticsearch")
			return nil
		}
		slog.Warn("Waiting for Elasticsearch...", "attempt", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("search: cluster not ready after %d attempts", attempts)
}

// Count returns the number of documents in the FAQ index. A missing index
// counts as zero so callers can treat "not bootstrapped yet" and "empty"
// the same way.
func (c *Client) Count(ctx context.Context) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.docIndex),
	)
	if err != nil {
		return 0, fmt.Errorf("search: count failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if res.IsError() {
		return 0, fmt.Errorf("search: count returned status %s", res.Status())
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("search: failed to decode count response: %w", err)
	}
	return body.Count, nil
}

// drain reads and closes a response body so the transport can reuse the
// connection.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
