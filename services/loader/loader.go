// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package loader fetches the course-FAQ corpus and flattens it into
// indexable documents.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coursefaq/coursefaq/services/search"
)

// DefaultDocumentsURL is the upstream FAQ corpus: one entry per course,
// each with its list of question/answer documents.
const DefaultDocumentsURL = "https://github.com/DataTalksClub/llm-zoomcamp/blob/main/01-intro/documents.json?raw=1"

// courseEntry matches the raw corpus layout before flattening.
type courseEntry struct {
	Course    string `json:"course"`
	Documents []struct {
		Text     string `json:"text"`
		Section  string `json:"section"`
		Question string `json:"question"`
	} `json:"documents"`
}

// HTTPClient allows injecting a mock client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader downloads the FAQ corpus over HTTP.
type Loader struct {
	httpClient HTTPClient
	url        string
}

// New creates a Loader for the given corpus URL. An empty URL falls back
// to DefaultDocumentsURL.
func New(url string) *Loader {
	if url == "" {
		url = DefaultDocumentsURL
	}
	return &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
	}
}

// NewWithClient creates a Loader with a custom HTTP client, for tests.
func NewWithClient(url string, client HTTPClient) *Loader {
	l := New(url)
	l.httpClient = client
	return l
}

// Fetch downloads the corpus and flattens it: every document is stamped
// with the name of the course it belongs to.
func (l *Loader) Fetch(ctx context.Context) ([]search.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to fetch course documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("loader: corpus fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw []courseEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("loader: failed to decode course documents: %w", err)
	}

	var docs []search.Document
	for _, course := range raw {
		for _, d := range course.Documents {
			docs = append(docs, search.Document{
				Text:     d.Text,
				Section:  d.Section,
				Question: d.Question,
				Course:   course.Course,
			})
		}
	}

	slog.Info("Loaded course documents", "documents", len(docs), "courses", len(raw))
	return docs, nil
}
