// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response types shared between
// handlers and services.
package datatypes

import (
	"fmt"
	"strings"
)

// AskRequest is one user turn: a question, an optional course filter, and
// an optional session id. An empty session id starts a new session.
type AskRequest struct {
	Question  string `json:"question"`
	Course    string `json:"course"`
	SessionId string `json:"session_id"`
}

// Validate checks that the request can be processed.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question must not be empty")
	}
	return nil
}

// SourceInfo identifies one FAQ snippet that backed an answer.
type SourceInfo struct {
	Section  string  `json:"section"`
	Question string  `json:"question"`
	Course   string  `json:"course"`
	Score    float64 `json:"score,omitempty"`
}

// AskResponse is the answer for one turn.
type AskResponse struct {
	Answer    string       `json:"answer"`
	SessionId string       `json:"session_id"`
	Sources   []SourceInfo `json:"sources,omitempty"`
}

// StatusResponse reports deep health: whether the search index is
// reachable and how many documents it holds.
type StatusResponse struct {
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message"`
	Documents int64  `json:"documents"`
}

// BootstrapRequest controls the course-data load. Force re-indexes even
// when documents already exist.
type BootstrapRequest struct {
	Force bool `json:"force"`
}

// IngestDocumentRequest adds an ad-hoc FAQ entry. Long answer text is
// chunked before indexing.
type IngestDocumentRequest struct {
	Text     string `json:"text"`
	Section  string `json:"section"`
	Question string `json:"question"`
	Course   string `json:"course"`
}

// Validate checks the ingest request.
func (r *IngestDocumentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text must not be empty")
	}
	if strings.TrimSpace(r.Course) == "" {
		return fmt.Errorf("course must not be empty")
	}
	return nil
}
