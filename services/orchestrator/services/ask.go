// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides the business logic behind the HTTP handlers.
//
// The AskService owns the question-answering pipeline: retrieve FAQ
// snippets from the search index, assemble the prompt, call the LLM, and
// persist the conversation turn. Dependencies are injected via the
// constructor so the pipeline can be tested with fakes, and every method
// accepts a context for cancellation and tracing.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursefaq/coursefaq/services/llm"
	"github.com/coursefaq/coursefaq/services/orchestrator/datatypes"
	"github.com/coursefaq/coursefaq/services/orchestrator/observability"
	"github.com/coursefaq/coursefaq/services/search"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var askTracer = otel.Tracer("coursefaq.orchestrator.services.ask")

// Retriever retrieves FAQ snippets for a question, optionally filtered to
// a course. Implemented by *search.Client.
type Retriever interface {
	Search(ctx context.Context, query, course string, size int) ([]search.Hit, error)
}

// ConversationStore persists chat turns. Implemented by *search.Client.
type ConversationStore interface {
	SaveConversation(ctx context.Context, turn search.ConversationTurn) error
}

// RetrievalError wraps a failure to query the search index.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps a failure from the LLM backend.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// AskService runs the retrieve-prompt-generate pipeline for one user turn.
// It is stateless; all state lives in the request or the search indices,
// so instances are safe for concurrent use.
type AskService struct {
	retriever Retriever
	store     ConversationStore
	llmClient llm.LLMClient
	metrics   *observability.RAGMetrics
}

// NewAskService wires the pipeline dependencies. store may be nil, in
// which case conversation turns are not persisted. metrics may be nil to
// disable instrumentation (tests).
func NewAskService(retriever Retriever, store ConversationStore, llmClient llm.LLMClient, metrics *observability.RAGMetrics) *AskService {
	return &AskService{
		retriever: retriever,
		store:     store,
		llmClient: llmClient,
		metrics:   metrics,
	}
}

// Process handles one question end-to-end:
//  1. Validate the request.
//  2. Generate a session id when the client did not send one.
//  3. Retrieve FAQ snippets (size 5, optional course filter).
//  4. On empty retrieval, return the canned no-context answer without
//     calling the LLM.
//  5. Build the prompt and generate the answer.
//  6. Persist the conversation turn asynchronously (best effort).
func (s *AskService) Process(ctx context.Context, req *datatypes.AskRequest) (*datatypes.AskResponse, error) {
	ctx, span := askTracer.Start(ctx, "AskService.Process")
	defer span.End()
	start := time.Now()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = uuid.New().String()
		span.SetAttributes(attribute.String("session.id_new", sessionId))
		slog.Info("No session id provided, creating a new one", "session_id", sessionId)
	}
	span.SetAttributes(
		attribute.String("session.id", sessionId),
		attribute.String("ask.course", req.Course),
	)
	slog.Info("Processing ask request", "session_id", sessionId, "course", req.Course)

	hits, err := s.retrieve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, &RetrievalError{Err: err}
	}
	span.SetAttributes(attribute.Int("ask.documents", len(hits)))
	if s.metrics != nil {
		s.metrics.ObserveDocuments(len(hits))
	}

	var answer string
	if len(hits) == 0 {
		slog.Info("No documents retrieved, returning canned answer", "session_id", sessionId)
		answer = datatypes.NoContextAnswer
	} else {
		answer, err = s.generate(ctx, req.Question, hits)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return nil, &GenerationError{Err: err}
		}
	}

	// Persist the turn without blocking the response to the user.
	if s.store != nil {
		turn := search.ConversationTurn{
			SessionID: sessionId,
			Question:  req.Question,
			Answer:    answer,
		}
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.store.SaveConversation(saveCtx, turn); err != nil {
				slog.Error("Failed to save conversation turn", "session_id", sessionId, "error", err)
			}
		}()
	}

	if s.metrics != nil {
		s.metrics.ObserveStage(observability.StageTotal, time.Since(start).Seconds())
	}

	sources := make([]datatypes.SourceInfo, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, datatypes.SourceInfo{
			Section:  h.Section,
			Question: h.Question,
			Course:   h.Course,
			Score:    h.Score,
		})
	}

	return &datatypes.AskResponse{
		Answer:    answer,
		SessionId: sessionId,
		Sources:   sources,
	}, nil
}

func (s *AskService) retrieve(ctx context.Context, req *datatypes.AskRequest) ([]search.Hit, error) {
	ctx, span := askTracer.Start(ctx, "AskService.retrieve")
	defer span.End()
	start := time.Now()

	hits, err := s.retriever.Search(ctx, req.Question, req.Course, search.DefaultSearchSize)
	if s.metrics != nil {
		s.metrics.ObserveStage(observability.StageRetrieval, time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return hits, nil
}

func (s *AskService) generate(ctx context.Context, question string, hits []search.Hit) (string, error) {
	ctx, span := askTracer.Start(ctx, "AskService.generate")
	defer span.End()
	start := time.Now()

	docs := make([]search.Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.Document)
	}
	prompt := datatypes.BuildPrompt(question, docs)
	span.SetAttributes(attribute.Int("llm.prompt_length", len(prompt)))

	answer, err := s.llmClient.Generate(ctx, prompt, llm.GenerationParams{})
	if s.metrics != nil {
		s.metrics.ObserveStage(observability.StageGeneration, time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.answer_length", len(answer)))
	return answer, nil
}
