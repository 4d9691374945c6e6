// Copyright (C) 2025 CourseFAQ Authors
// Tests for the ask pipeline.

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coursefaq/coursefaq/services/llm"
	"github.com/coursefaq/coursefaq/services/orchestrator/datatypes"
	"github.com/coursefaq/coursefaq/services/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	hits      []search.Hit
	err       error
	gotQuery  string
	gotCourse string
	gotSize   int
}

func (f *fakeRetriever) Search(_ context.Context, query, course string, size int) ([]search.Hit, error) {
	f.gotQuery = query
	f.gotCourse = course
	f.gotSize = size
	return f.hits, f.err
}

type fakeLLM struct {
	answer    string
	err       error
	gotPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	f.gotPrompt = prompt
	return f.answer, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	turns []search.ConversationTurn
}

func (f *fakeStore) SaveConversation(_ context.Context, turn search.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeStore) saved() []search.ConversationTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.ConversationTurn(nil), f.turns...)
}

func kafkaHits() []search.Hit {
	return []search.Hit{
		{Document: search.Document{Text: "Run docker compose up.", Section: "Module 1", Question: "How do I run Kafka?", Course: "data-engineering-zoomcamp"}, Score: 9.1},
		{Document: search.Document{Text: "Install Docker first.", Section: "Module 1", Question: "How do I set up?", Course: "data-engineering-zoomcamp"}, Score: 4.0},
	}
}

func TestProcess_HappyPath(t *testing.T) {
	retriever := &fakeRetriever{hits: kafkaHits()}
	llmClient := &fakeLLM{answer: "Run docker compose up in the kafka directory."}
	store := &fakeStore{}
	svc := NewAskService(retriever, store, llmClient, nil)

	resp, err := svc.Process(context.Background(), &datatypes.AskRequest{
		Question: "how do I run kafka?",
		Course:   "data-engineering-zoomcamp",
	})
	require.NoError(t, err)

	assert.Equal(t, "Run docker compose up in the kafka directory.", resp.Answer)
	assert.NotEmpty(t, resp.SessionId, "a new session id must be generated")
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "How do I run Kafka?", resp.Sources[0].Question)
	assert.Equal(t, 9.1, resp.Sources[0].Score)

	// Retrieval parameters match the pipeline contract.
	assert.Equal(t, "how do I run kafka?", retriever.gotQuery)
	assert.Equal(t, "data-engineering-zoomcamp", retriever.gotCourse)
	assert.Equal(t, search.DefaultSearchSize, retriever.gotSize)

	// The prompt embeds the question and the retrieved snippets in order.
	assert.Contains(t, llmClient.gotPrompt, "QUESTION: how do I run kafka?")
	assert.True(t, strings.Index(llmClient.gotPrompt, "How do I run Kafka?") <
		strings.Index(llmClient.gotPrompt, "How do I set up?"))

	// The turn is persisted asynchronously.
	require.Eventually(t, func() bool { return len(store.saved()) == 1 }, time.Second, 10*time.Millisecond)
	turn := store.saved()[0]
	assert.Equal(t, resp.SessionId, turn.SessionID)
	assert.Equal(t, "how do I run kafka?", turn.Question)
}

func TestProcess_KeepsClientSessionId(t *testing.T) {
	svc := NewAskService(&fakeRetriever{hits: kafkaHits()}, nil, &fakeLLM{answer: "ok"}, nil)

	resp, err := svc.Process(context.Background(), &datatypes.AskRequest{
		Question:  "q",
		SessionId: "sess-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-123", resp.SessionId)
}

func TestProcess_EmptyRetrievalSkipsLLM(t *testing.T) {
	llmClient := &fakeLLM{answer: "should not be used"}
	svc := NewAskService(&fakeRetriever{}, nil, llmClient, nil)

	resp, err := svc.Process(context.Background(), &datatypes.AskRequest{Question: "unknown topic"})
	require.NoError(t, err)

	assert.Equal(t, datatypes.NoContextAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Empty(t, llmClient.gotPrompt, "LLM must not be called without context")
}

func TestProcess_ValidationError(t *testing.T) {
	svc := NewAskService(&fakeRetriever{}, nil, &fakeLLM{}, nil)

	_, err := svc.Process(context.Background(), &datatypes.AskRequest{Question: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestProcess_RetrievalErrorType(t *testing.T) {
	svc := NewAskService(&fakeRetriever{err: errors.New("cluster down")}, nil, &fakeLLM{}, nil)

	_, err := svc.Process(context.Background(), &datatypes.AskRequest{Question: "q"})
	require.Error(t, err)

	var retrievalErr *RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
}

func TestProcess_GenerationErrorType(t *testing.T) {
	svc := NewAskService(&fakeRetriever{hits: kafkaHits()}, nil, &fakeLLM{err: errors.New("rate limited")}, nil)

	_, err := svc.Process(context.Background(), &datatypes.AskRequest{Question: "q"})
	require.Error(t, err)

	var generationErr *GenerationError
	require.ErrorAs(t, err, &generationErr)
	assert.Contains(t, generationErr.Error(), "rate limited")
}
