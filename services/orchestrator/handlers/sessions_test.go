// Copyright (C) 2025 CourseFAQ Authors
// Tests for the session history handler

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursefaq/coursefaq/services/search"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	turns []search.ConversationTurn
	err   error
	got   string
}

func (f *fakeHistory) SessionHistory(_ context.Context, sessionId string) ([]search.ConversationTurn, error) {
	f.got = sessionId
	return f.turns, f.err
}

func performHistory(reader HistoryReader, sessionId string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/v1/sessions/:sessionId/history", GetSessionHistory(reader))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/sessions/"+sessionId+"/history", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetSessionHistory_ReturnsTurns(t *testing.T) {
	reader := &fakeHistory{turns: []search.ConversationTurn{
		{SessionID: "sess-1", Question: "q1", Answer: "a1", Timestamp: 100},
		{SessionID: "sess-1", Question: "q2", Answer: "a2", Timestamp: 200},
	}}

	w := performHistory(reader, "sess-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", reader.got)

	var response struct {
		SessionID string                    `json:"session_id"`
		Turns     []search.ConversationTurn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "sess-1", response.SessionID)
	require.Len(t, response.Turns, 2)
	assert.Equal(t, "q1", response.Turns[0].Question)
}

func TestGetSessionHistory_UnknownSessionIsEmptyList(t *testing.T) {
	w := performHistory(&fakeHistory{}, "nope")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"turns":[]`)
}

func TestGetSessionHistory_SearchDown(t *testing.T) {
	w := performHistory(&fakeHistory{err: errors.New("connection refused")}, "sess-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
