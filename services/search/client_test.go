// Copyright (C) 2025 CourseFAQ Authors
// Tests for the search client against a stub Elasticsearch server.

package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubCluster starts an httptest server that impersonates Elasticsearch.
// The product header is required or the client refuses to talk to it.
func newStubCluster(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL not configured")
}

func TestPing_OK(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.Ping(context.Background()))
}

func TestWaitReady_RecoversAfterFailures(t *testing.T) {
	var calls int
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.WaitReady(context.Background(), 5, time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestWaitReady_GivesUp(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.WaitReady(context.Background(), 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 2 attempts")
}

func TestCount_ReturnsDocumentCount(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "course-questions/_count")
		io.WriteString(w, `{"count": 948}`)
	})

	count, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(948), count)
}

func TestCount_MissingIndexIsZero(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": {"type": "index_not_found_exception"}}`)
	})

	count, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSearch_BuildsRetrievalQuery(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, `{
			"hits": {"hits": [
				{"_score": 9.1, "_source": {"text": "Run docker compose up.", "section": "Module 1", "question": "How do I run Kafka?", "course": "data-engineering-zoomcamp"}},
				{"_score": 4.2, "_source": {"text": "Yes, after the start date.", "section": "General", "question": "Can I still join?", "course": "data-engineering-zoomcamp"}}
			]}
		}`)
	})

	hits, err := client.Search(context.Background(), "how do I run kafka?", "data-engineering-zoomcamp", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Order and content of hits must match the score ranking.
	assert.Equal(t, "How do I run Kafka?", hits[0].Question)
	assert.Equal(t, 9.1, hits[0].Score)
	assert.Equal(t, "General", hits[1].Section)

	assert.Equal(t, float64(5), captured["size"])
	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	multiMatch := boolQuery["must"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "how do I run kafka?", multiMatch["query"])
	assert.Equal(t, "best_fields", multiMatch["type"])
	assert.ElementsMatch(t, []interface{}{"question^3", "text", "section"}, multiMatch["fields"])

	filter := boolQuery["filter"].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "data-engineering-zoomcamp", filter["course"])
}

func TestSearch_NoCourseOmitsFilter(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, `{"hits": {"hits": []}}`)
	})

	_, err := client.Search(context.Background(), "question", "", 0)
	require.NoError(t, err)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	_, hasFilter := boolQuery["filter"]
	assert.False(t, hasFilter, "filter clause must be absent without a course")
	assert.Equal(t, float64(DefaultSearchSize), captured["size"])
}

func TestCourses_ParsesAggregationBuckets(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"field": "course"`)
		io.WriteString(w, `{
			"aggregations": {"courses": {"buckets": [
				{"key": "data-engineering-zoomcamp", "doc_count": 435},
				{"key": "machine-learning-zoomcamp", "doc_count": 375},
				{"key": "mlops-zoomcamp", "doc_count": 138}
			]}}
		}`)
	})

	courses, err := client.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data-engineering-zoomcamp",
		"machine-learning-zoomcamp",
		"mlops-zoomcamp",
	}, courses)
}

func TestEnsureIndices_CreatesMissingIndex(t *testing.T) {
	created := map[string]string{}
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			created[strings.Trim(r.URL.Path, "/")] = string(body)
			io.WriteString(w, `{"acknowledged": true}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	require.NoError(t, client.EnsureIndices(context.Background()))
	require.Contains(t, created, "course-questions")
	require.Contains(t, created, "course-conversations")
	assert.Contains(t, created["course-questions"], `"course":   {"type": "keyword"}`)
	assert.Contains(t, created["course-conversations"], `"session_id": {"type": "keyword"}`)
}

func TestEnsureIndices_SkipsExistingIndex(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			t.Fatal("should not create an existing index")
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.EnsureIndices(context.Background()))
}

func TestBulkIndex_IndexesAndRefreshes(t *testing.T) {
	var refreshed bool
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "_bulk"):
			io.WriteString(w, `{"took": 3, "errors": false, "items": [
				{"index": {"_id": "0", "status": 201}},
				{"index": {"_id": "1", "status": 201}}
			]}`)
		case strings.HasSuffix(r.URL.Path, "_refresh"):
			refreshed = true
			io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	docs := []Document{
		{Text: "a", Section: "s", Question: "q1", Course: "c"},
		{Text: "b", Section: "s", Question: "q2", Course: "c"},
	}
	count, err := client.BulkIndex(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, refreshed, "index must be refreshed after bulk indexing")
}

func TestBulkIndex_EmptyInputIsNoop(t *testing.T) {
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	count, err := client.BulkIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionHistory_SortedTurns(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, `{"hits": {"hits": [
			{"_source": {"session_id": "abc", "question": "q1", "answer": "a1", "timestamp": 1}},
			{"_source": {"session_id": "abc", "question": "q2", "answer": "a2", "timestamp": 2}}
		]}}`)
	})

	turns, err := client.SessionHistory(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Question)
	assert.Equal(t, "a2", turns[1].Answer)

	term := captured["query"].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "abc", term["session_id"])
}

func TestSaveConversation_StampsTimestamp(t *testing.T) {
	var captured ConversationTurn
	client, _ := newStubCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result": "created"}`)
	})

	err := client.SaveConversation(context.Background(), ConversationTurn{
		SessionID: "abc",
		Question:  "How do I run Kafka?",
		Answer:    "With docker compose.",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", captured.SessionID)
	assert.NotZero(t, captured.Timestamp)
}
