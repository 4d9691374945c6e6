// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coursefaq/coursefaq/services/orchestrator/datatypes"
	"github.com/coursefaq/coursefaq/services/orchestrator/observability"
	"github.com/coursefaq/coursefaq/services/search"
	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/textsplitter"
)

var (
	CHUNK_SIZE    = 1000
	CHUNK_OVERLAP = int(float64(CHUNK_SIZE) * 0.10) // Chunk_overlap is 10% of the CHUNK_SIZE

	faqSeparators = []string{"\n\n", "\n", " ", ""}
)

// DocumentIndexer is the slice of the search client the data-load
// handlers need. Implemented by *search.Client.
type DocumentIndexer interface {
	EnsureIndices(ctx context.Context) error
	BulkIndex(ctx context.Context, docs []search.Document) (int, error)
	IndexDocuments(ctx context.Context, docs []search.Document) (int, error)
	Count(ctx context.Context) (int64, error)
}

// CorpusFetcher downloads the upstream FAQ corpus. Implemented by
// *loader.Loader.
type CorpusFetcher interface {
	Fetch(ctx context.Context) ([]search.Document, error)
}

// HandleBootstrap loads the upstream FAQ corpus into the document index.
// The operation is idempotent: when the index already holds documents
// and force is not set, it reports the existing state without
// re-downloading. With force, the corpus is re-indexed over the same
// positional ids, so repeated loads do not duplicate documents.
func HandleBootstrap(indexer DocumentIndexer, fetcher CorpusFetcher, metrics *observability.RAGMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var request datatypes.BootstrapRequest
		if c.Request.ContentLength > 0 {
			if err := c.BindJSON(&request); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}

		if err := indexer.EnsureIndices(ctx); err != nil {
			slog.Error("Bootstrap failed to ensure indices", "error", err)
			recordFailure(metrics, observability.EndpointBootstrap, observability.ErrorCodeSearch)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable"})
			return
		}

		count, err := indexer.Count(ctx)
		if err != nil {
			slog.Error("Bootstrap failed to count documents", "error", err)
			recordFailure(metrics, observability.EndpointBootstrap, observability.ErrorCodeSearch)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable"})
			return
		}
		if count > 0 && !request.Force {
			slog.Info("Bootstrap skipped, index already populated", "documents", count)
			if metrics != nil {
				metrics.RecordRequest(observability.EndpointBootstrap, true)
			}
			c.JSON(http.StatusOK, gin.H{
				"status":    "exists",
				"documents": count,
			})
			return
		}

		docs, err := fetcher.Fetch(ctx)
		if err != nil {
			slog.Error("Bootstrap failed to fetch corpus", "error", err)
			recordFailure(metrics, observability.EndpointBootstrap, observability.ErrorCodeInternal)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to download course documents"})
			return
		}

		indexed, err := indexer.BulkIndex(ctx, docs)
		if err != nil {
			slog.Error("Bootstrap failed to index corpus", "error", err)
			recordFailure(metrics, observability.EndpointBootstrap, observability.ErrorCodeSearch)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to index course documents"})
			return
		}

		slog.Info("Bootstrap complete", "documents", indexed)
		if metrics != nil {
			metrics.RecordRequest(observability.EndpointBootstrap, true)
		}
		c.JSON(http.StatusCreated, gin.H{
			"status":    "loaded",
			"documents": indexed,
		})
	}
}

// CreateDocument ingests one ad-hoc FAQ entry. Long answers are split
// into overlapping chunks so retrieval stays snippet-sized; each chunk
// keeps the entry's section, question, and course.
func CreateDocument(indexer DocumentIndexer, metrics *observability.RAGMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var request datatypes.IngestDocumentRequest
		if err := c.BindJSON(&request); err != nil {
			recordFailure(metrics, observability.EndpointIngest, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			recordFailure(metrics, observability.EndpointIngest, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chunks, err := splitAnswer(request.Text)
		if err != nil {
			slog.Error("Failed to split document text", "error", err)
			recordFailure(metrics, observability.EndpointIngest, observability.ErrorCodeInternal)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process document text"})
			return
		}

		docs := make([]search.Document, 0, len(chunks))
		for _, chunk := range chunks {
			docs = append(docs, search.Document{
				Text:     chunk,
				Section:  request.Section,
				Question: request.Question,
				Course:   request.Course,
			})
		}

		indexed, err := indexer.IndexDocuments(ctx, docs)
		if err != nil {
			slog.Error("Failed to index document chunks", "course", request.Course, "error", err)
			recordFailure(metrics, observability.EndpointIngest, observability.ErrorCodeSearch)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to index document"})
			return
		}

		slog.Info("Successfully ingested document", "course", request.Course, "chunks_processed", indexed)
		if metrics != nil {
			metrics.RecordRequest(observability.EndpointIngest, true)
		}
		c.JSON(http.StatusCreated, gin.H{
			"status":           "success",
			"chunks_processed": indexed,
		})
	}
}

func splitAnswer(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(CHUNK_SIZE),
		textsplitter.WithChunkOverlap(CHUNK_OVERLAP),
		textsplitter.WithSeparators(faqSeparators),
	)
	return splitter.SplitText(text)
}
