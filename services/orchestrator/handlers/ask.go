// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coursefaq/coursefaq/services/orchestrator/datatypes"
	"github.com/coursefaq/coursefaq/services/orchestrator/observability"
	"github.com/coursefaq/coursefaq/services/orchestrator/services"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var askHandlerTracer = otel.Tracer("coursefaq.orchestrator.handlers")

// AskProcessor runs the question-answering pipeline. Implemented by
// *services.AskService.
type AskProcessor interface {
	Process(ctx context.Context, req *datatypes.AskRequest) (*datatypes.AskResponse, error)
}

// HandleAsk answers one user question. Error mapping:
//   - malformed body or empty question: 400
//   - retrieval (Elasticsearch) failure: 503
//   - generation (LLM) failure: 502
func HandleAsk(processor AskProcessor, metrics *observability.RAGMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := askHandlerTracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		if metrics != nil {
			metrics.RequestStarted()
			defer metrics.RequestEnded()
		}

		var request datatypes.AskRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind ask request JSON", "error", err)
			recordFailure(metrics, observability.EndpointAsk, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		span.SetAttributes(
			attribute.String("ask.course", request.Course),
			attribute.String("session_id", request.SessionId),
		)

		response, err := processor.Process(ctx, &request)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			var retrievalErr *services.RetrievalError
			var generationErr *services.GenerationError
			switch {
			case errors.As(err, &retrievalErr):
				slog.Error("Ask retrieval failed", "error", err)
				recordFailure(metrics, observability.EndpointAsk, observability.ErrorCodeSearch)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable"})
			case errors.As(err, &generationErr):
				slog.Error("Ask generation failed", "error", err)
				recordFailure(metrics, observability.EndpointAsk, observability.ErrorCodeLLM)
				c.JSON(http.StatusBadGateway, gin.H{"error": "LLM backend failed"})
			default:
				slog.Error("Ask request rejected", "error", err)
				recordFailure(metrics, observability.EndpointAsk, observability.ErrorCodeValidation)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}

		if metrics != nil {
			metrics.RecordRequest(observability.EndpointAsk, true)
		}
		c.JSON(http.StatusOK, response)
	}
}

func recordFailure(metrics *observability.RAGMetrics, endpoint observability.Endpoint, code observability.ErrorCode) {
	if metrics == nil {
		return
	}
	metrics.RecordRequest(endpoint, false)
	metrics.RecordError(endpoint, code)
}
