// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the orchestrator.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coursefaq/coursefaq/services/orchestrator/datatypes"
	"github.com/gin-gonic/gin"
)

// HealthSearcher is the slice of the search client the status handler
// needs. Implemented by *search.Client.
type HealthSearcher interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// HealthCheck reports process liveness. It does not touch downstream
// dependencies, so load balancers can poll it cheaply.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SystemStatus reports deep health: whether Elasticsearch is reachable
// and whether the document index holds any data. The response is 200
// even when unhealthy so the UI can render the message.
func SystemStatus(searcher HealthSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if searcher == nil {
			c.JSON(http.StatusOK, datatypes.StatusResponse{
				Healthy: false,
				Message: "Elasticsearch not connected",
			})
			return
		}
		if err := searcher.Ping(ctx); err != nil {
			slog.Warn("Status check: Elasticsearch ping failed", "error", err)
			c.JSON(http.StatusOK, datatypes.StatusResponse{
				Healthy: false,
				Message: "Elasticsearch not connected",
			})
			return
		}

		count, err := searcher.Count(ctx)
		if err != nil {
			slog.Warn("Status check: document count failed", "error", err)
			c.JSON(http.StatusOK, datatypes.StatusResponse{
				Healthy: false,
				Message: "Elasticsearch not connected",
			})
			return
		}
		if count == 0 {
			c.JSON(http.StatusOK, datatypes.StatusResponse{
				Healthy: false,
				Message: "No documents in index",
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.StatusResponse{
			Healthy:   true,
			Message:   fmt.Sprintf("Healthy with %d documents", count),
			Documents: count,
		})
	}
}
