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

	"github.com/coursefaq/coursefaq/services/search"
	"github.com/gin-gonic/gin"
)

// HistoryReader fetches the stored turns of one chat session.
// Implemented by *search.Client.
type HistoryReader interface {
	SessionHistory(ctx context.Context, sessionId string) ([]search.ConversationTurn, error)
}

// GetSessionHistory returns the persisted turns for a session, oldest
// first. Unknown session ids return an empty list, not 404, because
// turns are saved best-effort and may lag the response.
func GetSessionHistory(reader HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")
		slog.Info("Received a request for session history", "sessionId", sessionId)

		turns, err := reader.SessionHistory(c.Request.Context(), sessionId)
		if err != nil {
			slog.Error("Failed to fetch session history", "sessionId", sessionId, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable"})
			return
		}
		if turns == nil {
			turns = []search.ConversationTurn{}
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionId,
			"turns":      turns,
		})
	}
}
