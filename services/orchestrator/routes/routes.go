// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/coursefaq/coursefaq/services/orchestrator/handlers"
	"github.com/coursefaq/coursefaq/services/orchestrator/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries the wired dependencies the route handlers need. Fields
// are the narrow handler interfaces so tests can register fakes.
type Deps struct {
	Ask     handlers.AskProcessor
	Status  handlers.HealthSearcher
	Courses handlers.CourseLister
	Indexer handlers.DocumentIndexer
	Fetcher handlers.CorpusFetcher
	History handlers.HistoryReader

	// Metrics enables the /metrics endpoint when non-nil.
	Metrics *observability.RAGMetrics

	// UIDir is the directory served under /ui. Empty disables the UI.
	UIDir string
}

func SetupRoutes(router *gin.Engine, deps Deps) {

	router.GET("/health", handlers.HealthCheck)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if deps.UIDir != "" {
		router.StaticFS("/ui", http.Dir(deps.UIDir))

		// Add a friendly redirect from /chat to the actual HTML file
		router.GET("/chat", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/chat.html")
		})
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/status", handlers.SystemStatus(deps.Status))
		v1.POST("/ask", handlers.HandleAsk(deps.Ask, deps.Metrics))
		v1.GET("/courses", handlers.ListCourses(deps.Courses))
		v1.POST("/documents", handlers.CreateDocument(deps.Indexer, deps.Metrics))
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:sessionId/history", handlers.GetSessionHistory(deps.History))
		}
		// Data administration routes
		admin := v1.Group("/admin")
		{
			admin.POST("/bootstrap", handlers.HandleBootstrap(deps.Indexer, deps.Fetcher, deps.Metrics))
		}
	}
}
