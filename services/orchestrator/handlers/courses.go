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

	"github.com/gin-gonic/gin"
)

// CourseLister enumerates the distinct courses present in the document
// index. Implemented by *search.Client.
type CourseLister interface {
	Courses(ctx context.Context) ([]string, error)
}

// ListCourses returns the distinct course names, sorted by the index's
// aggregation order. The UI uses this to populate its course selector.
func ListCourses(lister CourseLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		courses, err := lister.Courses(c.Request.Context())
		if err != nil {
			slog.Error("Failed to list courses", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable"})
			return
		}
		if courses == nil {
			courses = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"courses": courses})
	}
}
