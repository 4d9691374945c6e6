// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serviceURL string
	forceLoad  bool

	rootCmd = &cobra.Command{
		Use:   "coursefaq",
		Short: "A cli to run and manage the course FAQ assistant",
		Long: `CourseFAQ answers questions about course logistics and content
using the course FAQ documents as grounding context.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (configured via environment variables)",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	// --- Data Management ---
	dataCmd = &cobra.Command{
		Use:   "data",
		Short: "Manage the FAQ document index of a running service",
	}
	dataInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Download the course FAQ corpus and index it",
		RunE:  runDataInit, // Defined in cmd_data.go
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Report the health of a running service",
		RunE:  runHealth, // Defined in cmd_health.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "http://localhost:8080",
		"Base URL of the running coursefaq service")
	dataInitCmd.Flags().BoolVar(&forceLoad, "force", false,
		"Re-download and re-index even when the index already holds documents")

	dataCmd.AddCommand(dataInitCmd)
	rootCmd.AddCommand(serveCmd, dataCmd, healthCmd)
}
