// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"

	"github.com/coursefaq/coursefaq/pkg/logging"
	"github.com/coursefaq/coursefaq/services/orchestrator"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// serveConfig is the environment-driven configuration of the service.
type serveConfig struct {
	Port              int    `envconfig:"PORT" default:"8080"`
	LLMBackend        string `envconfig:"LLM_BACKEND_TYPE" default:"openai"`
	ElasticsearchURL  string `envconfig:"ELASTICSEARCH_URL" default:"http://localhost:9200"`
	DocumentIndex     string `envconfig:"DOCUMENT_INDEX"`
	ConversationIndex string `envconfig:"CONVERSATION_INDEX"`
	DocumentsURL      string `envconfig:"DOCUMENTS_URL"`
	OTelEndpoint      string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableMetrics     bool   `envconfig:"ENABLE_METRICS" default:"true"`
	GinMode           string `envconfig:"GIN_MODE"`
	UIDir             string `envconfig:"UI_DIR" default:"./ui"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	LogDir            string `envconfig:"LOG_DIR"`
}

func runServe(cmd *cobra.Command, args []string) error {
	var cfg serveConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("failed to read configuration from environment: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "coursefaq",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	svc, err := orchestrator.New(orchestrator.Config{
		Port:              cfg.Port,
		LLMBackend:        cfg.LLMBackend,
		ElasticsearchURL:  cfg.ElasticsearchURL,
		DocumentIndex:     cfg.DocumentIndex,
		ConversationIndex: cfg.ConversationIndex,
		DocumentsURL:      cfg.DocumentsURL,
		OTelEndpoint:      cfg.OTelEndpoint,
		EnableMetrics:     cfg.EnableMetrics,
		GinMode:           cfg.GinMode,
		UIDir:             cfg.UIDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	return svc.Run()
}
