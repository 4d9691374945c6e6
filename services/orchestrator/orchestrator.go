// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator provides the HTTP service for the course FAQ
// assistant.
//
// The orchestrator coordinates all components: HTTP routing, the
// Elasticsearch-backed retrieval layer, the LLM client, the corpus
// loader, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 8080, LLMBackend: "openai"}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursefaq/coursefaq/services/llm"
	"github.com/coursefaq/coursefaq/services/loader"
	"github.com/coursefaq/coursefaq/services/orchestrator/observability"
	"github.com/coursefaq/coursefaq/services/orchestrator/routes"
	"github.com/coursefaq/coursefaq/services/orchestrator/services"
	"github.com/coursefaq/coursefaq/services/search"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service defines the contract for the orchestrator service.
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers
	// must not modify the router after construction.
	Router() *gin.Engine
}

// Config holds orchestrator configuration options. Zero values use
// defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 8080
	Port int

	// LLMBackend specifies the LLM provider.
	// Valid values: "openai", "ollama"
	// Default: "openai"
	LLMBackend string

	// ElasticsearchURL is the search backend URL.
	// Default: "http://localhost:9200"
	ElasticsearchURL string

	// DocumentIndex and ConversationIndex override the index names.
	// Defaults: "course-questions", "course-conversations"
	DocumentIndex     string
	ConversationIndex string

	// DocumentsURL is where the bootstrap corpus is downloaded from.
	// Default: the upstream course FAQ JSON.
	DocumentsURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// If empty, tracing is disabled.
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint.
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	GinMode string

	// UIDir is the directory of static chat UI assets served under /ui.
	// Default: "./ui". Empty after defaulting disables the UI.
	UIDir string

	// SearchWaitAttempts and SearchWaitInterval control the startup
	// readiness wait against Elasticsearch.
	// Defaults: 30 attempts, 2s apart.
	SearchWaitAttempts int
	SearchWaitInterval time.Duration
}

// service implements Service for production use. All fields are
// read-only after New() returns.
type service struct {
	config        Config
	router        *gin.Engine
	searchClient  *search.Client
	llmClient     llm.LLMClient
	corpusLoader  *loader.Loader
	askService    *services.AskService
	metrics       *observability.RAGMetrics
	tracerCleanup func(context.Context)
}

// New creates a new orchestrator Service with the given configuration.
//
// New initializes all components in order: configuration defaults,
// tracing, metrics, the search client (with a readiness wait that is
// not fatal when the cluster is down), the corpus loader, the LLM
// client, the ask pipeline, and the HTTP router. A service returned
// without error is ready to Run().
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics {
		s.metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	if err := s.initSearch(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize search client: %w", err)
	}

	s.corpusLoader = loader.New(s.config.DocumentsURL)

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.askService = services.NewAskService(s.searchClient, s.searchClient, s.llmClient, s.metrics)

	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting course FAQ server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.ElasticsearchURL == "" {
		cfg.ElasticsearchURL = "http://localhost:9200"
	}
	if cfg.DocumentIndex == "" {
		cfg.DocumentIndex = search.DefaultDocumentIndex
	}
	if cfg.ConversationIndex == "" {
		cfg.ConversationIndex = search.DefaultConversationIndex
	}
	if cfg.DocumentsURL == "" {
		cfg.DocumentsURL = loader.DefaultDocumentsURL
	}
	if cfg.UIDir == "" {
		cfg.UIDir = "./ui"
	}
	if cfg.SearchWaitAttempts == 0 {
		cfg.SearchWaitAttempts = 30
	}
	if cfg.SearchWaitInterval == 0 {
		cfg.SearchWaitInterval = 2 * time.Second
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing over an
// insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("coursefaq-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initSearch creates the Elasticsearch client and waits for the cluster
// to come up. An unreachable cluster is not fatal: the service starts
// anyway and /v1/status reports the outage, matching the behavior of a
// compose stack where Elasticsearch boots slower than this service.
func (s *service) initSearch() error {
	client, err := search.NewClient(search.Config{
		URL:               s.config.ElasticsearchURL,
		DocumentIndex:     s.config.DocumentIndex,
		ConversationIndex: s.config.ConversationIndex,
	})
	if err != nil {
		return err
	}
	s.searchClient = client

	ctx := context.Background()
	if err := client.WaitReady(ctx, s.config.SearchWaitAttempts, s.config.SearchWaitInterval); err != nil {
		slog.Warn("Elasticsearch not ready, continuing in degraded mode",
			"url", s.config.ElasticsearchURL, "error", err)
		return nil
	}

	if err := client.EnsureIndices(ctx); err != nil {
		slog.Warn("Failed to ensure indices at startup", "error", err)
	}
	return nil
}

// initLLMClient creates the LLM client for the configured backend.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to openai", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOpenAIClient()
	}

	return err
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("coursefaq-service"))

	routes.SetupRoutes(s.router, routes.Deps{
		Ask:     s.askService,
		Status:  s.searchClient,
		Courses: s.searchClient,
		Indexer: s.searchClient,
		Fetcher: s.corpusLoader,
		History: s.searchClient,
		Metrics: s.metrics,
		UIDir:   s.config.UIDir,
	})
}

// cleanup releases resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
