// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AssetDNA/pkg/logging"
	"github.com/AleutianAI/AssetDNA/services/assetdna/audit"
	"github.com/AleutianAI/AssetDNA/services/assetdna/bom"
	"github.com/AleutianAI/AssetDNA/services/assetdna/changes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/hierarchy"
	"github.com/AleutianAI/AssetDNA/services/assetdna/identity"
	"github.com/AleutianAI/AssetDNA/services/assetdna/middleware"
	"github.com/AleutianAI/AssetDNA/services/assetdna/observability"
	"github.com/AleutianAI/AssetDNA/services/assetdna/routes"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage/badgerstore"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage/postgres"

	// --- OpenTelemetry imports ---
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

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is optional; without a collector the service runs
		// with a no-op shutdown.
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("assetdna-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// openStore selects the storage backend from the environment:
// DATABASE_URL for Postgres, ASSETDNA_DATA_DIR for embedded BadgerDB,
// otherwise an in-memory store (lightweight mode).
func openStore(ctx context.Context, logger *slog.Logger) (storage.Store, string, error) {
	if dsn := strings.Trim(os.Getenv("DATABASE_URL"), "\"' "); dsn != "" {
		st, err := postgres.New(ctx, postgres.Config{DSN: dsn, Logger: logger})
		if err != nil {
			return nil, "", err
		}
		return st, "postgres", nil
	}
	if dir := os.Getenv("ASSETDNA_DATA_DIR"); dir != "" {
		cfg := badgerstore.DefaultConfig(dir)
		cfg.Logger = logger
		st, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, "", err
		}
		return st, "badger", nil
	}
	slog.Warn("DATABASE_URL and ASSETDNA_DATA_DIR not set. " +
		"Running in lightweight mode (in-memory, data lost on restart).")
	return storage.NewMemory(), "memory", nil
}

func main() {
	port := os.Getenv("ASSETDNA_PORT")
	if port == "" {
		port = "10001"
	}

	appLogger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("ASSETDNA_LOG_LEVEL")),
		LogDir:  os.Getenv("ASSETDNA_LOG_DIR"),
		Service: "assetdna-service",
		JSON:    true,
	})
	defer appLogger.Close()
	logger := appLogger.Slog()
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	ctx := context.Background()
	store, backend, err := openStore(ctx, logger)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", backend, err)
	}
	defer store.Close()
	slog.Info("storage backend ready", "backend", backend)

	recorder := audit.NewRecorder(store, logger)
	resolver := identity.NewResolver(store, identity.DefaultURNPrefix)
	builder := hierarchy.NewBuilder(store, identity.DefaultURNPrefix, recorder, logger)
	bomSvc := bom.NewService(store, recorder, logger)
	engine := changes.NewEngine(store, store)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("assetdna-service"))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())

	routes.SetupRoutes(router, routes.Deps{
		Store:    store,
		Resolver: resolver,
		Builder:  builder,
		BOM:      bomSvc,
		Engine:   engine,
		Recorder: recorder,
		Backend:  backend,
	})

	slog.Info("starting AssetDNA server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
