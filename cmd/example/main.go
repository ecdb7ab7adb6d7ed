// Command example demonstrates constructing a healops.Client and wiring
// its span exporter into an OpenTelemetry TracerProvider, the pattern a
// host application embedding this SDK is expected to follow.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	healops "github.com/healops/healops-go"
)

func main() {
	client, err := healops.New(healops.Config{
		APIKey:             os.Getenv("HEALOPS_API_KEY"),
		ServiceName:        "example-service",
		Environment:        "production",
		CaptureConsole:     true,
		CaptureErrors:      true,
		EnableSourceMaps:   true,
		SourceMapCacheSize: 200,
		EnableSelfMetrics:  false,
	})
	if err != nil {
		log.Fatalf("healops: failed to start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Destroy(ctx)
	}()

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(client.SpanExporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	defer tp.Shutdown(context.Background())

	// log.Default() and slog.Default() are now captured automatically.
	log.Println("application starting")
	slog.Warn("degraded dependency", "dependency", "cache")

	client.Info("manual log via facade", map[string]any{"component": "main"})

	if err := doWork(); err != nil {
		client.Error("background task failed", map[string]any{"error": err})
	}
}

func doWork() error {
	return errors.New("placeholder failure")
}
