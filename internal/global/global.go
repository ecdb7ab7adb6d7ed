// Package global provides the SDK's analogues of the browser's global
// uncaught-exception/unhandled-rejection handlers and window-unload event:
// panic recovery at goroutine boundaries and signal-driven shutdown, since
// Go has no global event target to hook directly.
package global

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/healops/healops-go/internal/record"
)

// Sink receives a severity/message/metadata triple for a captured panic or
// shutdown-triggering signal. The façade (healops.Client) implements this.
type Sink interface {
	Capture(severity record.Severity, message string, metadata map[string]any)
	Flush(ctx context.Context) error
}

// Recover recovers a panic on the calling goroutine, reports it as a
// CRITICAL record, performs a best-effort flush, then re-panics — Go's
// crash semantics are preserved, only the reporting is added. Call this
// deferred at the top of main() or any goroutine boundary worth guarding.
func Recover(sink Sink) {
	r := recover()
	if r == nil {
		return
	}

	sink.Capture(record.SeverityCritical, formatPanic(r), map[string]any{
		"type":  "uncaught_exception",
		"stack": string(debug.Stack()),
	})
	_ = sink.Flush(context.Background())

	panic(r)
}

func formatPanic(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return toString(r)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "panic: non-string recovered value"
}

// Go launches fn on a new goroutine wrapped in the same panic recovery as
// Recover, so a background goroutine's panic is reported before it brings
// the whole process down.
func Go(sink Sink, fn func()) {
	go func() {
		defer Recover(sink)
		fn()
	}()
}

// WatchSignals registers SIGINT/SIGTERM handlers that call destroy and
// then return, leaving the caller's own process exit to whatever happens
// next (os.Exit, falling off main, etc.) — this function does not itself
// exit the process. It returns a cancel function that deregisters the
// signal handler, useful in tests or when the host application manages
// its own signal handling and wants the SDK's hook removed.
func WatchSignals(destroy func(ctx context.Context) error) (cancel func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			_ = destroy(context.Background())
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}
