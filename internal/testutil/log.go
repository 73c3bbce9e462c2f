package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/vk/graphcommit/internal/ctxlog"
)

// SafeBuffer is a thread-safe io.Writer for capturing log output from
// code that may log concurrently (commit levels run in parallel).
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements io.Writer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String returns the buffer's contents so far.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// ContextWithCapturedLogger returns a context carrying a text-handler
// slog.Logger writing to the returned SafeBuffer, for tests that assert
// on log output.
func ContextWithCapturedLogger(ctx context.Context) (context.Context, *SafeBuffer) {
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(ctx, logger), buf
}
