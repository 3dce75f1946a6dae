// Package report implements the error-reporting sink consumed by the
// pipeline boundary. The process-wide client is constructed on first
// use, exposes an explicit Flush, and is never re-created mid-request.
package report

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
)

// Client delivers pipeline failures to the operator. The current
// transport is the structured log stream; the singleton lifecycle is
// what callers depend on, not the transport.
type Client struct {
	logger   *slog.Logger
	reported atomic.Int64
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process-wide client, creating it on first use.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = &Client{logger: slog.Default()}
	})
	return defaultClient
}

// NewClient creates an independent client, mainly for tests.
func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// Report records a pipeline failure. It must never panic outward: the
// boundary depends on the 500 response being written regardless.
func (c *Client) Report(ctx context.Context, err error, r *http.Request) {
	c.reported.Add(1)
	attrs := []any{"err", err}
	if r != nil {
		attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "host", r.Host)
	}
	c.logger.ErrorContext(ctx, "edge pipeline failure", attrs...)
}

// Reported returns the number of failures reported so far.
func (c *Client) Reported() int64 {
	return c.reported.Load()
}

// Flush drains any buffered reports. The log transport writes
// synchronously, so this only emits a summary; it exists so callers
// shut the client down explicitly rather than dropping it.
func (c *Client) Flush(ctx context.Context) error {
	c.logger.InfoContext(ctx, "error reporter flushed", "reported", c.reported.Load())
	return nil
}
