package pipeline

import (
	"context"
	"net/http"
	"strings"
)

// Stage is a single policy check. It returns a terminal *Response to
// stop the chain, or (nil, nil) to continue to the next stage. Stages
// read the request but never mutate it; anything they derive is
// attached to the response they return.
//
// A stage that fails unexpectedly returns an error. The chain runner
// does not handle errors; they propagate to the dispatcher's boundary,
// which converts them into a uniform 500.
type Stage func(ctx context.Context, r *http.Request) (*Response, error)

// Chain is an ordered list of stages. Execution is strictly
// sequential in list order with no reordering or parallelism.
type Chain []Stage

// Run executes the chain against the request and returns the first
// terminal response. If every stage continues (or the chain is empty),
// it returns the canonical pass-through response.
//
// Run performs no error handling: the first stage error aborts the
// chain and is returned to the caller.
func (c Chain) Run(ctx context.Context, r *http.Request) (*Response, error) {
	for _, stage := range c {
		resp, err := stage(ctx, r)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return Next(), nil
}

// WithPathPrefix wraps a stage so it only runs when the request path
// starts with one of the given prefixes (logical OR). When no prefix
// matches, the wrapped stage is not invoked and the chain continues.
//
// Matching is a plain string starts-with: no regex, no trailing-slash
// normalization, and no segment awareness. A prefix of "/api/admin"
// also matches "/api/admins/x". Consumers rely on this permissive
// containment behavior; do not tighten it.
func WithPathPrefix(stage Stage, prefixes ...string) Stage {
	return func(ctx context.Context, r *http.Request) (*Response, error) {
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				return stage(ctx, r)
			}
		}
		return nil, nil
	}
}
