// Package csp implements the security-header builder consumed by the
// pipeline. Header pairs are precomputed once so wrapping a response
// is a handful of map sets.
package csp

import (
	"net/http"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/pipeline"
)

type headerPair struct {
	name  string
	value string
}

// Wrapper injects Content-Security-Policy and companion security
// headers onto page responses.
type Wrapper struct {
	headers []headerPair
}

// New precomputes the header set from config. Empty fields are simply
// omitted.
func New(cfg config.CSP) *Wrapper {
	var pairs []headerPair
	add := func(name, value string) {
		if value != "" {
			pairs = append(pairs, headerPair{name, value})
		}
	}
	add("Content-Security-Policy", cfg.Policy)
	add("X-Frame-Options", cfg.FrameOptions)
	add("Referrer-Policy", cfg.ReferrerPolicy)
	add("X-Content-Type-Options", cfg.ContentTypeOptions)
	for name, value := range cfg.CustomHeaders {
		add(name, value)
	}
	return &Wrapper{headers: pairs}
}

// WrapWithCSP sets the security headers on the response, terminal or
// pass-through alike, and returns it.
func (w *Wrapper) WrapWithCSP(r *http.Request, resp *pipeline.Response) *pipeline.Response {
	for _, p := range w.headers {
		resp.Header.Set(p.name, p.value)
	}
	return resp
}
