// Package cors implements the cross-origin policy evaluator consumed
// by the pipeline: preflight short-circuiting and response header
// mutation against a precompiled origin allowlist.
package cors

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/pipeline"
)

// Policy is a compiled CORS policy. All string joins and the
// allow-all flag are computed once at startup.
type Policy struct {
	allowedOrigins  map[string]bool
	allowAllOrigins bool
	allowMethods    string
	allowHeaders    string
	exposeHeaders   string
	allowCreds      bool
	maxAge          string
}

// New compiles a Policy from config.
func New(cfg config.CORS) *Policy {
	p := &Policy{
		allowedOrigins: make(map[string]bool, len(cfg.AllowedOrigins)),
		allowMethods:   strings.Join(cfg.AllowedMethods, ", "),
		allowHeaders:   strings.Join(cfg.AllowedHeaders, ", "),
		exposeHeaders:  strings.Join(cfg.ExposeHeaders, ", "),
		allowCreds:     cfg.AllowCredentials,
		maxAge:         strconv.Itoa(cfg.MaxAge),
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.allowAllOrigins = true
			continue
		}
		p.allowedOrigins[o] = true
	}
	return p
}

// HandlePreflight answers CORS preflights. It returns a terminal 204
// response for OPTIONS requests negotiating cross-origin access, and
// nil for everything else so the chain continues. Preflights from
// disallowed origins still terminate, just without allow headers.
func (p *Policy) HandlePreflight(r *http.Request) *pipeline.Response {
	if r.Method != http.MethodOptions {
		return nil
	}
	origin := r.Header.Get("Origin")
	if origin == "" || r.Header.Get("Access-Control-Request-Method") == "" {
		return nil
	}

	resp := pipeline.NewResponse(http.StatusNoContent)
	resp.Header.Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")
	if !p.originAllowed(origin) {
		return resp
	}

	resp.Header.Set("Access-Control-Allow-Origin", p.responseOrigin(origin))
	resp.Header.Set("Access-Control-Allow-Methods", p.allowMethods)
	resp.Header.Set("Access-Control-Allow-Headers", p.allowHeaders)
	resp.Header.Set("Access-Control-Max-Age", p.maxAge)
	if p.allowCreds {
		resp.Header.Set("Access-Control-Allow-Credentials", "true")
	}
	return resp
}

// SetCORSHeaders mutates the headers of an existing response for
// actual (non-preflight) cross-origin requests. It never creates a
// new response and never touches the status.
func (p *Policy) SetCORSHeaders(resp *pipeline.Response, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !p.originAllowed(origin) {
		return
	}
	resp.Header.Set("Access-Control-Allow-Origin", p.responseOrigin(origin))
	if p.allowCreds {
		resp.Header.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.exposeHeaders != "" {
		resp.Header.Set("Access-Control-Expose-Headers", p.exposeHeaders)
	}
	resp.Header.Add("Vary", "Origin")
}

func (p *Policy) originAllowed(origin string) bool {
	return p.allowAllOrigins || p.allowedOrigins[origin]
}

// responseOrigin echoes the request origin unless the wildcard can be
// used; credentials forbid the wildcard form.
func (p *Policy) responseOrigin(origin string) string {
	if p.allowAllOrigins && !p.allowCreds {
		return "*"
	}
	return origin
}
