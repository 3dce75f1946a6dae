package pipeline

import (
	"context"
	"net/http"
	"time"
)

// AuthDecision is the result of an external auth collaborator. It is
// a tagged variant: either an allowed identity (Blocked false, identity
// fields set) or a denial (Blocked true, optionally with an explicit
// Denial response). It is produced once per request by exactly one auth
// stage per route class and consumed by the finalizer; never persisted.
type AuthDecision struct {
	Blocked   bool
	UserID    string
	UserEmail string
	UserRole  string
	Category  string

	// Denial, when set on a blocked decision, is the exact terminal
	// response to return. When nil the dispatcher supplies the default
	// 401/403 JSON body.
	Denial *Response
}

// EdgeAuthenticator validates the request's session at the edge.
type EdgeAuthenticator interface {
	EnforceEdgeAuth(ctx context.Context, r *http.Request) (AuthDecision, error)
}

// AdminAuthenticator layers an admin-role check on top of edge auth
// for admin-prefixed paths.
type AdminAuthenticator interface {
	EnforceAdminAuth(ctx context.Context, r *http.Request) (AuthDecision, error)
}

// CSRFValidator checks cross-site request forgery protection. A nil
// return means the request passes; a non-nil response terminates the
// chain.
type CSRFValidator interface {
	ValidateCSRF(r *http.Request) *Response
}

// CORSPolicy evaluates cross-origin policy. HandlePreflight returns a
// terminal response for preflight requests it answers, nil otherwise.
// SetCORSHeaders mutates the headers of an existing response; it never
// creates a new response or alters the status.
type CORSPolicy interface {
	HandlePreflight(r *http.Request) *Response
	SetCORSHeaders(resp *Response, r *http.Request)
}

// RateLimitResult reports the outcome of a rate-limit check.
type RateLimitResult struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimiter consults the (possibly out-of-process) rate-limit
// counter store. Timeouts and retries are the store's own concern.
type RateLimiter interface {
	Limit(ctx context.Context, identity string) (RateLimitResult, error)
}

// CSPWrapper injects Content-Security-Policy and related security
// headers onto the final response of a page request.
type CSPWrapper interface {
	WrapWithCSP(r *http.Request, resp *Response) *Response
}

// TrackingWriter appends tracking cookies to the final response of a
// page request.
type TrackingWriter interface {
	AppendTrackingCookies(resp *Response) *Response
}

// Reporter receives unexpected pipeline failures. A Reporter that
// itself fails must not prevent the 500 response from being returned;
// the dispatcher guards every Report call.
type Reporter interface {
	Report(ctx context.Context, err error, r *http.Request)
}

// Identity headers attached by ApplyEdgeAuthHeaders.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUserEmail    = "X-User-Email"
	HeaderUserRole     = "X-User-Role"
	HeaderAuthCategory = "X-Auth-Category"
	HeaderRequestID    = "X-Request-Id"
)

// ApplyEdgeAuthHeaders attaches identity headers derived from the
// decision to the response. It never alters the response status and
// skips empty fields.
func ApplyEdgeAuthHeaders(resp *Response, d AuthDecision) *Response {
	if d.UserID != "" {
		resp.Header.Set(HeaderUserID, d.UserID)
	}
	if d.UserEmail != "" {
		resp.Header.Set(HeaderUserEmail, d.UserEmail)
	}
	if d.UserRole != "" {
		resp.Header.Set(HeaderUserRole, d.UserRole)
	}
	if d.Category != "" {
		resp.Header.Set(HeaderAuthCategory, d.Category)
	}
	return resp
}
