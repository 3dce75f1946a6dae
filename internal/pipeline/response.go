// Package pipeline implements the edge request-dispatch and
// security-enforcement pipeline. Every inbound request is classified
// into a route class and run through an ordered, short-circuiting
// chain of policy stages (host validation, CORS preflight, rate
// limiting, CSRF, authentication, header finalization) before it is
// allowed to reach a business handler.
//
// The pipeline orchestrates policy decisions but does not make them:
// the concrete auth, CORS, CSRF, rate-limit, CSP, and tracking
// collaborators are injected behind the interfaces in collab.go.
package pipeline

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the outcome of a pipeline stage or of a full dispatch.
// A terminal response carries a status, headers, and a body; the
// pass-through response (see Next) carries only headers and cookies to
// be layered onto whatever the origin handler produces.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	cookies []*http.Cookie
	next    bool
}

// NewResponse creates an empty terminal response with the given status.
func NewResponse(status int) *Response {
	return &Response{StatusCode: status, Header: http.Header{}}
}

// Next returns the canonical pass-through response: the request
// continues to the origin handler. Headers and cookies attached to it
// are still applied to the eventual origin response.
func Next() *Response {
	return &Response{Header: http.Header{}, next: true}
}

// IsNext reports whether this is a pass-through response.
func (r *Response) IsNext() bool { return r.next }

// JSON creates a terminal response with a JSON-encoded body.
func JSON(status int, v any) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode pipeline response body", "err", err)
		return resp
	}
	resp.Body = b
	return resp
}

// Error creates a terminal JSON error response with the stable
// {"error": "<message>"} envelope used by every rejecting stage.
func Error(status int, msg string) *Response {
	return JSON(status, map[string]string{"error": msg})
}

// Redirect creates a terminal redirect response. Redirects are the
// only non-JSON terminal responses the pipeline produces.
func Redirect(status int, location string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Location", location)
	return resp
}

// AddCookie queues a cookie to be set on the response.
func (r *Response) AddCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// Cookies returns the cookies queued on the response.
func (r *Response) Cookies() []*http.Cookie {
	return r.cookies
}

// ApplyHeaders copies the response's headers and cookies onto w
// without writing a status line. Used for pass-through responses,
// where the origin handler owns the status and body.
func (r *Response) ApplyHeaders(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, c := range r.cookies {
		http.SetCookie(w, c)
	}
}

// Write renders a terminal response onto w.
func (r *Response) Write(w http.ResponseWriter) {
	r.ApplyHeaders(w)
	w.WriteHeader(r.StatusCode)
	if len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			slog.Error("failed to write pipeline response", "err", err)
		}
	}
}
