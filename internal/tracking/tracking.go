// Package tracking implements the tracking-cookie writer consumed by
// the pipeline: a first-party visitor-id cookie appended to page
// responses.
package tracking

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/pipeline"
)

// Writer appends the visitor-id cookie to responses.
type Writer struct {
	cookieName string
	maxAge     int
	secure     bool
}

// New creates a Writer from config.
func New(cfg config.Tracking) *Writer {
	return &Writer{
		cookieName: cfg.CookieName,
		maxAge:     int(cfg.TTL.Seconds()),
		secure:     cfg.Secure,
	}
}

// AppendTrackingCookies adds a fresh visitor-id cookie unless the
// response already carries one (a stage upstream may have set it).
func (w *Writer) AppendTrackingCookies(resp *pipeline.Response) *pipeline.Response {
	for _, c := range resp.Cookies() {
		if c.Name == w.cookieName {
			return resp
		}
	}
	resp.AddCookie(&http.Cookie{
		Name:     w.cookieName,
		Value:    uuid.NewString(),
		Path:     "/",
		MaxAge:   w.maxAge,
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return resp
}
