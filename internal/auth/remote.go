// Package auth wires the pipeline to the platform's external
// session and admin decision providers. The decisions themselves are
// made behind an introspection endpoint; this package only carries
// credentials there and maps the answer onto pipeline.AuthDecision.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fundlane/edgegate/internal/pipeline"
)

// Remote asks the platform's session-introspection endpoint whether
// the request carries a valid session. The edge forwards only the
// credentials (cookies and Authorization header); the decision logic
// lives entirely behind the endpoint.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a Remote provider for the given introspection URL.
func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{
		url: strings.TrimRight(url, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// decision is the introspection endpoint's response body.
type decision struct {
	Blocked   bool   `json:"blocked"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	UserRole  string `json:"userRole"`
	Category  string `json:"category"`
}

// EnforceEdgeAuth implements pipeline.EdgeAuthenticator.
func (a *Remote) EnforceEdgeAuth(ctx context.Context, r *http.Request) (pipeline.AuthDecision, error) {
	return a.introspect(ctx, r)
}

// EnforceAdminAuth implements pipeline.AdminAuthenticator.
func (a *Remote) EnforceAdminAuth(ctx context.Context, r *http.Request) (pipeline.AuthDecision, error) {
	return a.introspect(ctx, r)
}

func (a *Remote) introspect(ctx context.Context, r *http.Request) (pipeline.AuthDecision, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, nil)
	if err != nil {
		return pipeline.AuthDecision{}, fmt.Errorf("create introspection request: %w", err)
	}
	if c := r.Header.Get("Cookie"); c != "" {
		req.Header.Set("Cookie", c)
	}
	if h := r.Header.Get("Authorization"); h != "" {
		req.Header.Set("Authorization", h)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return pipeline.AuthDecision{}, fmt.Errorf("session introspection: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var d decision
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			return pipeline.AuthDecision{}, fmt.Errorf("decode introspection response: %w", err)
		}
		return pipeline.AuthDecision{
			Blocked:   d.Blocked,
			UserID:    d.UserID,
			UserEmail: d.UserEmail,
			UserRole:  d.UserRole,
			Category:  d.Category,
		}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		// The provider rejected the session; the status carries the
		// distinction between no identity and insufficient privilege.
		return pipeline.AuthDecision{
			Blocked: true,
			Denial:  denialFor(resp.StatusCode),
		}, nil
	default:
		return pipeline.AuthDecision{}, fmt.Errorf("session introspection: status %d", resp.StatusCode)
	}
}

func denialFor(status int) *pipeline.Response {
	if status == http.StatusForbidden {
		return pipeline.Error(http.StatusForbidden, "Forbidden")
	}
	return pipeline.Error(http.StatusUnauthorized, "Unauthorized")
}

// DenyAll is the fail-safe provider wired when no introspection URL is
// configured: every request is blocked. Absence of an auth provider
// must never degrade to an implicit allow.
type DenyAll struct{}

// EnforceEdgeAuth implements pipeline.EdgeAuthenticator.
func (DenyAll) EnforceEdgeAuth(context.Context, *http.Request) (pipeline.AuthDecision, error) {
	return pipeline.AuthDecision{Blocked: true, Category: "unconfigured"}, nil
}

// EnforceAdminAuth implements pipeline.AdminAuthenticator.
func (DenyAll) EnforceAdminAuth(context.Context, *http.Request) (pipeline.AuthDecision, error) {
	return pipeline.AuthDecision{Blocked: true, Category: "unconfigured"}, nil
}
