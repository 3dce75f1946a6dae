package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Options configures a Dispatcher. Collaborators left nil degrade to
// safe denials or no-ops as documented on each field; the tables are
// captured once and never mutated afterwards.
type Options struct {
	Hosts     *HostChecker
	Redirects RedirectTable
	Classes   ClassTable

	// AdminAPIPrefixes gates the layered admin check on API routes;
	// AdminPagePrefixes gates the admin-auth stage on page routes.
	AdminAPIPrefixes  []string
	AdminPagePrefixes []string

	// Secret is the shared cron/webhook bearer secret. Empty means
	// every cron and webhook request is denied.
	Secret string

	// WebhookStages holds per-webhook stages keyed by path prefix.
	// Each runs after secret verification, only for matching paths.
	WebhookStages map[string]Stage

	Auth      EdgeAuthenticator  // nil: API and page sessions always denied
	AdminAuth AdminAuthenticator // nil: admin paths always denied
	CSRF      CSRFValidator      // nil: CSRF not enforced
	CORS      CORSPolicy         // nil: preflights continue, no headers
	Limiter   RateLimiter        // nil: rate limiting not enforced
	CSP       CSPWrapper         // nil: no CSP injection
	Tracking  TrackingWriter     // nil: no tracking cookies
	Reporter  Reporter           // nil: failures only logged

	Logger *slog.Logger
}

// Dispatcher classifies requests and runs the per-class stage chain.
// All chains are assembled once at construction; per-request state
// flows through the chain via a context slot, never through fields.
type Dispatcher struct {
	opts Options

	apiChain     Chain
	webhookChain Chain
	cronChain    Chain
	pageChain    Chain
}

// New builds a Dispatcher with one ordered chain per route class.
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hosts == nil {
		opts.Hosts = NewHostChecker(nil)
	}
	d := &Dispatcher{opts: opts}

	// API chain, in the exact mandated order: CORS preflight first so
	// preflights never hit auth, then rate limiting, CSRF, edge auth,
	// the prefix-gated admin layer, and finalization.
	d.apiChain = Chain{
		d.corsPreflightStage,
		d.rateLimitStage,
		d.csrfStage,
		d.edgeAuthStage,
		WithPathPrefix(d.adminAuthStage, opts.AdminAPIPrefixes...),
		d.finalizeAPIStage,
	}

	// Webhooks verify the shared secret and then run whatever stage
	// each webhook declares; user sessions are never consulted.
	webhook := Chain{RequireSecret(opts.Secret)}
	for _, prefix := range sortedKeys(opts.WebhookStages) {
		webhook = append(webhook, WithPathPrefix(opts.WebhookStages[prefix], prefix))
	}
	d.webhookChain = webhook

	// Cron paths run bearer-secret verification only.
	d.cronChain = Chain{RequireSecret(opts.Secret)}

	// Pages: admin auth only under admin prefixes, then the general
	// app session. CSP and tracking wrap the final response in
	// dispatch, not here, so they apply even to pass-throughs.
	d.pageChain = Chain{
		WithPathPrefix(d.adminAuthStage, opts.AdminPagePrefixes...),
		d.sessionStage,
	}

	return d
}

// Dispatch is the error boundary around the whole per-request flow.
// Any stage error or panic is reported and converted into the fixed
// 500 body; nothing below this ever leaks to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, r *http.Request) (resp *Response) {
	defer func() {
		if v := recover(); v != nil {
			d.report(ctx, fmt.Errorf("panic in pipeline: %v", v), r)
			resp = Error(http.StatusInternalServerError, "Internal server error")
		}
	}()

	resp, err := d.dispatch(ctx, r)
	if err != nil {
		d.report(ctx, err, r)
		return Error(http.StatusInternalServerError, "Internal server error")
	}
	return resp
}

// dispatch runs host validation, the redirect table, classification,
// and the classified chain. It performs no error handling itself.
func (d *Dispatcher) dispatch(ctx context.Context, r *http.Request) (*Response, error) {
	// Host validation runs first and unconditionally. On failure the
	// request is finished: no CORS, no auth, nothing else.
	if !d.opts.Hosts.Check(r) {
		dispatchTotal.WithLabelValues("invalid_host").Inc()
		return Error(http.StatusBadRequest, "Invalid host header"), nil
	}

	if resp := d.opts.Redirects.Match(r.URL.Path); resp != nil {
		dispatchTotal.WithLabelValues("redirect").Inc()
		return resp, nil
	}

	class := d.opts.Classes.Classify(r.URL.Path, r.Method)
	dispatchTotal.WithLabelValues(class.String()).Inc()

	ctx = withDispatchState(ctx)

	switch class {
	case ClassWebhook:
		return d.webhookChain.Run(ctx, r)
	case ClassCron:
		return d.cronChain.Run(ctx, r)
	case ClassAPI:
		return d.apiChain.Run(ctx, r)
	case ClassPassthrough:
		return Next(), nil
	default:
		resp, err := d.pageChain.Run(ctx, r)
		if err != nil {
			return nil, err
		}
		// CSP and tracking wrap the final page response, whatever the
		// inner chain produced, including the pass-through.
		if d.opts.CSP != nil {
			resp = d.opts.CSP.WrapWithCSP(r, resp)
		}
		if d.opts.Tracking != nil {
			resp = d.opts.Tracking.AppendTrackingCookies(resp)
		}
		return resp, nil
	}
}

// --- API stages ---

func (d *Dispatcher) corsPreflightStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.CORS == nil || !IsPreflight(r) {
		return nil, nil
	}
	return d.opts.CORS.HandlePreflight(r), nil
}

func (d *Dispatcher) rateLimitStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.Limiter == nil {
		return nil, nil
	}
	res, err := d.opts.Limiter.Limit(ctx, clientIP(r))
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if res.Success {
		return nil, nil
	}
	rateLimitRejections.Inc()
	resp := JSON(http.StatusTooManyRequests, map[string]any{
		"error":     "Too many requests",
		"remaining": res.Remaining,
	})
	resp.Header.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	resp.Header.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Reset.IsZero() {
		resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
		if wait := time.Until(res.Reset); wait > 0 {
			resp.Header.Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
	}
	return resp, nil
}

func (d *Dispatcher) csrfStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.CSRF == nil {
		return nil, nil
	}
	return d.opts.CSRF.ValidateCSRF(r), nil
}

func (d *Dispatcher) edgeAuthStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.Auth == nil {
		return Error(http.StatusUnauthorized, "Unauthorized"), nil
	}
	decision, err := d.opts.Auth.EnforceEdgeAuth(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("edge auth: %w", err)
	}
	if decision.Blocked {
		if decision.Denial != nil {
			return decision.Denial, nil
		}
		return Error(http.StatusUnauthorized, "Unauthorized"), nil
	}
	if st := dispatchStateFrom(ctx); st != nil {
		st.decision = decision
		st.hasDecision = true
	}
	return nil, nil
}

// adminAuthStage layers the admin-role check on top of whatever auth
// already ran. Identity is established by this point on API routes, so
// a blocked admin decision is a 403, not a 401.
func (d *Dispatcher) adminAuthStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.AdminAuth == nil {
		return Error(http.StatusForbidden, "Forbidden"), nil
	}
	decision, err := d.opts.AdminAuth.EnforceAdminAuth(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("admin auth: %w", err)
	}
	if decision.Blocked {
		if decision.Denial != nil {
			return decision.Denial, nil
		}
		return Error(http.StatusForbidden, "Forbidden"), nil
	}
	if st := dispatchStateFrom(ctx); st != nil {
		st.decision = decision
		st.hasDecision = true
	}
	return nil, nil
}

// finalizeAPIStage terminates every surviving API request with a
// decorated pass-through: a fresh request id, identity headers from
// the auth decision, and response CORS headers.
func (d *Dispatcher) finalizeAPIStage(ctx context.Context, r *http.Request) (*Response, error) {
	resp := Next()
	resp.Header.Set(HeaderRequestID, uuid.NewString())
	if st := dispatchStateFrom(ctx); st != nil && st.hasDecision {
		ApplyEdgeAuthHeaders(resp, st.decision)
	}
	if d.opts.CORS != nil {
		d.opts.CORS.SetCORSHeaders(resp, r)
	}
	return resp, nil
}

// --- page stages ---

func (d *Dispatcher) sessionStage(ctx context.Context, r *http.Request) (*Response, error) {
	if d.opts.Auth == nil {
		return nil, nil
	}
	decision, err := d.opts.Auth.EnforceEdgeAuth(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("page session: %w", err)
	}
	if decision.Blocked {
		if decision.Denial != nil {
			return decision.Denial, nil
		}
		return Error(http.StatusUnauthorized, "Unauthorized"), nil
	}
	if st := dispatchStateFrom(ctx); st != nil {
		st.decision = decision
		st.hasDecision = true
	}
	return nil, nil
}

// report sends the failure to the reporting sink. A sink failure,
// including a panic, must not prevent the 500 from being returned,
// so the call is fenced with its own recover.
func (d *Dispatcher) report(ctx context.Context, err error, r *http.Request) {
	pipelineFailures.Inc()
	d.opts.Logger.Error("pipeline dispatch failed",
		"err", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	if d.opts.Reporter == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			d.opts.Logger.Error("error reporter panicked", "panic", v)
		}
	}()
	d.opts.Reporter.Report(ctx, err, r)
}

// --- per-request state ---

// dispatchState carries the auth decision from the auth stage to the
// finalizer. It is allocated by the dispatcher before the chain runs
// and reached through the context, so stages keep their uniform
// signature and chains stay shareable across requests.
type dispatchState struct {
	decision    AuthDecision
	hasDecision bool
}

type dispatchStateKey struct{}

func withDispatchState(ctx context.Context) context.Context {
	return context.WithValue(ctx, dispatchStateKey{}, &dispatchState{})
}

func dispatchStateFrom(ctx context.Context) *dispatchState {
	st, _ := ctx.Value(dispatchStateKey{}).(*dispatchState)
	return st
}

// clientIP is the rate-limit identity: the first X-Forwarded-For hop
// when present, the transport peer otherwise.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func sortedKeys(m map[string]Stage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
