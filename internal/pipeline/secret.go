package pipeline

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// bearerPrefix is matched case-sensitively: "bearer x" is not a valid
// scheme here.
const bearerPrefix = "Bearer "

// VerifySecret compares the request's bearer token against the
// configured shared secret, for non-interactive callers (cron jobs,
// inbound webhooks). It returns false when the Authorization header is
// missing, the scheme is not literally "Bearer", the token is empty,
// or the secret itself is unset. An unconfigured secret is always a
// denial, never an implicit allow.
//
// The comparison is constant-time.
func VerifySecret(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return false
	}
	token := h[len(bearerPrefix):]
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// RequireSecret returns a stage that verifies the shared cron/webhook
// bearer secret. Verification failure terminates the chain with a 401
// JSON body; success continues.
func RequireSecret(secret string) Stage {
	return func(ctx context.Context, r *http.Request) (*Response, error) {
		if !VerifySecret(r, secret) {
			return Error(http.StatusUnauthorized, "Unauthorized: Invalid CRON_SECRET"), nil
		}
		return nil, nil
	}
}
