// Package csrf implements the CSRF token validator consumed by the
// pipeline: an HMAC-signed double-submit token carried in both a
// cookie and a request header.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/pipeline"
)

// safeMethods never require a CSRF token.
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// Validator checks double-submit CSRF tokens on unsafe API requests.
type Validator struct {
	enabled    bool
	secret     []byte
	cookieName string
	headerName string
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Validator from config.
func New(cfg config.CSRF) *Validator {
	return &Validator{
		enabled:    cfg.Enabled,
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		headerName: cfg.HeaderName,
		ttl:        cfg.TokenTTL,
		now:        time.Now,
	}
}

// ValidateCSRF returns nil when the request passes (safe method,
// validator disabled, or a valid token) and a terminal 403 response
// otherwise. The header token must match the cookie token exactly and
// carry a valid, unexpired signature.
func (v *Validator) ValidateCSRF(r *http.Request) *pipeline.Response {
	if !v.enabled || safeMethods[r.Method] {
		return nil
	}

	header := r.Header.Get(v.headerName)
	cookie, err := r.Cookie(v.cookieName)
	if header == "" || err != nil || cookie.Value == "" {
		return pipeline.Error(http.StatusForbidden, "CSRF token missing")
	}
	if header != cookie.Value || !v.tokenValid(header) {
		return pipeline.Error(http.StatusForbidden, "CSRF token invalid")
	}
	return nil
}

// GenerateToken mints a token bound to the current time, for the
// business layer to hand to clients: "<unix>.<base64(hmac)>".
func (v *Validator) GenerateToken() string {
	ts := strconv.FormatInt(v.now().Unix(), 10)
	return ts + "." + v.sign(ts)
}

func (v *Validator) tokenValid(token string) bool {
	ts, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(v.sign(ts))) {
		return false
	}
	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := v.now().Sub(time.Unix(issued, 0))
	return age >= 0 && age <= v.ttl
}

func (v *Validator) sign(ts string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(ts))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
