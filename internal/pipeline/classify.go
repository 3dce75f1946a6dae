package pipeline

import (
	"net/http"
	"strings"
)

// RouteClass is the category a request is bucketed into. It determines
// which ordered stage list runs.
type RouteClass int

const (
	// ClassPage is the default: everything not claimed by another class.
	ClassPage RouteClass = iota
	// ClassAPI covers API-prefixed paths.
	ClassAPI
	// ClassWebhook covers inbound webhook receivers; they never consult
	// user sessions.
	ClassWebhook
	// ClassCron covers scheduler-triggered paths; bearer secret only.
	ClassCron
	// ClassPassthrough covers static assets and other paths the
	// pipeline waves through untouched.
	ClassPassthrough
)

// String returns the class name used in logs and metric labels.
func (c RouteClass) String() string {
	switch c {
	case ClassAPI:
		return "api"
	case ClassWebhook:
		return "webhook"
	case ClassCron:
		return "cron"
	case ClassPassthrough:
		return "passthrough"
	default:
		return "page"
	}
}

// ClassTable holds the path prefixes that drive classification. It is
// built once at startup from configuration and never mutated.
//
// Webhook and cron prefixes are checked before the API prefixes, since
// they typically nest under the API namespace.
type ClassTable struct {
	Webhook []string
	Cron    []string
	API     []string
	Asset   []string
}

// Classify maps a request to exactly one route class. Classification
// is pure and total: every (path, method) pair yields a class and the
// same pair always yields the same class.
func (t ClassTable) Classify(path, method string) RouteClass {
	switch {
	case hasAnyPrefix(path, t.Webhook):
		return ClassWebhook
	case hasAnyPrefix(path, t.Cron):
		return ClassCron
	case hasAnyPrefix(path, t.API):
		return ClassAPI
	case hasAnyPrefix(path, t.Asset):
		return ClassPassthrough
	default:
		return ClassPage
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsPreflight reports whether the request uses the CORS preflight
// method. The CORS collaborator decides whether it actually answers.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}
