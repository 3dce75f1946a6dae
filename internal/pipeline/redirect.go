package pipeline

import (
	"net/http"
	"strings"
)

// RedirectRule maps a legacy path to its canonical replacement.
// Exact rules replace the whole path; prefix rules preserve the
// remainder, so {From: "/org-setup", To: "/admin/setup", Prefix: true}
// sends /org-setup/step-3 to /admin/setup/step-3.
type RedirectRule struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Prefix bool   `yaml:"prefix"`
}

// RedirectTable is the ordered legacy-path redirect rule set, checked
// after host validation and before route classification. First match
// wins.
type RedirectTable []RedirectRule

// Match returns a 307 redirect response for the first matching rule,
// or nil when no rule applies.
func (t RedirectTable) Match(path string) *Response {
	for _, rule := range t {
		if rule.Prefix {
			if strings.HasPrefix(path, rule.From) {
				return Redirect(http.StatusTemporaryRedirect, rule.To+strings.TrimPrefix(path, rule.From))
			}
			continue
		}
		if path == rule.From {
			return Redirect(http.StatusTemporaryRedirect, rule.To)
		}
	}
	return nil
}
