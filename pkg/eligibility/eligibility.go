// Package eligibility decides whether the capture helper may be injected into a page,
// based on the page URL alone.
package eligibility

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DefaultAllowPatterns are the URL schemes the helper can run on, any host and path.
var DefaultAllowPatterns = []string{
	"http://*",
	"https://*",
	"ftp://*",
	"file://*",
}

// DefaultDenyPatterns are origins that refuse script injection even though their
// scheme is allowed (the extension store).
var DefaultDenyPatterns = []string{
	"{http,https}://chrome.google.com/*",
}

var defaultPolicy = MustPolicy(DefaultAllowPatterns, DefaultDenyPatterns)

// Policy matches URLs against compiled allow and deny globs.
type Policy struct {
	allowPatterns []glob.Glob
	denyPatterns  []glob.Glob
}

// NewPolicy compiles the allow and deny patterns into a Policy.
func NewPolicy(allow, deny []string) (*Policy, error) {
	p := &Policy{}

	for _, pattern := range deny {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern '%s': %w", pattern, err)
		}
		p.denyPatterns = append(p.denyPatterns, g)
	}

	for _, pattern := range allow {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern '%s': %w", pattern, err)
		}
		p.allowPatterns = append(p.allowPatterns, g)
	}

	return p, nil
}

// MustPolicy is like NewPolicy but panics on an invalid pattern.
func MustPolicy(allow, deny []string) *Policy {
	p, err := NewPolicy(allow, deny)
	if err != nil {
		panic(err)
	}
	return p
}

// Allows reports whether url may receive the capture helper.
// Deny patterns take precedence; a URL matching no allow pattern is rejected.
func (p *Policy) Allows(url string) bool {
	for _, pattern := range p.denyPatterns {
		if pattern.Match(url) {
			return false
		}
	}

	for _, pattern := range p.allowPatterns {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}

// IsEligible checks url against the default policy.
func IsEligible(url string) bool {
	return defaultPolicy.Allows(url)
}
