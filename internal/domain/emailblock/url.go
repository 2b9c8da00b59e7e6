package emailblock

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	linkPolicyOnce sync.Once
	linkPolicy     *bluemonday.Policy

	hrefAttr = regexp.MustCompile(`href="([^"]*)"`)
)

// urlPolicy only keeps href on anchors, for absolute http(s) links with a host
// and mailto links with an address.
func urlPolicy() *bluemonday.Policy {
	linkPolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowAttrs("href").OnElements("a")
		p.AllowURLSchemeWithCustomPolicy("http", hasHost)
		p.AllowURLSchemeWithCustomPolicy("https", hasHost)
		p.AllowURLSchemeWithCustomPolicy("mailto", func(u *url.URL) bool { return u.Opaque != "" })
		p.AllowRelativeURLs(false)
		p.RequireParseableURLs(true)
		p.RequireNoFollowOnLinks(false)
		linkPolicy = p
	})
	return linkPolicy
}

func hasHost(u *url.URL) bool { return u.Host != "" }

// SafeURL runs raw through the link sanitiser and returns the normalised URL.
// ok is false when the sanitiser drops it: relative links, other schemes
// (javascript:, data:) and unparseable input.
func SafeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	out := urlPolicy().Sanitize(`<a href="` + html.EscapeString(raw) + `">x</a>`)
	m := hrefAttr.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return html.UnescapeString(m[1]), true
}
