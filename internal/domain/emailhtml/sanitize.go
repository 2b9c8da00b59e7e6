package emailhtml

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// emailPolicy allows the table layout and inline styling email clients
// depend on while dropping scripts, event handlers and unsafe URLs.
func emailPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("center", "font", "span", "div")
		p.AllowAttrs("align", "valign", "width", "height", "bgcolor", "border",
			"cellpadding", "cellspacing", "role").Globally()
		p.AllowAttrs("style").Globally()
		p.AllowStyles(
			"color", "background-color", "background", "font-family", "font-size", "font-weight",
			"font-style", "line-height", "text-align", "text-decoration", "vertical-align",
			"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
			"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
			"border", "border-top", "border-bottom", "border-radius", "border-collapse",
			"width", "max-width", "height", "max-height", "display", "overflow",
		).Globally()
		p.AllowDataAttributes()
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireNoFollowOnLinks(false)
		p.SkipElementsContent("head", "title", "style", "script")
		policy = p
	})
	return policy
}

// SanitizeHTML cleans client supplied email markup and wraps body fragments
// in a full document.
func SanitizeHTML(raw string) string {
	clean := emailPolicy().Sanitize(raw)
	return document(titleOf(raw), "", "<tr><td>"+clean+"</td></tr>\n")
}

func titleOf(raw string) string {
	lower := strings.ToLower(raw)
	start := strings.Index(lower, "<title>")
	end := strings.Index(lower, "</title>")
	if start < 0 || end < start {
		return ""
	}
	return html.UnescapeString(strings.TrimSpace(raw[start+len("<title>") : end]))
}
