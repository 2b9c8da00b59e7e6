package stripe

import "strings"

// NormalizeStripeStatus folds Stripe subscription statuses into
// none|active|trialing|past_due|canceled|incomplete.
func NormalizeStripeStatus(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "none"
	}
	switch v := strings.ToLower(strings.TrimSpace(*s)); v {
	case "active", "trialing":
		return v
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	case "incomplete", "paused":
		return "incomplete"
	default:
		return v
	}
}
