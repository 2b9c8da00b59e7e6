package plans

import "strings"

const (
	KeyFree = "free"
	KeyPro  = "pro"
)

// NormalizeKey maps anything that is not "pro" to free.
func NormalizeKey(key string) string {
	if strings.EqualFold(strings.TrimSpace(key), KeyPro) {
		return KeyPro
	}
	return KeyFree
}

// KeyFromMetadata reads the plan key Stripe prices carry in metadata
// ("plan" first, "tier" as fallback). Unknown values are treated as pro,
// since every paid price unlocks the paid plan.
func KeyFromMetadata(md map[string]string) string {
	if md == nil {
		return KeyPro
	}
	for _, k := range []string{"plan", "tier"} {
		switch v := strings.ToLower(strings.TrimSpace(md[k])); v {
		case KeyFree, KeyPro:
			return v
		}
	}
	return KeyPro
}
